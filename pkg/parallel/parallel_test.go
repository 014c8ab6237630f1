package parallel

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/qecdec/fusionmatch/pkg/codes"
	"github.com/qecdec/fusionmatch/pkg/decoding"
	"github.com/qecdec/fusionmatch/pkg/partition"
	"github.com/qecdec/fusionmatch/pkg/solver"
)

// chainFixture is a 9-vertex chain with virtual ends, split into two
// units around interface vertex 4.
func chainFixture(t *testing.T) (*decoding.SolverInitializer, *partition.Config) {
	t.Helper()
	edges := make([]decoding.WeightedEdge, 8)
	for i := range edges {
		edges[i] = decoding.WeightedEdge{Left: i, Right: i + 1, Weight: 2}
	}
	ini := &decoding.SolverInitializer{
		VertexNum:       9,
		WeightedEdges:   edges,
		VirtualVertices: []int{0, 8},
	}
	pcfg := &partition.Config{
		VertexNum: 9,
		Partitions: []decoding.IndexRange{
			decoding.NewRange(0, 4),
			decoding.NewRange(5, 9),
		},
		Fusions: [][2]int{{0, 1}},
	}
	return ini, pcfg
}

func TestFusionRerootsTemporaryMatches(t *testing.T) {
	ini, pcfg := chainFixture(t)
	p, err := NewSolver(ini, pcfg, Config{ThreadPoolSize: 2})
	if err != nil {
		t.Fatalf("NewSolver() error = %v", err)
	}
	// both defects sit next to the interface; each base solve parks a
	// temporary match on mirror vertex 4, and fusion must undo both
	pattern := decoding.NewSyndromePattern(3, 5)
	if err := p.Solve(pattern); err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	subgraph, err := p.Subgraph()
	if err != nil {
		t.Fatalf("Subgraph() error = %v", err)
	}
	g, _ := ini.Graph()
	if w := solver.SubgraphWeight(g, pattern, subgraph); w != 4 {
		t.Errorf("subgraph weight = %d (%v), want 4 via the interface", w, subgraph)
	}
	if err := solver.VerifySubgraph(g, pattern, subgraph); err != nil {
		t.Errorf("VerifySubgraph() error = %v", err)
	}
	pm, err := p.PerfectMatching()
	if err != nil {
		t.Fatalf("PerfectMatching() error = %v", err)
	}
	if len(pm.PeerMatchings) != 1 {
		t.Errorf("PeerMatchings = %v, want one cross-interface pair", pm.PeerMatchings)
	}
}

func TestInterfaceDefectLoadsAtFusion(t *testing.T) {
	ini, pcfg := chainFixture(t)
	p, err := NewSolver(ini, pcfg, Config{ThreadPoolSize: 2})
	if err != nil {
		t.Fatalf("NewSolver() error = %v", err)
	}
	// vertex 4 belongs to the fusion unit; its defect only enters the
	// solve when the interface is enabled
	pattern := decoding.NewSyndromePattern(3, 4)
	if err := p.Solve(pattern); err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	subgraph, err := p.Subgraph()
	if err != nil {
		t.Fatalf("Subgraph() error = %v", err)
	}
	g, _ := ini.Graph()
	if err := solver.VerifySubgraph(g, pattern, subgraph); err != nil {
		t.Errorf("VerifySubgraph() error = %v", err)
	}
}

func TestSiblingCrossingEdgeRejected(t *testing.T) {
	ini, _ := chainFixture(t)
	pcfg := &partition.Config{
		VertexNum: 9,
		Partitions: []decoding.IndexRange{
			decoding.NewRange(0, 4),
			decoding.NewRange(4, 9),
		},
		Fusions: [][2]int{{0, 1}},
	}
	_, err := NewSolver(ini, pcfg, Config{})
	if !errors.Is(err, ErrSiblingCrossingEdge) {
		t.Fatalf("NewSolver() error = %v, want ErrSiblingCrossingEdge", err)
	}
}

// phenomenologicalFixture builds the E5 setup: distance-7 planar code
// with 7 measurement rounds, cut into 4 units along the time axis.
func phenomenologicalFixture(t *testing.T) (*codes.PhenomenologicalPlanarCode, *partition.Config) {
	t.Helper()
	code, err := codes.NewPhenomenologicalPlanarCode(codes.Config{Distance: 7, Rounds: 7, Probability: 0.005})
	if err != nil {
		t.Fatalf("NewPhenomenologicalPlanarCode() error = %v", err)
	}
	pcfg, err := codes.TimePartition(code, 4)
	if err != nil {
		t.Fatalf("TimePartition() error = %v", err)
	}
	return code, pcfg
}

func assertAgainstSerial(t *testing.T, s solver.Solver, code codes.Code, pattern *decoding.SyndromePattern, seed int64) {
	t.Helper()
	serial, err := solver.NewSerialSolver(code.Initializer())
	if err != nil {
		t.Fatalf("NewSerialSolver() error = %v", err)
	}
	if err := serial.Solve(pattern); err != nil {
		t.Fatalf("seed %d: serial Solve() error = %v", seed, err)
	}
	serialSubgraph, err := serial.Subgraph()
	if err != nil {
		t.Fatalf("seed %d: serial Subgraph() error = %v", seed, err)
	}
	if err := s.Solve(pattern); err != nil {
		t.Fatalf("seed %d: Solve() error = %v", seed, err)
	}
	subgraph, err := s.Subgraph()
	if err != nil {
		t.Fatalf("seed %d: Subgraph() error = %v", seed, err)
	}
	g, _ := code.Initializer().Graph()
	serialWeight := solver.SubgraphWeight(g, pattern, serialSubgraph)
	weight := solver.SubgraphWeight(g, pattern, subgraph)
	if weight != serialWeight {
		t.Errorf("seed %d: weight %d != serial %d", seed, weight, serialWeight)
	}
	// parity must hold regardless of which optimal matching was found
	degree := make([]int, g.VertexNum())
	for _, e := range subgraph {
		l, r := g.Endpoints(e)
		degree[l]++
		degree[r]++
	}
	isDefect := make(map[int]bool)
	for _, v := range pattern.DefectVertices {
		isDefect[v] = true
	}
	for v := 0; v < g.VertexNum(); v++ {
		if g.IsVirtual(v) {
			continue
		}
		want := 0
		if isDefect[v] {
			want = 1
		}
		if degree[v]%2 != want {
			t.Fatalf("seed %d: vertex %d parity %d, want %d", seed, v, degree[v]%2, want)
		}
	}
	s.Clear()
}

func TestParallelMatchesSerial(t *testing.T) {
	code, pcfg := phenomenologicalFixture(t)
	p, err := NewSolver(code.Initializer(), pcfg, Config{ThreadPoolSize: 4})
	if err != nil {
		t.Fatalf("NewSolver() error = %v", err)
	}
	for seed := int64(0); seed < 10; seed++ {
		rng := rand.New(rand.NewSource(seed))
		pattern, _ := codes.SampleSyndrome(code, rng)
		assertAgainstSerial(t, p, code, pattern, seed)
	}
}

func TestStreamingMatchesSerial(t *testing.T) {
	code, pcfg := phenomenologicalFixture(t)
	p, err := NewSolver(code.Initializer(), pcfg, Config{
		ThreadPoolSize:           3,
		Streaming:                true,
		PrioritizeBasePartitions: true,
		MockMeasureInterval:      time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewSolver() error = %v", err)
	}
	for seed := int64(20); seed < 25; seed++ {
		rng := rand.New(rand.NewSource(seed))
		pattern, _ := codes.SampleSyndrome(code, rng)
		assertAgainstSerial(t, p, code, pattern, seed)
	}
}

func TestDualParallelMatchesSerial(t *testing.T) {
	code, pcfg := phenomenologicalFixture(t)
	p, err := NewDualParallelSolver(code.Initializer(), pcfg, Config{ThreadPoolSize: 4})
	if err != nil {
		t.Fatalf("NewDualParallelSolver() error = %v", err)
	}
	for seed := int64(40); seed < 45; seed++ {
		rng := rand.New(rand.NewSource(seed))
		pattern, _ := codes.SampleSyndrome(code, rng)
		assertAgainstSerial(t, p, code, pattern, seed)
	}
}

func TestParallelClearRoundTrip(t *testing.T) {
	ini, pcfg := chainFixture(t)
	p, err := NewSolver(ini, pcfg, Config{ThreadPoolSize: 2})
	if err != nil {
		t.Fatalf("NewSolver() error = %v", err)
	}
	pattern := decoding.NewSyndromePattern(2, 6)
	if err := p.Solve(pattern); err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	first, _ := p.Subgraph()
	if err := p.Solve(pattern); !errors.Is(err, solver.ErrSolverDirty) {
		t.Fatalf("second Solve() error = %v, want ErrSolverDirty", err)
	}
	p.Clear()
	if err := p.Solve(pattern); err != nil {
		t.Fatalf("Solve() after Clear error = %v", err)
	}
	second, _ := p.Subgraph()
	if len(first) != len(second) {
		t.Fatalf("subgraphs differ after clear: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("subgraphs differ after clear: %v vs %v", first, second)
		}
	}
}
