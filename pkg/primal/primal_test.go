package primal

import (
	"testing"

	"github.com/qecdec/fusionmatch/pkg/decoding"
	"github.com/qecdec/fusionmatch/pkg/dual"
)

func solve(t *testing.T, v int, edges []decoding.WeightedEdge, virtuals, defects []int) *Module {
	t.Helper()
	g, err := decoding.NewGraph(v, edges, virtuals)
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}
	m := NewModule(dual.NewModule(dual.NewStore(g, 0)))
	if err := m.LoadDefects(defects); err != nil {
		t.Fatalf("LoadDefects() error = %v", err)
	}
	m.Run()
	return m
}

func subgraphWeight(m *Module, edges []decoding.WeightedEdge) decoding.Weight {
	var w decoding.Weight
	for _, e := range m.Subgraph() {
		w += edges[e].Weight
	}
	return w
}

func assertParity(t *testing.T, m *Module, v int, edges []decoding.WeightedEdge, virtuals, defects []int) {
	t.Helper()
	isVirtual := make(map[int]bool)
	for _, x := range virtuals {
		isVirtual[x] = true
	}
	isDefect := make(map[int]bool)
	for _, x := range defects {
		isDefect[x] = true
	}
	degree := make([]int, v)
	for _, e := range m.Subgraph() {
		degree[edges[e].Left]++
		degree[edges[e].Right]++
	}
	for x := 0; x < v; x++ {
		if isVirtual[x] {
			continue
		}
		want := 0
		if isDefect[x] {
			want = 1
		}
		if degree[x]%2 != want {
			t.Errorf("vertex %d has parity %d, want %d (subgraph %v)", x, degree[x]%2, want, m.Subgraph())
		}
	}
}

func TestMatchThroughChain(t *testing.T) {
	// two defects far apart on a weighted chain: the cheap four-edge
	// path beats the three-edge detour through the boundary
	edges := []decoding.WeightedEdge{
		{Left: 0, Right: 1, Weight: 1000},
		{Left: 1, Right: 2, Weight: 666},
		{Left: 2, Right: 3, Weight: 666},
		{Left: 3, Right: 4, Weight: 666},
		{Left: 4, Right: 5, Weight: 666},
		{Left: 5, Right: 6, Weight: 1000},
		{Left: 6, Right: 7, Weight: 1000},
	}
	m := solve(t, 8, edges, []int{0, 7}, []int{1, 5})
	got := m.Subgraph()
	want := []int{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("Subgraph() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Subgraph() = %v, want %v", got, want)
		}
	}
	if w := subgraphWeight(m, edges); w != 2664 {
		t.Errorf("subgraph weight = %d, want 2664", w)
	}
	pm := m.PerfectMatching(decoding.NewSyndromePattern(1, 5))
	if len(pm.PeerMatchings) != 1 || pm.PeerMatchings[0] != [2]int{0, 1} {
		t.Errorf("PeerMatchings = %v, want [[0 1]]", pm.PeerMatchings)
	}
	if len(pm.VirtualMatchings) != 0 {
		t.Errorf("VirtualMatchings = %v, want empty", pm.VirtualMatchings)
	}
}

func TestBlossomFormation(t *testing.T) {
	// five defects on an odd cycle with one cheap boundary exit:
	// a blossom forms, two adjacent pairs match inside the cycle and
	// the fifth defect leaves through the virtual vertex
	edges := []decoding.WeightedEdge{
		{Left: 0, Right: 1, Weight: 2},
		{Left: 1, Right: 2, Weight: 2},
		{Left: 2, Right: 3, Weight: 2},
		{Left: 3, Right: 4, Weight: 2},
		{Left: 4, Right: 0, Weight: 2},
		{Left: 0, Right: 5, Weight: 1},
	}
	defects := []int{0, 1, 2, 3, 4}
	m := solve(t, 6, edges, []int{5}, defects)
	assertParity(t, m, 6, edges, []int{5}, defects)
	if w := subgraphWeight(m, edges); w != 5 {
		t.Errorf("subgraph weight = %d, want 5 (%v)", w, m.Subgraph())
	}
	pm := m.PerfectMatching(decoding.NewSyndromePattern(defects...))
	if len(pm.PeerMatchings) != 2 || len(pm.VirtualMatchings) != 1 {
		t.Errorf("matching = %+v, want two pairs and one virtual match", pm)
	}
	if pm.VirtualMatchings[0][1] != 5 {
		t.Errorf("virtual match = %v, want through vertex 5", pm.VirtualMatchings[0])
	}
}

func TestBlossomExpansion(t *testing.T) {
	// a triangle blossom gets matched, then a later tree pulls it in
	// as a shrinking node and drives its dual back to zero, forcing an
	// expansion (and, with the inner duals at zero, conflicts through
	// zero-radius vertices)
	edges := []decoding.WeightedEdge{
		{Left: 0, Right: 1, Weight: 2},   // e0 triangle
		{Left: 1, Right: 2, Weight: 2},   // e1 triangle
		{Left: 0, Right: 2, Weight: 2},   // e2 triangle
		{Left: 0, Right: 3, Weight: 8},   // e3 triangle to defect 3
		{Left: 3, Right: 4, Weight: 100}, // e4 defect 3 to boundary
		{Left: 2, Right: 5, Weight: 12},  // e5 triangle to defect 5
		{Left: 5, Right: 6, Weight: 100}, // e6 defect 5 to boundary
	}
	virtuals := []int{4, 6}
	defects := []int{0, 1, 2, 3, 5}
	m := solve(t, 7, edges, virtuals, defects)
	assertParity(t, m, 7, edges, virtuals, defects)
	pm := m.PerfectMatching(decoding.NewSyndromePattern(defects...))
	if got := len(pm.PeerMatchings)*2 + len(pm.VirtualMatchings); got != 5 {
		t.Errorf("matching covers %d defects, want 5: %+v", got, pm)
	}
}

func TestErasedEdgeMatchesFree(t *testing.T) {
	g, err := decoding.NewGraph(3, []decoding.WeightedEdge{
		{Left: 0, Right: 1, Weight: 4},
		{Left: 1, Right: 2, Weight: 4},
	}, []int{2})
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}
	store := dual.NewStore(g, 0)
	if err := store.LoadWeights(&decoding.SyndromePattern{Erasures: []int{0}}); err != nil {
		t.Fatalf("LoadWeights() error = %v", err)
	}
	m := NewModule(dual.NewModule(store))
	if err := m.LoadDefects([]int{0, 1}); err != nil {
		t.Fatalf("LoadDefects() error = %v", err)
	}
	m.Run()
	got := m.Subgraph()
	if len(got) != 1 || got[0] != 0 {
		t.Errorf("Subgraph() = %v, want the erased edge only", got)
	}
}

func TestMaxTreeSizeCollapsesToCluster(t *testing.T) {
	// with the tightest bound, every growing structure collapses; the
	// result is still a valid parity subgraph, just not necessarily
	// minimum weight
	edges := []decoding.WeightedEdge{
		{Left: 0, Right: 1, Weight: 2},
		{Left: 1, Right: 2, Weight: 2},
		{Left: 2, Right: 3, Weight: 2},
		{Left: 3, Right: 4, Weight: 2},
		{Left: 4, Right: 5, Weight: 2},
	}
	g, err := decoding.NewGraph(6, edges, []int{0, 5})
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}
	defects := []int{1, 2, 3, 4}
	m := NewModule(dual.NewModule(dual.NewStore(g, 0)))
	m.SetMaxTreeSize(2)
	if err := m.LoadDefects(defects); err != nil {
		t.Fatalf("LoadDefects() error = %v", err)
	}
	m.Run()
	assertParity(t, m, 6, edges, []int{0, 5}, defects)
}
