package codes

import (
	"math/rand"
	"testing"
)

func TestRepetitionCodeShape(t *testing.T) {
	c, err := NewRepetitionCode(Config{Distance: 5, Probability: 0.1})
	if err != nil {
		t.Fatalf("NewRepetitionCode() error = %v", err)
	}
	ini := c.Initializer()
	if ini.VertexNum != 6 {
		t.Errorf("VertexNum = %d, want 6", ini.VertexNum)
	}
	if len(ini.WeightedEdges) != 5 {
		t.Errorf("edges = %d, want 5", len(ini.WeightedEdges))
	}
	if len(ini.VirtualVertices) != 2 || ini.VirtualVertices[0] != 0 || ini.VirtualVertices[1] != 5 {
		t.Errorf("virtuals = %v, want [0 5]", ini.VirtualVertices)
	}
	for _, e := range ini.WeightedEdges {
		if e.Weight <= 0 || e.Weight%2 != 0 {
			t.Errorf("edge weight %d is not a positive even weight", e.Weight)
		}
	}
	if _, err := ini.Graph(); err != nil {
		t.Errorf("generated graph invalid: %v", err)
	}
}

func TestPlanarCodeBuildsValidGraph(t *testing.T) {
	c, err := NewPlanarCode(Config{Distance: 5, Probability: 0.05})
	if err != nil {
		t.Fatalf("NewPlanarCode() error = %v", err)
	}
	if _, err := c.Initializer().Graph(); err != nil {
		t.Fatalf("generated graph invalid: %v", err)
	}
	if len(c.Positions()) != c.Initializer().VertexNum {
		t.Errorf("positions %d != vertices %d", len(c.Positions()), c.Initializer().VertexNum)
	}
}

func TestPhenomenologicalLayout(t *testing.T) {
	c, err := NewPhenomenologicalPlanarCode(Config{Distance: 3, Rounds: 4, Probability: 0.02})
	if err != nil {
		t.Fatalf("NewPhenomenologicalPlanarCode() error = %v", err)
	}
	ini := c.Initializer()
	if ini.VertexNum != 4*c.LayerSize() {
		t.Errorf("VertexNum = %d, want %d", ini.VertexNum, 4*c.LayerSize())
	}
	if _, err := ini.Graph(); err != nil {
		t.Fatalf("generated graph invalid: %v", err)
	}
	// time edges stay within the same (i, j) coordinate
	for _, e := range ini.WeightedEdges {
		if e.Right-e.Left == c.LayerSize() && e.Left%c.LayerSize() != e.Right%c.LayerSize() {
			t.Errorf("time edge (%d, %d) not vertical", e.Left, e.Right)
		}
	}
}

func TestSampleSyndromeParity(t *testing.T) {
	c, err := NewPlanarCode(Config{Distance: 5, Probability: 0.1})
	if err != nil {
		t.Fatalf("NewPlanarCode() error = %v", err)
	}
	rng := rand.New(rand.NewSource(7))
	pattern, errorEdges := SampleSyndrome(c, rng)
	// replaying the error edges must reproduce the defect set
	ini := c.Initializer()
	parity := make([]bool, ini.VertexNum)
	for _, e := range errorEdges {
		parity[ini.WeightedEdges[e].Left] = !parity[ini.WeightedEdges[e].Left]
		parity[ini.WeightedEdges[e].Right] = !parity[ini.WeightedEdges[e].Right]
	}
	g, err := ini.Graph()
	if err != nil {
		t.Fatalf("Graph() error = %v", err)
	}
	want := map[int]bool{}
	for v, odd := range parity {
		if odd && !g.IsVirtual(v) {
			want[v] = true
		}
	}
	if len(want) != len(pattern.DefectVertices) {
		t.Fatalf("defects = %v, want %d vertices", pattern.DefectVertices, len(want))
	}
	for _, v := range pattern.DefectVertices {
		if !want[v] {
			t.Errorf("unexpected defect %v", v)
		}
	}
}

func TestTimePartitionCoversAllRounds(t *testing.T) {
	c, err := NewPhenomenologicalPlanarCode(Config{Distance: 3, Rounds: 7, Probability: 0.02})
	if err != nil {
		t.Fatalf("NewPhenomenologicalPlanarCode() error = %v", err)
	}
	cfg, err := TimePartition(c, 4)
	if err != nil {
		t.Fatalf("TimePartition() error = %v", err)
	}
	info, err := cfg.Info()
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.LeafNum() != 4 || info.UnitNum() != 7 {
		t.Errorf("units = %d/%d, want 4 leaves of 7 units", info.LeafNum(), info.UnitNum())
	}
	for v, u := range info.VertexToOwningUnit {
		if u < 0 {
			t.Fatalf("vertex %d unowned", v)
		}
	}
	// partition boundaries land on round boundaries
	for _, p := range cfg.Partitions {
		if p.Start%c.LayerSize() != 0 || p.End%c.LayerSize() != 0 {
			t.Errorf("partition %v does not align with rounds", p)
		}
	}
	if _, err := TimePartition(c, 5); err == nil {
		t.Errorf("TimePartition(5) on 7 rounds should fail")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New("no-such-code", Config{Distance: 3, Probability: 0.1}); err == nil {
		t.Errorf("unknown code type accepted")
	}
	if _, err := NewRepetitionCode(Config{Distance: 4, Probability: 0.1}); err == nil {
		t.Errorf("even distance accepted")
	}
	if _, err := NewRepetitionCode(Config{Distance: 5, Probability: 0.7}); err == nil {
		t.Errorf("probability 0.7 accepted")
	}
}
