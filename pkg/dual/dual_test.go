package dual

import (
	"testing"

	"github.com/qecdec/fusionmatch/pkg/decoding"
)

func mustGraph(t *testing.T, v int, edges []decoding.WeightedEdge, virtuals []int) *decoding.Graph {
	t.Helper()
	g, err := decoding.NewGraph(v, edges, virtuals)
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}
	return g
}

func TestTwoGrowingDefectsConflict(t *testing.T) {
	g := mustGraph(t, 2, []decoding.WeightedEdge{{Left: 0, Right: 1, Weight: 2}}, nil)
	m := NewModule(NewStore(g, 0))
	n0 := m.AddDefect(0)
	n1 := m.AddDefect(1)
	m.SetGrowState(n0, Grow)
	m.SetGrowState(n1, Grow)

	mu := m.ComputeMaximumUpdateLength()
	if mu.Unbounded || mu.Length != 1 {
		t.Fatalf("max update = %+v, want length 1", mu)
	}
	m.Grow(1)
	if n0.Dual != 1 || n1.Dual != 1 {
		t.Fatalf("duals = (%d, %d), want (1, 1)", n0.Dual, n1.Dual)
	}
	l, r := m.EdgeGrowth(0)
	if l != 1 || r != 1 {
		t.Fatalf("edge growth = (%d, %d), want (1, 1)", l, r)
	}
	mu = m.ComputeMaximumUpdateLength()
	if len(mu.Obstacles) != 1 {
		t.Fatalf("obstacles = %v, want one edge conflict", mu.Obstacles)
	}
	o := mu.Obstacles[0]
	if o.Kind != EdgeConflict || o.Edge != 0 {
		t.Errorf("obstacle = %v, want edge_conflict on edge 0", o)
	}
}

func TestVirtualConflict(t *testing.T) {
	g := mustGraph(t, 2, []decoding.WeightedEdge{{Left: 0, Right: 1, Weight: 2}}, []int{1})
	m := NewModule(NewStore(g, 0))
	n := m.AddDefect(0)
	m.SetGrowState(n, Grow)

	mu := m.ComputeMaximumUpdateLength()
	if mu.Length != 2 {
		t.Fatalf("max update = %+v, want length 2", mu)
	}
	m.Grow(2)
	mu = m.ComputeMaximumUpdateLength()
	if len(mu.Obstacles) != 1 || mu.Obstacles[0].Kind != VirtualConflict {
		t.Fatalf("obstacles = %v, want one virtual conflict", mu.Obstacles)
	}
	if mu.Obstacles[0].VirtualVertex != 1 || mu.Obstacles[0].IsMirror {
		t.Errorf("obstacle = %v, want virtual vertex 1, not a mirror", mu.Obstacles[0])
	}
}

func TestRegionClaimAndRetract(t *testing.T) {
	g := mustGraph(t, 4, []decoding.WeightedEdge{
		{Left: 0, Right: 1, Weight: 2},
		{Left: 1, Right: 2, Weight: 2},
		{Left: 2, Right: 3, Weight: 10},
	}, []int{3})
	m := NewModule(NewStore(g, 0))
	n := m.AddDefect(0)
	m.SetGrowState(n, Grow)

	m.Grow(m.ComputeMaximumUpdateLength().Length) // dual 2, claims vertex 1
	if m.VertexOwner(1) != n {
		t.Fatalf("vertex 1 owner = %v, want %v", m.VertexOwner(1), n)
	}
	m.Grow(m.ComputeMaximumUpdateLength().Length) // dual 4, claims vertex 2
	if m.VertexOwner(2) != n || n.Dual != 4 {
		t.Fatalf("vertex 2 owner = %v at dual %d, want %v at 4", m.VertexOwner(2), n.Dual, n)
	}

	// shrinking walks the frontier back in the same steps
	m.SetGrowState(n, Shrink)
	mu := m.ComputeMaximumUpdateLength()
	if mu.Length <= 0 || mu.Length > 2 {
		t.Fatalf("shrink max update = %+v, want 0 < length <= 2", mu)
	}
	m.Grow(mu.Length)
	for n.Dual > 0 {
		mu = m.ComputeMaximumUpdateLength()
		if mu.Unbounded || len(mu.Obstacles) > 0 {
			t.Fatalf("unexpected result while shrinking: %+v (dual %d)", mu, n.Dual)
		}
		m.Grow(mu.Length)
	}
	if m.VertexOwner(1) != nil || m.VertexOwner(2) != nil {
		t.Errorf("vertices not released: owners (%v, %v)", m.VertexOwner(1), m.VertexOwner(2))
	}
	l, r := m.EdgeGrowth(0)
	if l != 0 || r != 0 {
		t.Errorf("edge 0 growth = (%d, %d), want fully ungrown", l, r)
	}
}

func TestZeroWeightErasureClaimsImmediately(t *testing.T) {
	g := mustGraph(t, 3, []decoding.WeightedEdge{
		{Left: 0, Right: 1, Weight: 4},
		{Left: 1, Right: 2, Weight: 4},
	}, nil)
	store := NewStore(g, 0)
	if err := store.LoadWeights(&decoding.SyndromePattern{Erasures: []int{0}}); err != nil {
		t.Fatalf("LoadWeights() error = %v", err)
	}
	m := NewModule(store)
	n0 := m.AddDefect(0)
	n2 := m.AddDefect(2)
	m.SetGrowState(n0, Grow)
	m.SetGrowState(n2, Grow)

	mu := m.ComputeMaximumUpdateLength()
	// the erased edge saturates at zero growth, so vertex 1 joins
	// defect 0's region before any time passes
	if m.VertexOwner(1) != n0 {
		t.Fatalf("vertex 1 owner = %v, want %v", m.VertexOwner(1), n0)
	}
	if mu.Length != 2 {
		t.Fatalf("max update = %+v, want length 2", mu)
	}
}

func TestMirrorActsVirtualUntilEnabled(t *testing.T) {
	g := mustGraph(t, 2, []decoding.WeightedEdge{{Left: 0, Right: 1, Weight: 2}}, nil)
	store := NewStore(g, 3)
	store.SetMirror(1, 2)
	m := NewModule(store)
	n := m.AddDefect(0)
	m.SetGrowState(n, Grow)

	m.Grow(m.ComputeMaximumUpdateLength().Length)
	mu := m.ComputeMaximumUpdateLength()
	if len(mu.Obstacles) != 1 || mu.Obstacles[0].Kind != VirtualConflict || !mu.Obstacles[0].IsMirror {
		t.Fatalf("obstacles = %v, want mirror virtual conflict", mu.Obstacles)
	}

	store.EnableUnit(2, true)
	// once enabled the mirror is an ordinary vertex: the saturated edge
	// claims it on the next normalization
	mu = m.ComputeMaximumUpdateLength()
	if m.VertexOwner(1) != n {
		t.Fatalf("vertex 1 owner = %v after enabling, want %v", m.VertexOwner(1), n)
	}
	if !mu.Unbounded {
		t.Fatalf("max update = %+v, want unbounded (nothing constrains the region)", mu)
	}
}

func TestClearRecyclesState(t *testing.T) {
	g := mustGraph(t, 2, []decoding.WeightedEdge{{Left: 0, Right: 1, Weight: 2}}, []int{1})
	store := NewStore(g, 0)
	m := NewModule(store)
	n := m.AddDefect(0)
	m.SetGrowState(n, Grow)
	m.Grow(m.ComputeMaximumUpdateLength().Length)

	m.Clear()
	store.Clear()
	if len(m.Nodes()) != 0 {
		t.Fatalf("Nodes() not empty after clear")
	}
	if store.Vertex(0).Owner != nil || store.Vertex(0).IsDefect {
		t.Errorf("vertex 0 state survived clear: %+v", store.Vertex(0))
	}
	if l, r := m.EdgeGrowth(0); l != 0 || r != 0 {
		t.Errorf("edge growth survived clear: (%d, %d)", l, r)
	}

	// the same solve replays identically
	n = m.AddDefect(0)
	m.SetGrowState(n, Grow)
	if mu := m.ComputeMaximumUpdateLength(); mu.Length != 2 {
		t.Errorf("replayed max update = %+v, want length 2", mu)
	}
}
