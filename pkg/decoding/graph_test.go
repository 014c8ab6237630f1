package decoding

import (
	"errors"
	"testing"
)

func TestNewGraph_Basic(t *testing.T) {
	g, err := NewGraph(3, []WeightedEdge{{0, 1, 2}, {1, 2, 4}}, []int{2})
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}
	if g.VertexNum() != 3 {
		t.Errorf("VertexNum() = %d, want 3", g.VertexNum())
	}
	if g.EdgeNum() != 2 {
		t.Errorf("EdgeNum() = %d, want 2", g.EdgeNum())
	}
	if !g.IsVirtual(2) || g.IsVirtual(0) {
		t.Errorf("IsVirtual: got (%v, %v), want (false, true)", g.IsVirtual(0), g.IsVirtual(2))
	}
	if got := g.Neighbors(1); len(got) != 2 {
		t.Errorf("Neighbors(1) = %v, want two edges", got)
	}
	if l, r := g.Endpoints(1); l != 1 || r != 2 {
		t.Errorf("Endpoints(1) = (%d, %d), want (1, 2)", l, r)
	}
	if g.OtherEndpoint(0, 1) != 0 {
		t.Errorf("OtherEndpoint(0, 1) = %d, want 0", g.OtherEndpoint(0, 1))
	}
}

func TestNewGraph_ConstructionErrors(t *testing.T) {
	tests := []struct {
		name     string
		vertices int
		edges    []WeightedEdge
		virtuals []int
		wantErr  error
	}{
		{"self loop", 2, []WeightedEdge{{0, 0, 1}}, nil, ErrSelfLoop},
		{"vertex out of range", 2, []WeightedEdge{{0, 2, 1}}, nil, ErrVertexOutOfRange},
		{"negative weight", 2, []WeightedEdge{{0, 1, -1}}, nil, ErrNegativeWeight},
		{"virtual out of range", 2, []WeightedEdge{{0, 1, 1}}, []int{5}, ErrVertexOutOfRange},
		{"duplicate virtual", 2, []WeightedEdge{{0, 1, 1}}, []int{1, 1}, ErrDuplicateVirtual},
		{"isolated real vertex", 3, []WeightedEdge{{0, 1, 1}}, nil, ErrIsolatedVertex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.vertices, tt.edges, tt.virtuals)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewGraph() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetWeight(t *testing.T) {
	g, err := NewGraph(2, []WeightedEdge{{0, 1, 2}}, nil)
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}
	if err := g.SetWeight(0, 10); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	if g.Weight(0) != 10 {
		t.Errorf("Weight(0) = %d, want 10", g.Weight(0))
	}
	if err := g.SetWeight(0, -1); !errors.Is(err, ErrNegativeWeight) {
		t.Errorf("SetWeight(-1) error = %v, want ErrNegativeWeight", err)
	}
	if err := g.SetWeight(7, 1); !errors.Is(err, ErrEdgeOutOfRange) {
		t.Errorf("SetWeight(7) error = %v, want ErrEdgeOutOfRange", err)
	}
}

func TestIndexRange_Fuse(t *testing.T) {
	left := NewRange(0, 3)
	right := NewRange(4, 7)
	whole, iface := left.Fuse(right)
	if whole != NewRange(0, 7) {
		t.Errorf("whole = %v, want [0, 7)", whole)
	}
	if iface != NewRange(3, 4) {
		t.Errorf("interface = %v, want [3, 4)", iface)
	}
	if !iface.Contains(3) || iface.Contains(4) || iface.Len() != 1 {
		t.Errorf("interface range misbehaves: %v", iface)
	}
}

func TestIndexRange_JSONRoundTrip(t *testing.T) {
	r := NewRange(2, 9)
	data, err := r.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if string(data) != "[2,9]" {
		t.Errorf("MarshalJSON() = %s, want [2,9]", data)
	}
	var back IndexRange
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON() error = %v", err)
	}
	if back != r {
		t.Errorf("round trip = %v, want %v", back, r)
	}
}
