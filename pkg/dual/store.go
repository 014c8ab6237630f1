package dual

import (
	"fmt"

	"github.com/qecdec/fusionmatch/pkg/decoding"
)

// VertexState is the per-vertex record of a solve. The zero value is
// an untouched vertex.
type VertexState struct {
	// Owner is the deepest dual node whose region holds the vertex,
	// or nil. The outermost owner is Owner.Outermost().
	Owner *Node
	// ClaimEdge is the saturated edge through which the owner's region
	// reached the vertex, or -1 for region seeds. Claim edges chain
	// every claimed vertex back to a defect; the subgraph builder
	// walks them.
	ClaimEdge int
	// IsDefect marks the vertex as part of the current syndrome.
	IsDefect bool
	// MirrorUnit is the partition unit owning this interface vertex,
	// or -1. While the unit is disabled the vertex behaves like a
	// virtual vertex. MirrorUnit survives Clear; it belongs to the
	// partition, not the solve.
	MirrorUnit int

	touched bool
}

// EdgeState is the per-edge record of a solve: how far each side has
// grown, plus the per-solve weight override installed by erasures and
// dynamic weights. The zero value is an untouched edge.
type EdgeState struct {
	LeftGrown  decoding.Weight
	RightGrown decoding.Weight

	overrideWeight decoding.Weight
	overridden     bool
	touched        bool
}

// Store holds the graph-indexed solve state shared by every dual
// module of one solver: vertex ownership, edge growth, per-solve
// weights and the enable flags of partition units. The serial solver
// uses one store with one module; the parallel solver shares one store
// across all per-unit modules, relying on unit ownership to keep
// writers disjoint.
type Store struct {
	graph    *decoding.Graph
	vertices []VertexState
	edges    []EdgeState

	// unitEnabled[u] reports whether partition unit u has been fused;
	// mirror vertices of a disabled unit act as virtual vertices.
	unitEnabled []bool

	// overrideEdges lists the edges carrying per-solve weight
	// overrides. Overrides are installed before workers start, so the
	// store may track them itself; growth touches are tracked by the
	// single-writer modules instead.
	overrideEdges []int
}

// NewStore creates a solve-state store over the graph. unitNum is the
// number of partition units, or 0 for serial use.
func NewStore(g *decoding.Graph, unitNum int) *Store {
	s := &Store{
		graph:       g,
		vertices:    make([]VertexState, g.VertexNum()),
		edges:       make([]EdgeState, g.EdgeNum()),
		unitEnabled: make([]bool, unitNum),
	}
	for i := range s.vertices {
		s.vertices[i].ClaimEdge = -1
		s.vertices[i].MirrorUnit = -1
	}
	return s
}

// Graph returns the underlying decoding graph.
func (s *Store) Graph() *decoding.Graph { return s.graph }

// Vertex returns the mutable per-vertex record.
func (s *Store) Vertex(v int) *VertexState { return &s.vertices[v] }

// Edge returns the mutable per-edge record.
func (s *Store) Edge(e int) *EdgeState { return &s.edges[e] }

// Weight returns the effective weight of edge e for the current solve:
// the dynamic override if one is installed, else the graph weight.
func (s *Store) Weight(e int) decoding.Weight {
	if s.edges[e].overridden {
		return s.edges[e].overrideWeight
	}
	return s.graph.Weight(e)
}

// OverrideWeight installs a per-solve weight on edge e. Erasures are
// loaded as overrides of weight 0.
func (s *Store) OverrideWeight(e int, w decoding.Weight) error {
	if e < 0 || e >= s.graph.EdgeNum() {
		return fmt.Errorf("dynamic weight edge %d: %w", e, decoding.ErrEdgeOutOfRange)
	}
	if w < 0 {
		return fmt.Errorf("dynamic weight edge %d value %d: %w", e, w, decoding.ErrNegativeWeight)
	}
	if !s.edges[e].overridden {
		s.overrideEdges = append(s.overrideEdges, e)
	}
	s.edges[e].overrideWeight = w
	s.edges[e].overridden = true
	return nil
}

// LoadWeights installs the per-solve weight channels of a syndrome:
// every erasure as a zero weight, then the explicit dynamic weights.
func (s *Store) LoadWeights(pattern *decoding.SyndromePattern) error {
	for _, e := range pattern.Erasures {
		if err := s.OverrideWeight(e, 0); err != nil {
			return err
		}
	}
	for _, dw := range pattern.DynamicWeights {
		if err := s.OverrideWeight(dw.EdgeIndex, dw.Weight); err != nil {
			return err
		}
	}
	return nil
}

// SetMirror marks v as an interface vertex owned by partition unit u.
// Mirrors persist across solves.
func (s *Store) SetMirror(v, u int) { s.vertices[v].MirrorUnit = u }

// EnableUnit flips the enable flag of partition unit u. Enabling turns
// the unit's mirror vertices from virtual-like boundaries into real
// vertices.
func (s *Store) EnableUnit(u int, enabled bool) { s.unitEnabled[u] = enabled }

// UnitEnabled reports the enable flag of partition unit u.
func (s *Store) UnitEnabled(u int) bool { return s.unitEnabled[u] }

// IsBoundary reports whether v currently absorbs matches without a
// parity constraint: a virtual vertex, or a mirror vertex whose unit
// has not been fused yet.
func (s *Store) IsBoundary(v int) bool {
	if s.graph.IsVirtual(v) {
		return true
	}
	if u := s.vertices[v].MirrorUnit; u >= 0 {
		return !s.unitEnabled[u]
	}
	return false
}

// IsMirror reports whether v is an interface mirror vertex.
func (s *Store) IsMirror(v int) bool { return s.vertices[v].MirrorUnit >= 0 }

// Tight reports whether edge e is saturated. Edges interior to one
// region can overshoot their weight, hence the >=.
func (s *Store) Tight(e int) bool {
	return s.edges[e].LeftGrown+s.edges[e].RightGrown >= s.Weight(e)
}

// markVertex flags a vertex as touched, reporting whether this is the
// first touch. The calling module records first touches for recycling.
func (s *Store) markVertex(v int) bool {
	if s.vertices[v].touched {
		return false
	}
	s.vertices[v].touched = true
	return true
}

// markEdge flags an edge as touched, reporting whether this is the
// first touch.
func (s *Store) markEdge(e int) bool {
	if s.edges[e].touched {
		return false
	}
	s.edges[e].touched = true
	return true
}

// addGrown grows one side of an edge, identified by which endpoint the
// growth comes from.
func (s *Store) addGrown(e, fromVertex int, delta decoding.Weight) {
	left, right := s.graph.Endpoints(e)
	switch fromVertex {
	case left:
		s.edges[e].LeftGrown += delta
		if s.edges[e].LeftGrown < 0 {
			panic(fmt.Sprintf("dual: edge %d left growth below zero", e))
		}
	case right:
		s.edges[e].RightGrown += delta
		if s.edges[e].RightGrown < 0 {
			panic(fmt.Sprintf("dual: edge %d right growth below zero", e))
		}
	default:
		panic(fmt.Sprintf("dual: vertex %d not an endpoint of edge %d", fromVertex, e))
	}
}

// grownFrom returns the growth of the side of e owned by fromVertex.
func (s *Store) grownFrom(e, fromVertex int) decoding.Weight {
	left, _ := s.graph.Endpoints(e)
	if fromVertex == left {
		return s.edges[e].LeftGrown
	}
	return s.edges[e].RightGrown
}

// clearVertices and clearEdges reset the given records; the modules
// that touched them call this from their own Clear.
func (s *Store) clearVertices(vertices []int) {
	for _, v := range vertices {
		mirror := s.vertices[v].MirrorUnit
		s.vertices[v] = VertexState{ClaimEdge: -1, MirrorUnit: mirror}
	}
}

func (s *Store) clearEdges(edges []int) {
	for _, e := range edges {
		overridden, w := s.edges[e].overridden, s.edges[e].overrideWeight
		s.edges[e] = EdgeState{overridden: overridden, overrideWeight: w, touched: overridden}
	}
}

// Clear resets the per-solve weight overrides and unit enable flags.
// Growth state is recycled by each module's Clear; call those first.
func (s *Store) Clear() {
	for _, e := range s.overrideEdges {
		s.edges[e] = EdgeState{}
	}
	s.overrideEdges = s.overrideEdges[:0]
	for i := range s.unitEnabled {
		s.unitEnabled[i] = false
	}
}
