package decoding

import (
	"errors"
	"fmt"
)

var (
	// ErrSelfLoop is returned by [NewGraph] when an edge connects a
	// vertex to itself. Decoding graphs must be simple.
	ErrSelfLoop = errors.New("edge endpoints must differ")

	// ErrVertexOutOfRange is returned by [NewGraph] when an edge or a
	// virtual-vertex declaration references an index outside
	// [0, VertexNum).
	ErrVertexOutOfRange = errors.New("vertex index out of range")

	// ErrNegativeWeight is returned by [NewGraph] and [Graph.SetWeight]
	// when a weight is negative. Dual variables grow from zero, so a
	// negative weight can never be saturated.
	ErrNegativeWeight = errors.New("edge weight must be non-negative")

	// ErrDuplicateVirtual is returned by [NewGraph] when the same
	// vertex is declared virtual more than once.
	ErrDuplicateVirtual = errors.New("duplicate virtual vertex")

	// ErrIsolatedVertex is returned by [NewGraph] when a real
	// (non-virtual) vertex has no incident edge. Such a vertex could
	// never satisfy a parity constraint.
	ErrIsolatedVertex = errors.New("real vertex has no incident edge")

	// ErrEdgeOutOfRange is returned by [Graph.SetWeight] when the edge
	// index is outside [0, EdgeNum).
	ErrEdgeOutOfRange = errors.New("edge index out of range")
)

// WeightedEdge is an unordered vertex pair with a non-negative weight.
// It is the wire shape used by [SolverInitializer].
type WeightedEdge struct {
	Left   int    `json:"l"`
	Right  int    `json:"r"`
	Weight Weight `json:"w"`
}

// Graph is the sparse decoding graph shared by all solver variants.
// Topology is immutable after construction; weights may be changed
// between solves via SetWeight. Graph is not safe for concurrent
// mutation, but concurrent reads are fine and solves never mutate it.
type Graph struct {
	vertexNum int
	edges     []WeightedEdge
	adjacency [][]int // vertex -> incident edge indices
	virtual   []bool
	virtuals  []int
}

// NewGraph builds a decoding graph from a vertex count, a weighted
// edge list and the set of virtual (boundary) vertices. Construction
// is O(V+E). The edge slice is copied; the caller may reuse it.
func NewGraph(vertexNum int, edges []WeightedEdge, virtualVertices []int) (*Graph, error) {
	g := &Graph{
		vertexNum: vertexNum,
		edges:     make([]WeightedEdge, len(edges)),
		adjacency: make([][]int, vertexNum),
		virtual:   make([]bool, vertexNum),
		virtuals:  make([]int, 0, len(virtualVertices)),
	}
	for _, v := range virtualVertices {
		if v < 0 || v >= vertexNum {
			return nil, fmt.Errorf("virtual vertex %d: %w", v, ErrVertexOutOfRange)
		}
		if g.virtual[v] {
			return nil, fmt.Errorf("virtual vertex %d: %w", v, ErrDuplicateVirtual)
		}
		g.virtual[v] = true
		g.virtuals = append(g.virtuals, v)
	}
	for i, e := range edges {
		if e.Left == e.Right {
			return nil, fmt.Errorf("edge %d (%d, %d): %w", i, e.Left, e.Right, ErrSelfLoop)
		}
		if e.Left < 0 || e.Left >= vertexNum || e.Right < 0 || e.Right >= vertexNum {
			return nil, fmt.Errorf("edge %d (%d, %d): %w", i, e.Left, e.Right, ErrVertexOutOfRange)
		}
		if e.Weight < 0 {
			return nil, fmt.Errorf("edge %d weight %d: %w", i, e.Weight, ErrNegativeWeight)
		}
		g.edges[i] = e
		g.adjacency[e.Left] = append(g.adjacency[e.Left], i)
		g.adjacency[e.Right] = append(g.adjacency[e.Right], i)
	}
	for v := 0; v < vertexNum; v++ {
		if !g.virtual[v] && len(g.adjacency[v]) == 0 {
			return nil, fmt.Errorf("vertex %d: %w", v, ErrIsolatedVertex)
		}
	}
	return g, nil
}

// VertexNum returns the number of vertices, virtual ones included.
func (g *Graph) VertexNum() int { return g.vertexNum }

// EdgeNum returns the number of edges.
func (g *Graph) EdgeNum() int { return len(g.edges) }

// Neighbors returns the incident edge indices of v. The returned slice
// is a read-only view into the graph; callers must not modify it.
func (g *Graph) Neighbors(v int) []int { return g.adjacency[v] }

// Weight returns the weight of edge e.
func (g *Graph) Weight(e int) Weight { return g.edges[e].Weight }

// Endpoints returns the two endpoints of edge e in declaration order.
func (g *Graph) Endpoints(e int) (left, right int) {
	return g.edges[e].Left, g.edges[e].Right
}

// Edge returns the full weighted-edge record of e.
func (g *Graph) Edge(e int) WeightedEdge { return g.edges[e] }

// OtherEndpoint returns the endpoint of e that is not v.
// It panics if v is not an endpoint of e.
func (g *Graph) OtherEndpoint(e, v int) int {
	switch v {
	case g.edges[e].Left:
		return g.edges[e].Right
	case g.edges[e].Right:
		return g.edges[e].Left
	}
	panic(fmt.Sprintf("decoding: vertex %d is not an endpoint of edge %d", v, e))
}

// IsVirtual reports whether v is a virtual (boundary) vertex.
func (g *Graph) IsVirtual(v int) bool { return g.virtual[v] }

// VirtualVertices returns the virtual vertex indices in declaration
// order. The returned slice is a read-only view.
func (g *Graph) VirtualVertices() []int { return g.virtuals }

// SetWeight changes the weight of edge e. It is only legal between
// solves; a solve in flight reads weights without synchronization.
func (g *Graph) SetWeight(e int, w Weight) error {
	if e < 0 || e >= len(g.edges) {
		return fmt.Errorf("edge %d: %w", e, ErrEdgeOutOfRange)
	}
	if w < 0 {
		return fmt.Errorf("edge %d weight %d: %w", e, w, ErrNegativeWeight)
	}
	g.edges[e].Weight = w
	return nil
}
