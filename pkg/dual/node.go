package dual

import (
	"fmt"

	"github.com/qecdec/fusionmatch/pkg/decoding"
)

// GrowState tells how a dual node's variable changes when time
// advances uniformly.
type GrowState int8

const (
	// Stay freezes the dual variable.
	Stay GrowState = iota
	// Grow increases the dual variable with time.
	Grow
	// Shrink decreases the dual variable with time.
	Shrink
)

func (s GrowState) String() string {
	switch s {
	case Stay:
		return "stay"
	case Grow:
		return "grow"
	case Shrink:
		return "shrink"
	}
	return fmt.Sprintf("GrowState(%d)", int8(s))
}

// NodeKind distinguishes the two shapes of dual nodes.
type NodeKind int8

const (
	// Syndrome nodes wrap a single defect vertex.
	Syndrome NodeKind = iota
	// Blossom nodes wrap an odd cycle of child dual nodes.
	Blossom
)

// CycleLink is one tight connection of a blossom cycle, joining
// Cycle[i] to Cycle[(i+1) % len]. Usually a single saturated edge;
// when two regions met through a zero-dual syndrome vertex the
// connection is the two-edge path Edge–Via–SecondEdge. The vertex
// fields record which underlying vertices the connection touches on
// each side; they anchor the parity paths chosen when the blossom is
// unfolded into the subgraph.
type CycleLink struct {
	Edge       int
	FromVertex int // endpoint inside Cycle[i]
	ToVertex   int // endpoint inside Cycle[(i+1) % len]

	// Via and SecondEdge describe a through connection: FromVertex
	// -Edge- Via -SecondEdge- ToVertex. Via is -1 for a plain edge.
	Via        int
	SecondEdge int
}

// NewCycleLink builds a plain single-edge link.
func NewCycleLink(edge, from, to int) CycleLink {
	return CycleLink{Edge: edge, FromVertex: from, ToVertex: to, Via: -1, SecondEdge: -1}
}

// Reverse flips the link's orientation.
func (l CycleLink) Reverse() CycleLink {
	r := CycleLink{Edge: l.Edge, FromVertex: l.ToVertex, ToVertex: l.FromVertex, Via: l.Via, SecondEdge: l.SecondEdge}
	if l.Via >= 0 {
		r.Edge, r.SecondEdge = l.SecondEdge, l.Edge
	}
	return r
}

// boundaryEdge is one frontier entry of a node's region: an edge with
// exactly one endpoint (regionVertex) currently claimed by the node.
// An edge interior to a region appears once per endpoint, which is how
// a region wrapping around a cycle keeps growing both sides of an
// already-saturated edge.
type boundaryEdge struct {
	edge         int
	regionVertex int
	farVertex    int
}

// Node is one node of the blossom forest: a grown region on the
// decoding graph with a non-negative dual variable.
//
// Nodes are created by a [Module] and referenced by pointer; Index is
// only a per-module display and tie-breaking rank. A node inside a
// larger blossom has Parent set and is frozen until the blossom
// expands.
type Node struct {
	Index int
	Kind  NodeKind

	// Seed is the defect vertex of a syndrome node.
	Seed int

	// Cycle and Links describe a blossom: an odd-length sequence of
	// child nodes and the tight edges joining consecutive children.
	// For a collapsed cluster (see Cluster) Links is empty.
	Cycle []*Node
	Links []CycleLink

	// Cluster marks a blossom created by collapsing an oversized
	// alternating tree. Its members are not a cycle; parity inside is
	// recovered with a spanning-tree pass instead of cycle unfolding.
	Cluster bool

	Parent *Node
	Dual   decoding.Weight
	Grow   GrowState

	// region lists the vertices claimed directly by this node, seed
	// first for syndrome nodes. Vertices claimed by children stay in
	// the children's regions.
	region   []int
	boundary []boundaryEdge
	removed  bool
}

// Outermost walks parent pointers to the top of the blossom stack.
func (n *Node) Outermost() *Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// IsOutermost reports whether the node is not inside a blossom.
func (n *Node) IsOutermost() bool { return n.Parent == nil }

// Removed reports whether the node was dissolved by a blossom
// expansion; dangling references to it must not be used.
func (n *Node) Removed() bool { return n.removed }

// BoundaryEdges returns the edge indices on the node's frontier, in
// frontier order. Display use only.
func (n *Node) BoundaryEdges() []int {
	edges := make([]int, len(n.boundary))
	for i, be := range n.boundary {
		edges[i] = be.edge
	}
	return edges
}

// EachVertex visits every vertex inside the node: its own region plus,
// transitively, the regions of its blossom children.
func (n *Node) EachVertex(visit func(v int)) {
	for _, v := range n.region {
		visit(v)
	}
	for _, child := range n.Cycle {
		child.EachVertex(visit)
	}
}

// EachDefect visits the defect vertices inside the node.
func (n *Node) EachDefect(visit func(v int)) {
	if n.Kind == Syndrome {
		visit(n.Seed)
		return
	}
	for _, child := range n.Cycle {
		child.EachDefect(visit)
	}
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.Kind == Syndrome {
		return fmt.Sprintf("syndrome(%d, seed=%d, d=%d, %s)", n.Index, n.Seed, n.Dual, n.Grow)
	}
	return fmt.Sprintf("blossom(%d, |cycle|=%d, d=%d, %s)", n.Index, len(n.Cycle), n.Dual, n.Grow)
}
