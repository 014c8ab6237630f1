package dual

import (
	"fmt"
	"sort"

	"github.com/qecdec/fusionmatch/pkg/decoding"
)

// ObstacleKind enumerates the events that stop uniform dual growth.
// The declaration order is the canonical resolution order.
type ObstacleKind int8

const (
	// EdgeConflict: a tight edge joins two outermost nodes whose
	// combined growth would violate the edge's slack.
	EdgeConflict ObstacleKind = iota
	// BlossomNeedExpand: a shrinking blossom's dual reached zero.
	BlossomNeedExpand
	// VirtualConflict: a growing node saturated an edge into a
	// virtual vertex or a disabled interface mirror.
	VirtualConflict
)

func (k ObstacleKind) String() string {
	switch k {
	case EdgeConflict:
		return "edge_conflict"
	case BlossomNeedExpand:
		return "blossom_need_expand"
	case VirtualConflict:
		return "virtual_conflict"
	}
	return fmt.Sprintf("ObstacleKind(%d)", int8(k))
}

// Obstacle is one zero-length event. Which fields are meaningful
// depends on Kind:
//
//   - EdgeConflict: Edge, Left (the growing reporter) and Right. When
//     two regions meet through a zero-dual syndrome vertex, Via names
//     that vertex's node and SecondEdge the second leg: Left touches
//     Edge, Right touches SecondEdge.
//   - BlossomNeedExpand: Node.
//   - VirtualConflict: Edge, Left and VirtualVertex (IsMirror tells a
//     disabled interface mirror apart from a true virtual vertex).
type Obstacle struct {
	Kind          ObstacleKind
	Edge          int
	Left          *Node
	Right         *Node
	Node          *Node
	VirtualVertex int
	IsMirror      bool
	Via           *Node
	SecondEdge    int
}

func (o Obstacle) String() string {
	switch o.Kind {
	case EdgeConflict:
		return fmt.Sprintf("edge_conflict(edge=%d, %v, %v)", o.Edge, o.Left, o.Right)
	case BlossomNeedExpand:
		return fmt.Sprintf("blossom_need_expand(%v)", o.Node)
	case VirtualConflict:
		return fmt.Sprintf("virtual_conflict(edge=%d, %v, vertex=%d)", o.Edge, o.Left, o.VirtualVertex)
	}
	return "obstacle(?)"
}

// MaxUpdate is the result of one maximum-update-length computation.
// Exactly one of the three shapes holds: Unbounded (no growth
// constraint remains), a positive Length, or Length zero with a
// non-empty, canonically ordered obstacle list.
type MaxUpdate struct {
	Length    decoding.Weight
	Unbounded bool
	Obstacles []Obstacle
}

// sortKey ranks obstacles by kind, then by edge or node index, giving
// the deterministic consumption order promised to the primal module.
func (o Obstacle) sortKey() (int, int) {
	switch o.Kind {
	case BlossomNeedExpand:
		return int(o.Kind), o.Node.Index
	default:
		return int(o.Kind), o.Edge
	}
}

// canonicalize sorts obstacles into the deterministic order and drops
// duplicate edge conflicts discovered from both sides of an edge.
func canonicalize(obstacles []Obstacle) []Obstacle {
	sort.SliceStable(obstacles, func(i, j int) bool {
		ki, si := obstacles[i].sortKey()
		kj, sj := obstacles[j].sortKey()
		if ki != kj {
			return ki < kj
		}
		return si < sj
	})
	out := obstacles[:0]
	for i, o := range obstacles {
		if i > 0 && o.Kind == EdgeConflict && o.Via == nil &&
			obstacles[i-1].Kind == EdgeConflict && obstacles[i-1].Via == nil &&
			o.Edge == obstacles[i-1].Edge {
			continue
		}
		out = append(out, o)
	}
	return out
}
