package dual

import (
	"fmt"
	"sort"

	"github.com/qecdec/fusionmatch/pkg/decoding"
)

// Module is one dual submodule: an arena of dual nodes over (a region
// of) the shared [Store]. The serial solver owns a single module; the
// parallel solver owns one per partition unit and merges them with
// [Module.Adopt] at fusion time.
//
// A module is single-writer: whichever worker owns the unit drives it.
// Invariant violations panic with a diagnostic; none of them are
// recoverable caller errors.
type Module struct {
	store  *Store
	nodes  []*Node
	active []*Node

	// first-touch lists of this module, the unit of state recycling.
	// Adoption moves a child's lists along with its nodes, so after
	// all fusions the root module can clear the whole solve.
	touchedVertices []int
	touchedEdges    []int
}

// NewModule creates an empty dual module over the store.
func NewModule(store *Store) *Module {
	return &Module{store: store}
}

// Store returns the shared solve-state store.
func (m *Module) Store() *Store { return m.store }

func (m *Module) touchVertex(v int) {
	if m.store.markVertex(v) {
		m.touchedVertices = append(m.touchedVertices, v)
	}
}

func (m *Module) addGrown(e, fromVertex int, delta decoding.Weight) {
	if m.store.markEdge(e) {
		m.touchedEdges = append(m.touchedEdges, e)
	}
	m.store.addGrown(e, fromVertex, delta)
}

// Nodes returns the module's node arena, expansion-removed nodes
// included. Callers must check [Node.Removed].
func (m *Module) Nodes() []*Node { return m.nodes }

// AddDefect creates a syndrome node seeded at the defect vertex v,
// with dual variable zero and grow state Stay.
func (m *Module) AddDefect(v int) *Node {
	vs := m.store.Vertex(v)
	if m.store.IsBoundary(v) {
		panic(fmt.Sprintf("dual: defect on boundary vertex %d", v))
	}
	if vs.Owner != nil {
		panic(fmt.Sprintf("dual: defect vertex %d already owned by %v", v, vs.Owner))
	}
	m.touchVertex(v)
	n := &Node{
		Index:  len(m.nodes),
		Kind:   Syndrome,
		Seed:   v,
		region: []int{v},
	}
	m.nodes = append(m.nodes, n)
	vs.Owner = n
	vs.ClaimEdge = -1
	vs.IsDefect = true
	g := m.store.Graph()
	for _, e := range g.Neighbors(v) {
		n.boundary = append(n.boundary, boundaryEdge{edge: e, regionVertex: v, farVertex: g.OtherEndpoint(e, v)})
	}
	return n
}

// SetGrowState changes the grow state of an outermost node.
func (m *Module) SetGrowState(n *Node, state GrowState) {
	if !n.IsOutermost() || n.removed {
		panic(fmt.Sprintf("dual: set grow state on non-outermost node %v", n))
	}
	wasActive := n.Grow != Stay
	n.Grow = state
	if state != Stay && !wasActive {
		m.active = append(m.active, n)
	}
}

// activeNodes iterates the live active nodes, compacting out entries
// that went inactive, got wrapped into a blossom, or were removed.
func (m *Module) activeNodes(visit func(n *Node)) {
	kept := m.active[:0]
	seen := make(map[*Node]bool, len(m.active))
	for _, n := range m.active {
		if n.removed || !n.IsOutermost() || n.Grow == Stay || seen[n] {
			continue
		}
		seen[n] = true
		kept = append(kept, n)
	}
	m.active = kept
	for _, n := range kept {
		visit(n)
	}
}

// Grow advances time by delta: every growing node's dual increases by
// delta, every shrinking node's decreases, and each boundary edge's
// growth moves with its region. The caller must have bounded delta via
// [Module.ComputeMaximumUpdateLength].
func (m *Module) Grow(delta decoding.Weight) {
	if delta < 0 {
		panic(fmt.Sprintf("dual: negative growth %d", delta))
	}
	if delta == 0 {
		return
	}
	m.activeNodes(func(n *Node) {
		amount := delta
		if n.Grow == Shrink {
			amount = -delta
		}
		n.Dual += amount
		if n.Dual < 0 {
			panic(fmt.Sprintf("dual: node %v dual variable below zero", n))
		}
		for i := range n.boundary {
			be := n.boundary[i]
			m.addGrown(be.edge, be.regionVertex, amount)
		}
	})
	m.normalize()
}

// normalize settles region frontiers: growing regions claim vertices
// behind saturated edges, shrinking regions release vertices whose
// frontier growth returned to zero. Claims and releases cascade until
// a fixed point (zero-weight chains saturate in one step).
func (m *Module) normalize() {
	for changed := true; changed; {
		changed = false
		m.activeNodes(func(n *Node) {
			switch n.Grow {
			case Grow:
				if m.claimPass(n) {
					changed = true
				}
			case Shrink:
				if m.retractPass(n) {
					changed = true
				}
			}
		})
	}
}

func (m *Module) claimPass(n *Node) bool {
	g := m.store.Graph()
	claimed := false
	// index loop: claiming appends new boundary entries that are
	// themselves checked before the pass finishes
	for i := 0; i < len(n.boundary); i++ {
		be := n.boundary[i]
		far := m.store.Vertex(be.farVertex)
		if far.Owner != nil || m.store.IsBoundary(be.farVertex) {
			continue
		}
		slack := m.store.Weight(be.edge) - m.store.Edge(be.edge).LeftGrown - m.store.Edge(be.edge).RightGrown
		if slack > 0 {
			continue
		}
		if slack < 0 {
			panic(fmt.Sprintf("dual: edge %d overgrown by %d into unclaimed vertex %d", be.edge, -slack, be.farVertex))
		}
		v := be.farVertex
		m.touchVertex(v)
		far.Owner = n
		far.ClaimEdge = be.edge
		n.region = append(n.region, v)
		for _, e := range g.Neighbors(v) {
			n.boundary = append(n.boundary, boundaryEdge{edge: e, regionVertex: v, farVertex: g.OtherEndpoint(e, v)})
		}
		claimed = true
	}
	return claimed
}

func (m *Module) retractPass(n *Node) bool {
	var releasing []int
	for _, be := range n.boundary {
		if m.store.grownFrom(be.edge, be.regionVertex) != 0 {
			continue
		}
		vs := m.store.Vertex(be.regionVertex)
		if vs.Owner == n && vs.ClaimEdge >= 0 {
			releasing = append(releasing, be.regionVertex)
		}
	}
	if len(releasing) == 0 {
		return false
	}
	release := make(map[int]bool, len(releasing))
	for _, v := range releasing {
		release[v] = true
	}
	kept := n.boundary[:0]
	for _, be := range n.boundary {
		if !release[be.regionVertex] {
			kept = append(kept, be)
		}
	}
	n.boundary = kept
	region := n.region[:0]
	for _, v := range n.region {
		if release[v] {
			vs := m.store.Vertex(v)
			vs.Owner = nil
			vs.ClaimEdge = -1
			continue
		}
		region = append(region, v)
	}
	n.region = region
	return true
}

// ComputeMaximumUpdateLength returns the largest time advance that
// violates no invariant. A zero-length result carries the obstacle
// list in canonical order; an unbounded result means no active node
// constrains growth (for a well-posed problem, the solve is finished).
func (m *Module) ComputeMaximumUpdateLength() MaxUpdate {
	m.normalize()
	length := decoding.MaxWeight
	var obstacles []Obstacle
	haveActive := false
	bound := func(w decoding.Weight) {
		if w < length {
			length = w
		}
	}
	m.activeNodes(func(n *Node) {
		haveActive = true
		switch n.Grow {
		case Grow:
			m.computeGrowing(n, bound, &obstacles)
		case Shrink:
			if n.Dual == 0 {
				if n.Kind == Blossom {
					obstacles = append(obstacles, Obstacle{Kind: BlossomNeedExpand, Node: n})
					return
				}
				obstacles = append(obstacles, m.throughConflict(n))
				return
			}
			bound(n.Dual)
			for _, be := range n.boundary {
				if grown := m.store.grownFrom(be.edge, be.regionVertex); grown > 0 {
					bound(grown)
				}
			}
		}
	})
	if len(obstacles) > 0 {
		return MaxUpdate{Obstacles: canonicalize(obstacles)}
	}
	if !haveActive || length == decoding.MaxWeight {
		return MaxUpdate{Unbounded: true}
	}
	if length == 0 {
		panic("dual: zero maximum update length without obstacles")
	}
	return MaxUpdate{Length: length}
}

func (m *Module) computeGrowing(n *Node, bound func(decoding.Weight), obstacles *[]Obstacle) {
	for _, be := range n.boundary {
		es := m.store.Edge(be.edge)
		slack := m.store.Weight(be.edge) - es.LeftGrown - es.RightGrown
		farVS := m.store.Vertex(be.farVertex)
		var farOwner *Node
		if farVS.Owner != nil {
			farOwner = farVS.Owner.Outermost()
		}
		if farOwner == n {
			continue // interior edge, growth unconstrained
		}
		if m.store.IsBoundary(be.farVertex) {
			if slack == 0 {
				*obstacles = append(*obstacles, Obstacle{
					Kind:          VirtualConflict,
					Edge:          be.edge,
					Left:          n,
					VirtualVertex: be.farVertex,
					IsMirror:      m.store.IsMirror(be.farVertex),
				})
			} else {
				bound(slack)
			}
			continue
		}
		if slack < 0 {
			panic(fmt.Sprintf("dual: edge %d overgrown between nodes %v and %v", be.edge, n, farOwner))
		}
		if farOwner == nil {
			bound(slack) // claimed at zero slack by normalize
			continue
		}
		switch farOwner.Grow {
		case Grow:
			if slack == 0 {
				*obstacles = append(*obstacles, Obstacle{Kind: EdgeConflict, Edge: be.edge, Left: n, Right: farOwner})
			} else {
				if slack%2 != 0 {
					panic(fmt.Sprintf("dual: odd slack %d on edge %d between two growing regions; weights between real vertices must be even", slack, be.edge))
				}
				bound(slack / 2)
			}
		case Stay:
			if slack == 0 {
				*obstacles = append(*obstacles, Obstacle{Kind: EdgeConflict, Edge: be.edge, Left: n, Right: farOwner})
			} else {
				bound(slack)
			}
		case Shrink:
			// the far side gives back what this side gains
		}
	}
}

// throughConflict converts a syndrome node stuck at dual zero while
// shrinking into a conflict between the two growing regions pressing
// on its seed: the regions effectively meet through the zero-radius
// vertex over the two-edge path. In an alternating tree the stuck
// node's parent and matched child both qualify, so two distinct
// growing neighbors always exist for a well-formed state.
func (m *Module) throughConflict(n *Node) Obstacle {
	type contact struct {
		edge  int
		owner *Node
	}
	var contacts []contact
	for _, be := range n.boundary {
		if !m.store.Tight(be.edge) {
			continue
		}
		farOwner := m.store.Vertex(be.farVertex).Owner
		if farOwner == nil {
			continue
		}
		outer := farOwner.Outermost()
		if outer == n || outer.Grow != Grow {
			continue
		}
		contacts = append(contacts, contact{edge: be.edge, owner: outer})
	}
	sort.Slice(contacts, func(i, j int) bool { return contacts[i].edge < contacts[j].edge })
	for _, c := range contacts[min(1, len(contacts)):] {
		if c.owner != contacts[0].owner {
			return Obstacle{
				Kind:       EdgeConflict,
				Edge:       contacts[0].edge,
				SecondEdge: c.edge,
				Left:       contacts[0].owner,
				Right:      c.owner,
				Via:        n,
			}
		}
	}
	panic(fmt.Sprintf("dual: syndrome node %v stuck at zero dual without two distinct growing neighbors", n))
}

// CreateBlossom shrinks an odd cycle of outermost nodes into a single
// blossom node. links[i] is the tight edge joining cycle[i] to
// cycle[(i+1) % len(cycle)]. The children are frozen at their current
// duals; the blossom starts at dual zero in state Stay.
func (m *Module) CreateBlossom(cycle []*Node, links []CycleLink) *Node {
	if len(cycle) < 3 || len(cycle)%2 == 0 {
		panic(fmt.Sprintf("dual: blossom cycle must have odd length >= 3, got %d", len(cycle)))
	}
	if len(links) != len(cycle) {
		panic(fmt.Sprintf("dual: blossom with %d children has %d links", len(cycle), len(links)))
	}
	return m.wrap(cycle, links, false)
}

// CollapseCluster shrinks an arbitrary odd set of outermost nodes into
// a cluster node: the degraded, union-find-like form used when an
// alternating tree exceeds the configured size bound. Cluster parity
// is later recovered with a spanning-tree pass instead of cycle
// unfolding.
func (m *Module) CollapseCluster(members []*Node) *Node {
	if len(members) == 0 || len(members)%2 == 0 {
		panic(fmt.Sprintf("dual: cluster must have odd cardinality, got %d", len(members)))
	}
	return m.wrap(members, nil, true)
}

func (m *Module) wrap(children []*Node, links []CycleLink, cluster bool) *Node {
	b := &Node{
		Index:   len(m.nodes),
		Kind:    Blossom,
		Cycle:   append([]*Node(nil), children...),
		Links:   append([]CycleLink(nil), links...),
		Cluster: cluster,
	}
	m.nodes = append(m.nodes, b)
	seen := make(map[*Node]bool, len(children))
	for _, child := range children {
		if !child.IsOutermost() || child.removed {
			panic(fmt.Sprintf("dual: blossom child %v is not an outermost node", child))
		}
		if seen[child] {
			panic(fmt.Sprintf("dual: blossom child %v repeated", child))
		}
		seen[child] = true
		child.Grow = Stay
		child.Parent = b
	}
	// the blossom's frontier is the union of its children's frontiers;
	// edges now interior to the blossom drop out
	for _, child := range children {
		for _, be := range child.boundary {
			farVS := m.store.Vertex(be.farVertex)
			if farVS.Owner != nil && farVS.Owner.Outermost() == b {
				continue
			}
			b.boundary = append(b.boundary, be)
		}
	}
	return b
}

// ExpandBlossom reverses a blossom whose dual variable has returned to
// zero, restoring its children as outermost nodes in state Stay. The
// caller re-threads the children into its own structures afterwards.
func (m *Module) ExpandBlossom(b *Node) {
	if b.Kind != Blossom || b.removed {
		panic(fmt.Sprintf("dual: cannot expand %v", b))
	}
	if !b.IsOutermost() {
		panic(fmt.Sprintf("dual: cannot expand nested blossom %v", b))
	}
	if b.Dual != 0 {
		panic(fmt.Sprintf("dual: expanding blossom %v with non-zero dual", b))
	}
	if len(b.region) != 0 {
		panic(fmt.Sprintf("dual: blossom %v still claims %d vertices at expansion", b, len(b.region)))
	}
	for _, child := range b.Cycle {
		child.Parent = nil
		child.Grow = Stay
	}
	b.removed = true
	b.Grow = Stay
	b.boundary = nil
}

// VertexOwner returns the outermost dual node containing v, or nil if
// the vertex is untouched.
func (m *Module) VertexOwner(v int) *Node {
	owner := m.store.Vertex(v).Owner
	if owner == nil {
		return nil
	}
	return owner.Outermost()
}

// EdgeGrowth returns the raw per-side growth of edge e. Values may
// exceed the weight on edges interior to one region; display layers
// clamp.
func (m *Module) EdgeGrowth(e int) (left, right decoding.Weight) {
	es := m.store.Edge(e)
	return es.LeftGrown, es.RightGrown
}

// TightContact finds the lowest-index saturated edge joining any
// candidate node's frontier to the target outermost node, returning
// the touching candidate and the edge's endpoint on each side.
// Candidates are scanned in order, so the result is deterministic.
func (m *Module) TightContact(candidates []*Node, target *Node) (child *Node, edge, childVertex, targetVertex int, ok bool) {
	edge = -1
	for _, c := range candidates {
		for _, be := range c.boundary {
			if edge >= 0 && be.edge >= edge {
				continue
			}
			if !m.store.Tight(be.edge) {
				continue
			}
			farOwner := m.store.Vertex(be.farVertex).Owner
			if farOwner == nil || farOwner.Outermost() != target {
				continue
			}
			child, edge, childVertex, targetVertex, ok = c, be.edge, be.regionVertex, be.farVertex, true
		}
	}
	return
}

// TightContactToVertex finds the lowest-index saturated edge joining
// n's frontier directly to the vertex v (typically a virtual vertex).
func (m *Module) TightContactToVertex(n *Node, v int) (edge, fromVertex int, ok bool) {
	edge = -1
	for _, be := range n.boundary {
		if be.farVertex != v || (edge >= 0 && be.edge >= edge) {
			continue
		}
		if m.store.Tight(be.edge) {
			edge, fromVertex, ok = be.edge, be.regionVertex, true
		}
	}
	return
}

// Adopt transfers every node of the child modules into this module,
// re-indexing them in adoption order. The children must not be used
// afterwards. This is the node-transfer half of a fusion; the caller
// flips the mirror enable flags and re-roots temporary matches.
func (m *Module) Adopt(children ...*Module) {
	for _, child := range children {
		for _, n := range child.nodes {
			n.Index = len(m.nodes)
			m.nodes = append(m.nodes, n)
			if n.Grow != Stay && !n.removed && n.IsOutermost() {
				m.active = append(m.active, n)
			}
		}
		m.touchedVertices = append(m.touchedVertices, child.touchedVertices...)
		m.touchedEdges = append(m.touchedEdges, child.touchedEdges...)
		child.nodes = nil
		child.active = nil
		child.touchedVertices = nil
		child.touchedEdges = nil
	}
}

// Clear drops every node and recycles the store records this module
// touched, in O(touched) time. The store-level weight overrides are
// cleared separately via [Store.Clear].
func (m *Module) Clear() {
	m.store.clearVertices(m.touchedVertices)
	m.store.clearEdges(m.touchedEdges)
	m.touchedVertices = m.touchedVertices[:0]
	m.touchedEdges = m.touchedEdges[:0]
	m.nodes = m.nodes[:0]
	m.active = m.active[:0]
}
