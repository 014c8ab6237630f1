package primal

import (
	"fmt"
	"sort"

	"github.com/qecdec/fusionmatch/pkg/decoding"
	"github.com/qecdec/fusionmatch/pkg/dual"
)

// Link records how two structures touch: the saturated connection
// realizing a match or a tree edge, with its endpoint vertex on each
// side. My is the endpoint inside the node holding the link; Peer is
// the endpoint on the other side (a vertex of the peer node, or the
// virtual vertex itself). A through connection over a zero-dual
// syndrome vertex carries the second leg in Via/SecondEdge:
// My -Edge- Via -SecondEdge- Peer.
type Link struct {
	Edge       int
	My         int
	Peer       int
	Via        int
	SecondEdge int
}

func plainLink(edge, my, peer int) Link {
	return Link{Edge: edge, My: my, Peer: peer, Via: -1, SecondEdge: -1}
}

func (l Link) reverse() Link {
	r := Link{Edge: l.Edge, My: l.Peer, Peer: l.My, Via: l.Via, SecondEdge: l.SecondEdge}
	if l.Via >= 0 {
		r.Edge, r.SecondEdge = l.SecondEdge, l.Edge
	}
	return r
}

func linkFromCycle(cl dual.CycleLink) Link {
	return Link{Edge: cl.Edge, My: cl.FromVertex, Peer: cl.ToVertex, Via: cl.Via, SecondEdge: cl.SecondEdge}
}

func (l Link) cycleLink() dual.CycleLink {
	return dual.CycleLink{Edge: l.Edge, FromVertex: l.My, ToVertex: l.Peer, Via: l.Via, SecondEdge: l.SecondEdge}
}

// record is the per-dual-node bookkeeping of the primal module: the
// node's place in an alternating tree and its current match.
type record struct {
	// tree fields; depth is -1 outside a tree. A solo unmatched
	// defect is a tree of depth 0 with no children.
	treeParent *dual.Node
	parentLink Link
	depth      int
	children   []*dual.Node

	// match fields; peer for a matched pair, virtualMatch >= 0 for a
	// match absorbed by a virtual or mirror vertex.
	peer         *dual.Node
	peerLink     Link
	virtualMatch int
}

func (r *record) inTree() bool  { return r.depth >= 0 }
func (r *record) matched() bool { return r.peer != nil || r.virtualMatch >= 0 }

func newRecord() *record {
	return &record{
		depth:        -1,
		virtualMatch: -1,
		parentLink:   Link{Via: -1, SecondEdge: -1},
		peerLink:     Link{Via: -1, SecondEdge: -1},
	}
}

// Module is one primal submodule. The serial solver uses a single
// module over a single dual module; the parallel solver runs one per
// partition unit and merges them with [Module.Adopt] at fusion time.
type Module struct {
	dual  *dual.Module
	store *dual.Store
	info  map[*dual.Node]*record

	// maxTreeSize bounds the node count of an alternating tree;
	// 0 means unlimited (exact MWPM).
	maxTreeSize int
}

// NewModule creates a primal module driving d.
func NewModule(d *dual.Module) *Module {
	return &Module{
		dual:  d,
		store: d.Store(),
		info:  make(map[*dual.Node]*record),
	}
}

// SetMaxTreeSize bounds alternating trees to at most n nodes; trees
// that would exceed the bound collapse into union-find-like clusters.
// Zero restores the exact, unbounded behavior.
func (m *Module) SetMaxTreeSize(n int) { m.maxTreeSize = n }

// Dual returns the driven dual module.
func (m *Module) Dual() *dual.Module { return m.dual }

func (m *Module) rec(n *dual.Node) *record {
	r, ok := m.info[n]
	if !ok {
		r = newRecord()
		m.info[n] = r
	}
	return r
}

// LoadDefects seeds one syndrome node per defect vertex and roots each
// in its own alternating tree of depth zero.
func (m *Module) LoadDefects(defects []int) error {
	for _, v := range defects {
		if v < 0 || v >= m.store.Graph().VertexNum() {
			return fmt.Errorf("defect vertex %d: %w", v, decoding.ErrVertexOutOfRange)
		}
		if m.store.IsBoundary(v) {
			return fmt.Errorf("defect vertex %d is a boundary vertex: %w", v, decoding.ErrVertexOutOfRange)
		}
		if m.store.Vertex(v).Owner != nil {
			return fmt.Errorf("defect vertex %d listed twice", v)
		}
		n := m.dual.AddDefect(v)
		r := m.rec(n)
		r.depth = 0
		m.dual.SetGrowState(n, dual.Grow)
	}
	return nil
}

// AttachLoadedDefects roots every syndrome node already present in
// the dual module as a fresh alternating tree. The dual-parallel
// solver loads defects through per-unit dual modules concurrently and
// hands the fused result to a single primal module via this call.
func (m *Module) AttachLoadedDefects() {
	for _, n := range m.dual.Nodes() {
		if n.Removed() || !n.IsOutermost() || n.Kind != dual.Syndrome {
			continue
		}
		if _, ok := m.info[n]; ok {
			continue
		}
		m.rec(n).depth = 0
		m.dual.SetGrowState(n, dual.Grow)
	}
}

// Run executes the event loop until no obstacle remains: grow by the
// maximum update length, resolve zero-length obstacles, repeat. On a
// well-posed problem it leaves every defect matched.
func (m *Module) Run() {
	for {
		mu := m.dual.ComputeMaximumUpdateLength()
		if mu.Unbounded {
			m.assertQuiescent()
			return
		}
		if mu.Length > 0 {
			m.dual.Grow(mu.Length)
			continue
		}
		m.resolveObstacles(mu.Obstacles)
	}
}

// assertQuiescent checks that the unbounded growth report really means
// the solve is finished: every live outermost node must be matched.
func (m *Module) assertQuiescent() {
	for n, r := range m.info {
		if !n.IsOutermost() || n.Removed() {
			continue
		}
		if !r.matched() {
			panic(fmt.Sprintf("primal: unbounded growth with unmatched node %v; the syndrome admits no perfect matching", n))
		}
	}
}

// root walks tree parents up to the root of n's alternating tree.
func (m *Module) root(n *dual.Node) *dual.Node {
	for {
		r := m.rec(n)
		if r.treeParent == nil {
			return n
		}
		n = r.treeParent
	}
}

// treeNodes collects the alternating tree below root, root included.
func (m *Module) treeNodes(root *dual.Node) []*dual.Node {
	nodes := []*dual.Node{root}
	for i := 0; i < len(nodes); i++ {
		nodes = append(nodes, m.rec(nodes[i]).children...)
	}
	return nodes
}

// setMatch records a mutual match between a and b over the link
// (oriented from a's side).
func (m *Module) setMatch(a, b *dual.Node, link Link) {
	ra, rb := m.rec(a), m.rec(b)
	ra.peer, ra.peerLink, ra.virtualMatch = b, link, -1
	rb.peer, rb.peerLink, rb.virtualMatch = a, link.reverse(), -1
}

// sideVertex returns the endpoint of edge e owned by outermost node n,
// or -1 if neither endpoint currently is.
func (m *Module) sideVertex(e int, n *dual.Node) int {
	l, r := m.store.Graph().Endpoints(e)
	if m.dual.VertexOwner(l) == n {
		return l
	}
	if m.dual.VertexOwner(r) == n {
		return r
	}
	return -1
}

// NodeView is a read-only snapshot of one node's primal record, used
// by the visualizer.
type NodeView struct {
	InTree       bool
	Depth        int
	TreeParent   *dual.Node
	Peer         *dual.Node
	VirtualMatch int
}

// View returns the primal record of n, if any.
func (m *Module) View(n *dual.Node) (NodeView, bool) {
	r, ok := m.info[n]
	if !ok {
		return NodeView{VirtualMatch: -1}, false
	}
	return NodeView{
		InTree:       r.inTree(),
		Depth:        r.depth,
		TreeParent:   r.treeParent,
		Peer:         r.peer,
		VirtualMatch: r.virtualMatch,
	}, true
}

// Adopt merges the records of child modules, as part of fusing
// partition units. The children must not be used afterwards.
func (m *Module) Adopt(children ...*Module) {
	for _, child := range children {
		for n, r := range child.info {
			m.info[n] = r
		}
		child.info = nil
	}
}

// RerootBoundaryMatches breaks every temporary match absorbed by a
// mirror vertex for which keep reports false, restoring the matched
// node as the root of a fresh alternating tree. The fusion operation
// calls this with the store's boundary test, which reports false for
// mirrors that just became real, so their matches are broken; matches
// to still-disabled outer mirrors stay temporary.
func (m *Module) RerootBoundaryMatches(keep func(vertex int) bool) {
	var reroot []*dual.Node
	for n, r := range m.info {
		if !n.IsOutermost() || n.Removed() {
			continue
		}
		if r.virtualMatch >= 0 && !keep(r.virtualMatch) {
			reroot = append(reroot, n)
		}
	}
	sort.Slice(reroot, func(i, j int) bool { return reroot[i].Index < reroot[j].Index })
	for _, n := range reroot {
		r := m.rec(n)
		r.virtualMatch = -1
		r.peer = nil
		r.depth = 0
		r.treeParent = nil
		r.children = nil
		m.dual.SetGrowState(n, dual.Grow)
	}
}

// Clear drops all records for a fresh solve.
func (m *Module) Clear() {
	m.info = make(map[*dual.Node]*record)
}
