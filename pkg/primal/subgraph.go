package primal

import (
	"fmt"
	"sort"

	"github.com/qecdec/fusionmatch/pkg/decoding"
	"github.com/qecdec/fusionmatch/pkg/dual"
)

// extraction accumulates the parity subgraph and the defect pairing
// while the final matching is unfolded. Edges are XORed: an edge
// crossed twice by overlapping paths cancels out.
type extraction struct {
	m            *Module
	edgeParity   map[int]bool
	pairs        [][2]int // defect vertex pairs
	virtualPairs [][2]int // (defect vertex, virtual vertex)
}

func (x *extraction) toggle(e int) { x.edgeParity[e] = !x.edgeParity[e] }

func (x *extraction) toggleLink(edge, secondEdge, via int) {
	x.toggle(edge)
	if via >= 0 {
		x.toggle(secondEdge)
	}
}

// extract unfolds every top-level match into tight-edge paths,
// blossom half-cycles and cluster parity passes.
func (m *Module) extract() *extraction {
	x := &extraction{m: m, edgeParity: make(map[int]bool)}
	var tops []*dual.Node
	for n := range m.info {
		if n.IsOutermost() && !n.Removed() {
			tops = append(tops, n)
		}
	}
	sort.Slice(tops, func(i, j int) bool { return tops[i].Index < tops[j].Index })
	visited := make(map[*dual.Node]bool, len(tops))
	for _, n := range tops {
		if visited[n] {
			continue
		}
		visited[n] = true
		r := m.rec(n)
		switch {
		case r.peer != nil:
			peer := r.peer
			visited[peer] = true
			link := m.matchContact(n, peer, r.peerLink)
			x.toggleLink(link.Edge, link.SecondEdge, link.Via)
			dn := x.expand(n, link.My)
			dp := x.expand(peer, link.Peer)
			x.pairs = append(x.pairs, [2]int{dn, dp})
		case r.virtualMatch >= 0:
			e, vn := m.virtualContact(n, r.virtualMatch, r.peerLink)
			x.toggle(e)
			dn := x.expand(n, vn)
			x.virtualPairs = append(x.virtualPairs, [2]int{dn, r.virtualMatch})
		default:
			panic(fmt.Sprintf("primal: extracting with unmatched node %v", n))
		}
	}
	return x
}

// matchContact returns the tight connection realizing the match
// between a and b. The link recorded when the match formed is
// preferred; if region shifts moved one of its endpoints into the
// other side, a fresh contact edge is searched on a's frontier.
func (m *Module) matchContact(a, b *dual.Node, link Link) Link {
	if m.dual.VertexOwner(link.My) == a && m.dual.VertexOwner(link.Peer) == b {
		return link
	}
	_, edge, va, vb, ok := m.dual.TightContact([]*dual.Node{a}, b)
	if !ok {
		panic(fmt.Sprintf("primal: matched nodes %v and %v share no tight edge", a, b))
	}
	return plainLink(edge, va, vb)
}

func (m *Module) virtualContact(n *dual.Node, v int, link Link) (edge, vn int) {
	if m.dual.VertexOwner(link.My) == n {
		return link.Edge, link.My
	}
	edge, vn, ok := m.dual.TightContactToVertex(n, v)
	if !ok {
		panic(fmt.Sprintf("primal: node %v matched to vertex %d without a tight edge", n, v))
	}
	return edge, vn
}

// expand unfolds node n, entered through vertex entry, into parity
// edges: a claim-edge chain inside syndrome regions, recursive
// half-cycle pairing inside blossoms, a spanning-tree parity pass
// inside clusters. It returns the defect vertex exposed at the entry.
func (x *extraction) expand(n *dual.Node, entry int) int {
	store := x.m.store
	g := store.Graph()
	if n.Kind == dual.Syndrome {
		v := entry
		for v != n.Seed {
			e := store.Vertex(v).ClaimEdge
			if e < 0 {
				panic(fmt.Sprintf("primal: vertex %d has no claim chain to seed of %v", entry, n))
			}
			x.toggle(e)
			v = g.OtherEndpoint(e, v)
		}
		return n.Seed
	}
	if n.Cluster {
		return x.expandCluster(n, entry)
	}
	// walk the blossom's own claim chain down to a child's region
	v := entry
	for store.Vertex(v).Owner == n {
		e := store.Vertex(v).ClaimEdge
		if e < 0 {
			panic(fmt.Sprintf("primal: vertex %d stranded inside blossom %v", entry, n))
		}
		x.toggle(e)
		v = g.OtherEndpoint(e, v)
	}
	child := store.Vertex(v).Owner
	for child.Parent != n {
		child = child.Parent
		if child == nil {
			panic(fmt.Sprintf("primal: vertex %d not inside blossom %v", entry, n))
		}
	}
	exposed := x.expand(child, v)

	// the entry child is the odd one out; the rest pair consecutively
	// around the cycle through their joining tight edges
	i := indexOf(n.Cycle, child)
	count := len(n.Cycle)
	for t := 1; t+1 <= count-1; t += 2 {
		link := n.Links[(i+t)%count]
		a := n.Cycle[(i+t)%count]
		b := n.Cycle[(i+t+1)%count]
		x.toggleLink(link.Edge, link.SecondEdge, link.Via)
		da := x.expand(a, link.FromVertex)
		db := x.expand(b, link.ToVertex)
		x.pairs = append(x.pairs, [2]int{da, db})
	}
	return exposed
}

// expandCluster recovers parity inside a collapsed cluster with a
// spanning-forest pass over its tight edges: every defect must end up
// odd and the entry vertex picks up the external match. Optimality is
// not promised inside a cluster; this is the documented union-find
// degradation.
func (x *extraction) expandCluster(n *dual.Node, entry int) int {
	store := x.m.store
	g := store.Graph()
	inside := make(map[int]bool)
	n.EachVertex(func(v int) { inside[v] = true })
	odd := map[int]bool{entry: true}
	var defects []int
	n.EachDefect(func(v int) {
		odd[v] = !odd[v]
		defects = append(defects, v)
	})
	sort.Ints(defects)

	// BFS spanning forest over tight interior edges
	parentEdge := make(map[int]int)
	var order []int
	seen := map[int]bool{entry: true}
	queue := []int{entry}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		order = append(order, v)
		for _, e := range g.Neighbors(v) {
			u := g.OtherEndpoint(e, v)
			if seen[u] || !inside[u] || !store.Tight(e) {
				continue
			}
			seen[u] = true
			parentEdge[u] = e
			queue = append(queue, u)
		}
	}
	// fold odd parities towards the root, selecting tree edges
	for i := len(order) - 1; i > 0; i-- {
		v := order[i]
		if !odd[v] {
			continue
		}
		e, ok := parentEdge[v]
		if !ok {
			panic(fmt.Sprintf("primal: cluster %v parity stranded at vertex %d", n, v))
		}
		x.toggle(e)
		odd[v] = false
		odd[g.OtherEndpoint(e, v)] = !odd[g.OtherEndpoint(e, v)]
	}
	if odd[order[0]] {
		panic(fmt.Sprintf("primal: cluster %v has unbalanced parity", n))
	}

	// the defect reached by the entry's claim chain takes the external
	// match; the rest pair in index order
	exposed := entry
	for !store.Vertex(exposed).IsDefect {
		e := store.Vertex(exposed).ClaimEdge
		if e < 0 {
			exposed = defects[0]
			break
		}
		exposed = g.OtherEndpoint(e, exposed)
	}
	rest := defects[:0:0]
	for _, d := range defects {
		if d != exposed {
			rest = append(rest, d)
		}
	}
	for t := 0; t+1 < len(rest); t += 2 {
		x.pairs = append(x.pairs, [2]int{rest[t], rest[t+1]})
	}
	return exposed
}

// Subgraph returns the minimum-weight parity subgraph of the finished
// solve as ascending edge indices.
func (m *Module) Subgraph() []int {
	x := m.extract()
	var edges []int
	for e, on := range x.edgeParity {
		if on {
			edges = append(edges, e)
		}
	}
	sort.Ints(edges)
	return edges
}

// PerfectMatching maps the finished solve onto the induced defect
// complete graph. Peer matchings are positions in the pattern's defect
// list; virtual matchings pair a position with the absorbing virtual
// vertex index.
func (m *Module) PerfectMatching(pattern *decoding.SyndromePattern) *decoding.PerfectMatching {
	x := m.extract()
	position := make(map[int]int, len(pattern.DefectVertices))
	for i, v := range pattern.DefectVertices {
		if _, ok := position[v]; !ok {
			position[v] = i
		}
	}
	pm := &decoding.PerfectMatching{PeerMatchings: [][2]int{}, VirtualMatchings: [][2]int{}}
	lookup := func(v int) int {
		i, ok := position[v]
		if !ok {
			panic(fmt.Sprintf("primal: matched defect vertex %d not in syndrome", v))
		}
		return i
	}
	for _, p := range x.pairs {
		pm.PeerMatchings = append(pm.PeerMatchings, [2]int{lookup(p[0]), lookup(p[1])})
	}
	for _, p := range x.virtualPairs {
		pm.VirtualMatchings = append(pm.VirtualMatchings, [2]int{lookup(p[0]), p[1]})
	}
	return pm
}
