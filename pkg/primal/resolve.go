package primal

import (
	"fmt"

	"github.com/qecdec/fusionmatch/pkg/dual"
)

// resolveObstacles consumes one batch of zero-length events in the
// canonical order. Events staled by an earlier resolution in the same
// batch are skipped; the dual module recomputes the remaining ones on
// the next loop iteration.
func (m *Module) resolveObstacles(obstacles []dual.Obstacle) {
	resolved := false
	for _, o := range obstacles {
		switch o.Kind {
		case dual.EdgeConflict:
			if m.resolveConflict(o) {
				resolved = true
			}
		case dual.BlossomNeedExpand:
			if m.resolveExpand(o) {
				resolved = true
			}
		case dual.VirtualConflict:
			if m.resolveVirtualConflict(o) {
				resolved = true
			}
		}
	}
	if !resolved {
		panic(fmt.Sprintf("primal: no obstacle out of %d was resolvable; decoder is stuck", len(obstacles)))
	}
}

func growStatesAgainst(a, b dual.GrowState) bool {
	switch {
	case a == dual.Grow && b != dual.Shrink:
		return true
	case b == dual.Grow && a != dual.Shrink:
		return true
	}
	return false
}

// conflictLink rebuilds the oriented connection of an edge conflict
// from the current region state, or reports it stale.
func (m *Module) conflictLink(o dual.Obstacle, n1, n2 *dual.Node) (Link, bool) {
	if o.Via != nil {
		seed := o.Via.Seed
		g := m.store.Graph()
		v1 := g.OtherEndpoint(o.Edge, seed)
		v2 := g.OtherEndpoint(o.SecondEdge, seed)
		if m.dual.VertexOwner(v1) != n1 || m.dual.VertexOwner(v2) != n2 {
			return Link{}, false
		}
		return Link{Edge: o.Edge, My: v1, Peer: v2, Via: seed, SecondEdge: o.SecondEdge}, true
	}
	v1 := m.sideVertex(o.Edge, n1)
	v2 := m.sideVertex(o.Edge, n2)
	if v1 < 0 || v2 < 0 {
		return Link{}, false
	}
	return plainLink(o.Edge, v1, v2), true
}

func (m *Module) resolveConflict(o dual.Obstacle) bool {
	n1, n2 := o.Left.Outermost(), o.Right.Outermost()
	if n1 == n2 || n1.Removed() || n2.Removed() {
		return false // merged into one blossom by an earlier event
	}
	if !growStatesAgainst(n1.Grow, n2.Grow) {
		return false
	}
	link, ok := m.conflictLink(o, n1, n2)
	if !ok {
		return false // ownership shifted; no longer this pair's conflict
	}
	r1, r2 := m.rec(n1), m.rec(n2)
	switch {
	case r1.inTree() && r2.inTree():
		if m.root(n1) == m.root(n2) {
			m.formBlossom(n1, n2, link)
		} else {
			m.augmentTrees(n1, n2, link)
		}
		return true
	case r1.inTree() && r2.matched():
		m.treeTouchesMatched(n1, n2, link)
		return true
	case r2.inTree() && r1.matched():
		m.treeTouchesMatched(n2, n1, link.reverse())
		return true
	}
	return false
}

// treeTouchesMatched grows the tree of n over the matched node t: t
// becomes a shrinking child of n and t's peer a growing grandchild.
// When t is matched to a virtual vertex instead, the tree simply
// augments through it, releasing the virtual vertex. link is oriented
// from n to t.
func (m *Module) treeTouchesMatched(n, t *dual.Node, link Link) {
	rt := m.rec(t)
	if rt.virtualMatch >= 0 {
		rt.virtualMatch = -1
		m.setMatch(n, t, link)
		m.rematchChain(n)
		m.dissolveTree(m.root(n))
		return
	}
	p := rt.peer
	rp := m.rec(p)
	rn := m.rec(n)
	rt.treeParent = n
	rt.parentLink = link.reverse()
	rt.depth = rn.depth + 1
	rt.children = []*dual.Node{p}
	rn.children = append(rn.children, t)
	rp.treeParent = t
	rp.parentLink = rp.peerLink
	rp.depth = rn.depth + 2
	rp.children = nil
	m.dual.SetGrowState(t, dual.Shrink)
	m.dual.SetGrowState(p, dual.Grow)
	m.afterTreeMutation(m.root(n), t)
}

// afterTreeMutation applies the tree-size bound and the rule that a
// cluster node never takes a shrinking role: either condition
// collapses the whole tree into one cluster.
func (m *Module) afterTreeMutation(root *dual.Node, shrinking *dual.Node) {
	collapse := shrinking != nil && shrinking.Cluster
	if !collapse && m.maxTreeSize > 0 && len(m.treeNodes(root)) > m.maxTreeSize {
		collapse = true
	}
	if collapse {
		m.collapseTree(root)
	}
}

// collapseTree flattens an alternating tree into a single cluster
// node rooted as a fresh solo tree. Internal matching structure is
// discarded; parity inside the cluster is recovered later with a
// spanning-tree pass.
func (m *Module) collapseTree(root *dual.Node) {
	members := m.treeNodes(root)
	for _, n := range members {
		delete(m.info, n)
	}
	c := m.dual.CollapseCluster(members)
	r := m.rec(c)
	r.depth = 0
	m.dual.SetGrowState(c, dual.Grow)
}

// rematchChain walks from n to its tree root, re-matching each
// shrinking ancestor to its own parent. The caller has already given n
// its new match; this restores the alternating invariant along the
// path to the root.
func (m *Module) rematchChain(n *dual.Node) {
	cur := n
	for {
		p := m.rec(cur).treeParent
		if p == nil {
			return
		}
		pp := m.rec(p).treeParent
		if pp == nil {
			panic(fmt.Sprintf("primal: shrinking node %v has no tree parent", p))
		}
		m.setMatch(p, pp, m.rec(p).parentLink)
		cur = pp
	}
}

// dissolveTree clears the tree structure below root and freezes every
// member. Off-path matched pairs keep their matches; path members were
// re-matched by the caller.
func (m *Module) dissolveTree(root *dual.Node) {
	for _, n := range m.treeNodes(root) {
		r := m.rec(n)
		r.treeParent = nil
		r.parentLink = Link{Via: -1, SecondEdge: -1}
		r.depth = -1
		r.children = nil
		m.dual.SetGrowState(n, dual.Stay)
	}
}

// augmentTrees matches n1 to n2 through the saturated connection and
// augments both alternating trees, freeing all their members.
func (m *Module) augmentTrees(n1, n2 *dual.Node, link Link) {
	root1, root2 := m.root(n1), m.root(n2)
	m.setMatch(n1, n2, link)
	m.rematchChain(n1)
	m.rematchChain(n2)
	m.dissolveTree(root1)
	m.dissolveTree(root2)
}

// resolveVirtualConflict augments n's tree into the virtual vertex:
// n takes the virtual match and the path to the root re-matches.
func (m *Module) resolveVirtualConflict(o dual.Obstacle) bool {
	n := o.Left.Outermost()
	if n.Removed() || n.Grow != dual.Grow {
		return false
	}
	r := m.rec(n)
	if !r.inTree() {
		return false
	}
	vn := m.sideVertex(o.Edge, n)
	if vn < 0 {
		return false
	}
	root := m.root(n)
	r.peer = nil
	r.virtualMatch = o.VirtualVertex
	r.peerLink = plainLink(o.Edge, vn, o.VirtualVertex)
	m.rematchChain(n)
	m.dissolveTree(root)
	return true
}

// formBlossom shrinks the odd cycle through the lowest common ancestor
// of n1 and n2 into a new blossom node that inherits the ancestor's
// place in the tree. link is the conflict connection from n1 to n2.
func (m *Module) formBlossom(n1, n2 *dual.Node, link Link) {
	// climb to the common ancestor, collecting both paths
	pathA := []*dual.Node{n1}
	pathB := []*dual.Node{n2}
	a, b := n1, n2
	for m.rec(a).depth > m.rec(b).depth {
		a = m.rec(a).treeParent
		pathA = append(pathA, a)
	}
	for m.rec(b).depth > m.rec(a).depth {
		b = m.rec(b).treeParent
		pathB = append(pathB, b)
	}
	for a != b {
		a = m.rec(a).treeParent
		b = m.rec(b).treeParent
		pathA = append(pathA, a)
		pathB = append(pathB, b)
	}
	lca := a

	// cycle: lca down to n1, across the conflict connection to n2,
	// back up to lca
	var cycle []*dual.Node
	var links []dual.CycleLink
	for i := len(pathA) - 1; i >= 0; i-- {
		cycle = append(cycle, pathA[i])
		if i > 0 {
			links = append(links, m.rec(pathA[i-1]).parentLink.reverse().cycleLink())
		}
	}
	links = append(links, link.cycleLink())
	for i := 0; i < len(pathB)-1; i++ {
		cycle = append(cycle, pathB[i])
		links = append(links, m.rec(pathB[i]).parentLink.cycleLink())
	}

	lcaRec := m.rec(lca)
	parent := lcaRec.treeParent
	parentLink := lcaRec.parentLink
	depth := lcaRec.depth

	inCycle := make(map[*dual.Node]bool, len(cycle))
	for _, c := range cycle {
		inCycle[c] = true
	}
	var orphans []*dual.Node
	for _, c := range cycle {
		for _, child := range m.rec(c).children {
			if !inCycle[child] {
				orphans = append(orphans, child)
			}
		}
	}

	blossom := m.dual.CreateBlossom(cycle, links)
	for _, c := range cycle {
		delete(m.info, c)
	}
	r := m.rec(blossom)
	r.treeParent = parent
	r.parentLink = parentLink
	r.depth = depth
	r.children = orphans
	for _, child := range orphans {
		m.rec(child).treeParent = blossom
	}
	if parent != nil {
		m.replaceChild(parent, lca, blossom)
	}
	m.dual.SetGrowState(blossom, dual.Grow)
	m.renumberDepths(blossom, depth)
	m.afterTreeMutation(m.root(blossom), nil)
}

func (m *Module) replaceChild(parent, old, new *dual.Node) {
	children := m.rec(parent).children
	for i, c := range children {
		if c == old {
			children[i] = new
			return
		}
	}
	panic(fmt.Sprintf("primal: node %v is not a child of %v", old, parent))
}

// renumberDepths rewrites absolute depths below n after a contraction
// or expansion shifted its subtree.
func (m *Module) renumberDepths(n *dual.Node, depth int) {
	m.rec(n).depth = depth
	for _, c := range m.rec(n).children {
		m.renumberDepths(c, depth+1)
	}
}

// resolveExpand expands a shrinking blossom whose dual returned to
// zero, re-threading the even-length side of its cycle into the tree
// and matching up the remaining children.
func (m *Module) resolveExpand(o dual.Obstacle) bool {
	blossom := o.Node
	if blossom.Removed() || !blossom.IsOutermost() || blossom.Grow != dual.Shrink || blossom.Dual != 0 {
		return false
	}
	r := m.rec(blossom)
	if !r.inTree() || r.depth%2 == 0 || r.treeParent == nil || r.peer == nil {
		panic(fmt.Sprintf("primal: expanding blossom %v outside a shrinking tree position", blossom))
	}
	if blossom.Cluster {
		// clusters have no cycle structure to unfold; absorb the whole
		// tree into a larger cluster instead
		m.collapseTree(m.root(blossom))
		return true
	}
	parent := r.treeParent
	peer := r.peer
	depth := r.depth

	m.dual.ExpandBlossom(blossom)
	delete(m.info, blossom)

	entry, upEdge, upMy, upPeer, ok := m.dual.TightContact(blossom.Cycle, parent)
	if !ok {
		panic(fmt.Sprintf("primal: expanded blossom %v has no tight contact with its tree parent", blossom))
	}
	exit, downEdge, downMy, downPeer, ok := m.dual.TightContact(blossom.Cycle, peer)
	if !ok {
		panic(fmt.Sprintf("primal: expanded blossom %v has no tight contact with its matched peer", blossom))
	}

	cycle, cycleLinks := blossom.Cycle, blossom.Links
	n := len(cycle)
	i, j := indexOf(cycle, entry), indexOf(cycle, exit)

	// pick the direction around the cycle with an even number of links
	forwardLinks := (j - i + n) % n
	var path []*dual.Node
	var pathLinks []Link // pathLinks[t] joins path[t] to path[t+1], oriented from path[t]
	if forwardLinks%2 == 0 {
		for t := i; ; t = (t + 1) % n {
			path = append(path, cycle[t])
			if t == j {
				break
			}
			pathLinks = append(pathLinks, linkFromCycle(cycleLinks[t]))
		}
	} else {
		for t := i; ; t = (t - 1 + n) % n {
			path = append(path, cycle[t])
			if t == j {
				break
			}
			pathLinks = append(pathLinks, linkFromCycle(cycleLinks[(t-1+n)%n].Reverse()))
		}
	}

	// thread the path into the tree: the entry child hangs under the
	// old parent, the matched peer under the exit child
	m.replaceChild(parent, blossom, path[0])
	prev := parent
	prevLink := plainLink(upEdge, upMy, upPeer)
	for t, node := range path {
		rn := m.rec(node)
		rn.treeParent = prev
		rn.parentLink = prevLink
		rn.depth = depth + t
		rn.children = nil
		if t < len(path)-1 {
			rn.children = []*dual.Node{path[t+1]}
			prev = node
			prevLink = pathLinks[t].reverse()
		}
		if t%2 == 0 {
			m.dual.SetGrowState(node, dual.Shrink)
		} else {
			m.dual.SetGrowState(node, dual.Grow)
		}
	}
	for t := 0; t+1 < len(path); t += 2 {
		m.setMatch(path[t], path[t+1], pathLinks[t])
	}
	last := path[len(path)-1]
	m.rec(last).children = []*dual.Node{peer}
	m.setMatch(last, peer, plainLink(downEdge, downMy, downPeer))
	rPeer := m.rec(peer)
	rPeer.treeParent = last
	rPeer.parentLink = plainLink(downEdge, downPeer, downMy)
	m.renumberDepths(peer, depth+len(path))

	// remaining children pair up around the unused side of the cycle
	var off []*dual.Node
	var offLinks []Link
	if forwardLinks%2 == 0 {
		for t := (j + 1) % n; t != i; t = (t + 1) % n {
			off = append(off, cycle[t])
			offLinks = append(offLinks, linkFromCycle(cycleLinks[t]))
		}
	} else {
		for t := (j - 1 + n) % n; t != i; t = (t - 1 + n) % n {
			off = append(off, cycle[t])
			offLinks = append(offLinks, linkFromCycle(cycleLinks[(t-1+n)%n].Reverse()))
		}
	}
	for t := 0; t+1 < len(off); t += 2 {
		a, b := off[t], off[t+1]
		ra := m.rec(a)
		ra.treeParent, ra.depth, ra.children = nil, -1, nil
		rb := m.rec(b)
		rb.treeParent, rb.depth, rb.children = nil, -1, nil
		m.setMatch(a, b, offLinks[t])
		m.dual.SetGrowState(a, dual.Stay)
		m.dual.SetGrowState(b, dual.Stay)
	}

	var shrinkingCluster *dual.Node
	for t := 0; t < len(path); t += 2 {
		if path[t].Cluster {
			shrinkingCluster = path[t]
			break
		}
	}
	m.afterTreeMutation(m.root(parent), shrinkingCluster)
	return true
}

func indexOf(nodes []*dual.Node, n *dual.Node) int {
	for i, c := range nodes {
		if c == n {
			return i
		}
	}
	panic(fmt.Sprintf("primal: node %v not found in cycle", n))
}
