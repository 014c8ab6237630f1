package visualize

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/qecdec/fusionmatch/pkg/decoding"
	"github.com/qecdec/fusionmatch/pkg/dual"
	"github.com/qecdec/fusionmatch/pkg/primal"
)

// FormatName tags snapshot files for the external viewer.
const FormatName = "fusion_blossom"

// Position is a vertex coordinate in the viewer's space.
type Position struct {
	I float64 `json:"i"`
	J float64 `json:"j"`
	T float64 `json:"t"`
}

// VertexEntry is one vertex of a snapshot.
type VertexEntry struct {
	Defect  int  `json:"s"`
	Virtual int  `json:"v"`
	Owner   *int `json:"p,omitempty"`
	Mirror  *int `json:"mi,omitempty"`
	Enabled *int `json:"me,omitempty"`
}

// EdgeEntry is one edge of a snapshot, growth clamped for display.
type EdgeEntry struct {
	Left       int             `json:"l"`
	Right      int             `json:"r"`
	Weight     decoding.Weight `json:"w"`
	LeftGrown  decoding.Weight `json:"lg"`
	RightGrown decoding.Weight `json:"rg"`
	LeftOwner  *int            `json:"ld,omitempty"`
	RightOwner *int            `json:"rd,omitempty"`
}

// DualNodeEntry is one dual node; removed nodes serialize as null.
type DualNodeEntry struct {
	Dual     decoding.Weight `json:"d"`
	Parent   *int            `json:"p"`
	Children []int           `json:"o,omitempty"`
	Boundary []int           `json:"b,omitempty"`
	Defect   *int            `json:"s,omitempty"`
}

// PrimalTreeEntry describes a node's alternating-tree position.
type PrimalTreeEntry struct {
	Depth  int  `json:"d"`
	Parent *int `json:"p,omitempty"`
}

// PrimalMatchEntry describes a node's match target.
type PrimalMatchEntry struct {
	Peer    *int `json:"p,omitempty"`
	Virtual *int `json:"v,omitempty"`
}

// PrimalNodeEntry is one primal record; absent records are null.
type PrimalNodeEntry struct {
	Tree     *PrimalTreeEntry  `json:"t,omitempty"`
	Match    *PrimalMatchEntry `json:"m,omitempty"`
	Children []int             `json:"o,omitempty"`
}

// Snapshot is one captured solver state.
type Snapshot struct {
	Vertices    []VertexEntry      `json:"vertices"`
	Edges       []EdgeEntry        `json:"edges"`
	DualNodes   []*DualNodeEntry   `json:"dual_nodes"`
	PrimalNodes []*PrimalNodeEntry `json:"primal_nodes"`
	Subgraph    []int              `json:"subgraph,omitempty"`
}

// Visualizer accumulates snapshots of a running solve.
type Visualizer struct {
	positions []Position
	snapshots []namedSnapshot
}

type namedSnapshot struct {
	name     string
	snapshot *Snapshot
}

// New creates a visualizer with one position per graph vertex.
func New(positions []Position) *Visualizer {
	return &Visualizer{positions: positions}
}

// Snapshot captures the current state of the modules under a name.
func (v *Visualizer) Snapshot(name string, d *dual.Module, p *primal.Module) {
	v.snapshots = append(v.snapshots, namedSnapshot{name: name, snapshot: capture(d, p, nil)})
}

// TerminalSnapshot captures the final state together with the solved
// parity subgraph.
func (v *Visualizer) TerminalSnapshot(name string, d *dual.Module, p *primal.Module, subgraph []int) {
	v.snapshots = append(v.snapshots, namedSnapshot{name: name, snapshot: capture(d, p, subgraph)})
}

// capture walks the store and the node arena into viewer entries.
func capture(d *dual.Module, p *primal.Module, subgraph []int) *Snapshot {
	store := d.Store()
	g := store.Graph()
	nodes := d.Nodes()
	index := make(map[*dual.Node]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}
	ownerIndex := func(vertex int) *int {
		owner := d.VertexOwner(vertex)
		if owner == nil {
			return nil
		}
		i, ok := index[owner]
		if !ok {
			return nil
		}
		return &i
	}

	snap := &Snapshot{Subgraph: subgraph}
	for vertex := 0; vertex < g.VertexNum(); vertex++ {
		vs := store.Vertex(vertex)
		entry := VertexEntry{
			Defect:  boolFlag(vs.IsDefect),
			Virtual: boolFlag(g.IsVirtual(vertex)),
			Owner:   ownerIndex(vertex),
		}
		if vs.MirrorUnit >= 0 {
			mi := vs.MirrorUnit
			me := boolFlag(store.UnitEnabled(mi))
			entry.Mirror, entry.Enabled = &mi, &me
		}
		snap.Vertices = append(snap.Vertices, entry)
	}
	for e := 0; e < g.EdgeNum(); e++ {
		left, right := g.Endpoints(e)
		lg, rg := d.EdgeGrowth(e)
		w := store.Weight(e)
		// clamp interior overshoot for display
		if lg > w {
			lg = w
		}
		if lg+rg > w {
			rg = w - lg
		}
		snap.Edges = append(snap.Edges, EdgeEntry{
			Left: left, Right: right, Weight: w,
			LeftGrown: lg, RightGrown: rg,
			LeftOwner: ownerIndex(left), RightOwner: ownerIndex(right),
		})
	}
	for _, n := range nodes {
		if n.Removed() {
			snap.DualNodes = append(snap.DualNodes, nil)
			snap.PrimalNodes = append(snap.PrimalNodes, nil)
			continue
		}
		dn := &DualNodeEntry{Dual: n.Dual, Boundary: n.BoundaryEdges()}
		if n.Parent != nil {
			if i, ok := index[n.Parent]; ok {
				dn.Parent = &i
			}
		}
		if n.Kind == dual.Syndrome {
			seed := n.Seed
			dn.Defect = &seed
		} else {
			for _, child := range n.Cycle {
				if i, ok := index[child]; ok {
					dn.Children = append(dn.Children, i)
				}
			}
		}
		snap.DualNodes = append(snap.DualNodes, dn)

		view, ok := p.View(n)
		if !ok {
			snap.PrimalNodes = append(snap.PrimalNodes, nil)
			continue
		}
		pn := &PrimalNodeEntry{Children: dn.Children}
		if view.InTree {
			tree := &PrimalTreeEntry{Depth: view.Depth}
			if view.TreeParent != nil {
				if i, ok := index[view.TreeParent]; ok {
					tree.Parent = &i
				}
			}
			pn.Tree = tree
		}
		switch {
		case view.Peer != nil:
			if i, ok := index[view.Peer]; ok {
				pn.Match = &PrimalMatchEntry{Peer: &i}
			}
		case view.VirtualMatch >= 0:
			vm := view.VirtualMatch
			pn.Match = &PrimalMatchEntry{Virtual: &vm}
		}
		snap.PrimalNodes = append(snap.PrimalNodes, pn)
	}
	return snap
}

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// MarshalJSON emits the top-level viewer object with snapshots as
// [name, snapshot] tuples.
func (v *Visualizer) MarshalJSON() ([]byte, error) {
	tuples := make([][2]any, len(v.snapshots))
	for i, ns := range v.snapshots {
		tuples[i] = [2]any{ns.name, ns.snapshot}
	}
	return json.Marshal(map[string]any{
		"format":    FormatName,
		"positions": v.positions,
		"snapshots": tuples,
	})
}

// SaveFile writes the snapshot file, one JSON object terminated by a
// newline, the framing the external viewer expects.
func (v *Visualizer) SaveFile(path string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshots: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
