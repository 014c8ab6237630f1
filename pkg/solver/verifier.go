package solver

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/qecdec/fusionmatch/pkg/decoding"
)

var (
	// ErrTooManyDefects is returned by the reference matcher when the
	// bitmask dynamic program would not fit; it is a cross-checking
	// tool for small syndromes, not a decoder.
	ErrTooManyDefects = errors.New("too many defects for the reference matcher")

	// ErrParityViolation is returned by VerifySubgraph when the
	// subgraph leaves a real vertex with the wrong parity.
	ErrParityViolation = errors.New("subgraph violates vertex parity")

	// ErrWeightMismatch is returned by VerifySubgraph when the
	// subgraph weight differs from the reference optimum.
	ErrWeightMismatch = errors.New("subgraph weight is not optimal")
)

const maxReferenceDefects = 20

// EffectiveWeights returns the per-edge weights of one solve: the
// graph weights with the pattern's erasures and dynamic overrides
// applied.
func EffectiveWeights(g *decoding.Graph, pattern *decoding.SyndromePattern) []decoding.Weight {
	weights := make([]decoding.Weight, g.EdgeNum())
	for e := range weights {
		weights[e] = g.Weight(e)
	}
	for _, e := range pattern.Erasures {
		weights[e] = 0
	}
	for _, dw := range pattern.DynamicWeights {
		weights[dw.EdgeIndex] = dw.Weight
	}
	return weights
}

// SubgraphWeight sums the effective weights of the chosen edges.
func SubgraphWeight(g *decoding.Graph, pattern *decoding.SyndromePattern, subgraph []int) decoding.Weight {
	weights := EffectiveWeights(g, pattern)
	var total decoding.Weight
	for _, e := range subgraph {
		total += weights[e]
	}
	return total
}

// VerifyParity checks that the subgraph has odd incidence at every
// defect vertex and even incidence at every other real vertex.
func VerifyParity(g *decoding.Graph, pattern *decoding.SyndromePattern, subgraph []int) error {
	degree := make([]int, g.VertexNum())
	for _, e := range subgraph {
		l, r := g.Endpoints(e)
		degree[l]++
		degree[r]++
	}
	isDefect := make([]bool, g.VertexNum())
	for _, v := range pattern.DefectVertices {
		isDefect[v] = true
	}
	for v := 0; v < g.VertexNum(); v++ {
		if g.IsVirtual(v) {
			continue
		}
		want := 0
		if isDefect[v] {
			want = 1
		}
		if degree[v]%2 != want {
			return fmt.Errorf("vertex %d has degree %d: %w", v, degree[v], ErrParityViolation)
		}
	}
	return nil
}

// VerifySubgraph checks a decoder's output against the two testable
// guarantees: parity correctness and total weight equal to the
// reference optimum.
func VerifySubgraph(g *decoding.Graph, pattern *decoding.SyndromePattern, subgraph []int) error {
	if err := VerifyParity(g, pattern, subgraph); err != nil {
		return err
	}
	reference, err := ReferenceWeight(g, pattern)
	if err != nil {
		return err
	}
	if got := SubgraphWeight(g, pattern, subgraph); got != reference {
		return fmt.Errorf("subgraph weight %d, reference %d: %w", got, reference, ErrWeightMismatch)
	}
	return nil
}

// ReferenceWeight computes the exact minimum-weight perfect matching
// on the induced defect complete graph, where each defect may also
// match the nearest virtual boundary. Distances come from per-defect
// Dijkstra runs over the effective weights; the matching itself is a
// bitmask dynamic program, exponential in the defect count.
func ReferenceWeight(g *decoding.Graph, pattern *decoding.SyndromePattern) (decoding.Weight, error) {
	defects := pattern.DefectVertices
	n := len(defects)
	if n%2 == 1 && len(g.VirtualVertices()) == 0 {
		return 0, fmt.Errorf("odd defect count %d with no boundary", n)
	}
	if n > maxReferenceDefects {
		return 0, fmt.Errorf("%d defects: %w", n, ErrTooManyDefects)
	}
	weights := EffectiveWeights(g, pattern)

	const unreachable = decoding.MaxWeight
	pairwise := make([][]decoding.Weight, n)
	boundary := make([]decoding.Weight, n)
	for i, v := range defects {
		dist := dijkstra(g, weights, v)
		pairwise[i] = make([]decoding.Weight, n)
		for j, u := range defects {
			pairwise[i][j] = dist[u]
		}
		boundary[i] = unreachable
		for _, x := range g.VirtualVertices() {
			if dist[x] < boundary[i] {
				boundary[i] = dist[x]
			}
		}
	}

	memo := make([]decoding.Weight, 1<<n)
	for i := range memo {
		memo[i] = -1
	}
	var solve func(mask int) decoding.Weight
	solve = func(mask int) decoding.Weight {
		if mask == 0 {
			return 0
		}
		if memo[mask] >= 0 {
			return memo[mask]
		}
		i := 0
		for mask&(1<<i) == 0 {
			i++
		}
		best := unreachable
		if boundary[i] < unreachable {
			if rest := solve(mask &^ (1 << i)); rest < unreachable && boundary[i]+rest < best {
				best = boundary[i] + rest
			}
		}
		for j := i + 1; j < n; j++ {
			if mask&(1<<j) == 0 || pairwise[i][j] == unreachable {
				continue
			}
			if rest := solve(mask &^ (1 << i) &^ (1 << j)); rest < unreachable && pairwise[i][j]+rest < best {
				best = pairwise[i][j] + rest
			}
		}
		memo[mask] = best
		return best
	}
	best := solve((1 << n) - 1)
	if best == unreachable {
		return 0, fmt.Errorf("defects cannot be matched on this graph")
	}
	return best, nil
}

// dijkstra returns shortest distances from source over the effective
// weights; unreachable vertices get MaxWeight.
func dijkstra(g *decoding.Graph, weights []decoding.Weight, source int) []decoding.Weight {
	dist := make([]decoding.Weight, g.VertexNum())
	for i := range dist {
		dist[i] = decoding.MaxWeight
	}
	dist[source] = 0
	pq := &distHeap{{vertex: source, dist: 0}}
	for pq.Len() > 0 {
		item := heap.Pop(pq).(distItem)
		if item.dist > dist[item.vertex] {
			continue
		}
		for _, e := range g.Neighbors(item.vertex) {
			u := g.OtherEndpoint(e, item.vertex)
			if next := item.dist + weights[e]; next < dist[u] {
				dist[u] = next
				heap.Push(pq, distItem{vertex: u, dist: next})
			}
		}
	}
	return dist
}

type distItem struct {
	vertex int
	dist   decoding.Weight
}

type distHeap []distItem

func (h distHeap) Len() int           { return len(h) }
func (h distHeap) Less(i, j int) bool { return h[i].dist < h[j].dist }
func (h distHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *distHeap) Push(x any)        { *h = append(*h, x.(distItem)) }
func (h *distHeap) Pop() any {
	old := *h
	item := old[len(old)-1]
	*h = old[:len(old)-1]
	return item
}
