package codes

import (
	"math/rand"

	"github.com/qecdec/fusionmatch/pkg/decoding"
)

// SampleSyndrome draws one random syndrome from a code: every edge
// flips independently with its error probability and each real vertex
// with odd incident flips becomes a defect. Virtual vertices absorb
// their parity. The returned error edges let a verifier check the
// decoded subgraph against the actual error.
func SampleSyndrome(c Code, rng *rand.Rand) (pattern *decoding.SyndromePattern, errorEdges []int) {
	ini := c.Initializer()
	parity := make([]bool, ini.VertexNum)
	for e, edge := range ini.WeightedEdges {
		if rng.Float64() >= c.ErrorProbability(e) {
			continue
		}
		errorEdges = append(errorEdges, e)
		parity[edge.Left] = !parity[edge.Left]
		parity[edge.Right] = !parity[edge.Right]
	}
	isVirtual := make(map[int]bool, len(ini.VirtualVertices))
	for _, v := range ini.VirtualVertices {
		isVirtual[v] = true
	}
	pattern = &decoding.SyndromePattern{DefectVertices: []int{}}
	for v, odd := range parity {
		if odd && !isVirtual[v] {
			pattern.DefectVertices = append(pattern.DefectVertices, v)
		}
	}
	return pattern, errorEdges
}
