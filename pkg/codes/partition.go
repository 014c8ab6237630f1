package codes

import (
	"errors"
	"fmt"

	"github.com/qecdec/fusionmatch/pkg/decoding"
	"github.com/qecdec/fusionmatch/pkg/partition"
)

// ErrBadPartitionCount is returned when a partition strategy cannot
// produce the requested number of units.
var ErrBadPartitionCount = errors.New("invalid partition unit count")

// TimePartition cuts a phenomenological code into unitCount blocks of
// whole measurement rounds along the time axis, one interface round
// between adjacent blocks, and a balanced binary fusion tree over the
// blocks.
func TimePartition(c *PhenomenologicalPlanarCode, unitCount int) (*partition.Config, error) {
	rounds := c.Rounds()
	if unitCount < 2 || rounds < 2*unitCount-1 {
		return nil, fmt.Errorf("%d units over %d rounds: %w", unitCount, rounds, ErrBadPartitionCount)
	}
	owned := rounds - (unitCount - 1) // rounds left after the interfaces
	cfg := &partition.Config{VertexNum: rounds * c.LayerSize()}
	round := 0
	for i := 0; i < unitCount; i++ {
		take := owned / unitCount
		if i < owned%unitCount {
			take++
		}
		cfg.Partitions = append(cfg.Partitions, decoding.NewRange(
			round*c.LayerSize(), (round+take)*c.LayerSize()))
		round += take + 1 // skip the interface round
	}
	cfg.Fusions = balancedFusions(unitCount)
	return cfg, nil
}

// balancedFusions pairs units into a balanced binary fusion tree:
// adjacent units fuse level by level, respecting the time order so
// every fused range stays contiguous.
func balancedFusions(unitCount int) [][2]int {
	var fusions [][2]int
	level := make([]int, unitCount)
	for i := range level {
		level[i] = i
	}
	next := unitCount
	for len(level) > 1 {
		var parents []int
		for i := 0; i+1 < len(level); i += 2 {
			fusions = append(fusions, [2]int{level[i], level[i+1]})
			parents = append(parents, next)
			next++
		}
		if len(level)%2 == 1 {
			parents = append(parents, level[len(level)-1])
		}
		level = parents
	}
	return fusions
}
