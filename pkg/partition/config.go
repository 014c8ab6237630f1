package partition

import (
	"errors"
	"fmt"

	"github.com/qecdec/fusionmatch/pkg/decoding"
)

var (
	// ErrNoPartitions is returned by [Config.Info] when the config
	// names no leaf partitions.
	ErrNoPartitions = errors.New("at least one partition must exist")

	// ErrRangeOutOfBounds is returned by [Config.Info] when a
	// partition range reaches outside [0, VertexNum).
	ErrRangeOutOfBounds = errors.New("partition range out of bounds")

	// ErrRangeOverlap is returned by [Config.Info] when the ranges of
	// two fused subtrees overlap or are out of ascending order.
	ErrRangeOverlap = errors.New("partition ranges overlap")

	// ErrFusionOrder is returned by [Config.Info] when a fusion refers
	// to a unit that does not exist yet; fusions must list children
	// before parents.
	ErrFusionOrder = errors.New("fusion depends on a later unit")

	// ErrDoubleFusion is returned by [Config.Info] when a unit appears
	// as a child of two fusions.
	ErrDoubleFusion = errors.New("unit fused twice")

	// ErrUnfusedUnit is returned by [Config.Info] when a non-root unit
	// is never fused; the fusion plan must form one full binary tree.
	ErrUnfusedUnit = errors.New("unit never fused")

	// ErrIncompleteCover is returned by [Config.Info] when the root
	// unit's range does not cover [0, VertexNum) exactly.
	ErrIncompleteCover = errors.New("fusion tree does not cover all vertices")
)

// Config is the user-supplied partition spec: the number of vertices,
// the leaf vertex ranges, and the fusion plan. Fusion i creates unit
// len(Partitions)+i from the two named child units.
type Config struct {
	VertexNum  int                   `json:"vertex_num" toml:"vertex_num"`
	Partitions []decoding.IndexRange `json:"partitions" toml:"partitions"`
	Fusions    [][2]int              `json:"fusions" toml:"fusions"`
}

// NewConfig returns the trivial config with a single partition
// covering every vertex and no fusions.
func NewConfig(vertexNum int) *Config {
	return &Config{
		VertexNum:  vertexNum,
		Partitions: []decoding.IndexRange{decoding.NewRange(0, vertexNum)},
	}
}

// UnitInfo describes one unit of the fusion tree. Leaf units own their
// partition range; fusion units own only the interface vertices
// between their children's whole ranges.
type UnitInfo struct {
	// WholeRange covers every vertex visible to the unit: its owning
	// range plus everything covered by its descendants.
	WholeRange decoding.IndexRange `json:"whole_range"`
	// OwningRange covers the vertices exclusively owned by the unit.
	OwningRange decoding.IndexRange `json:"owning_range"`
	// Children holds the two fused child units, or (-1, -1) for a leaf.
	Children [2]int `json:"children"`
	// Parent is the fusing unit, or -1 for the root.
	Parent int `json:"parent"`
	// Leaves lists the leaf units under this unit (itself, for a leaf).
	Leaves []int `json:"leaves"`
	// Descendants lists every unit strictly below this one.
	Descendants []int `json:"descendants"`
}

// IsLeaf reports whether the unit is a base partition.
func (u *UnitInfo) IsLeaf() bool { return u.Children[0] < 0 }

// Info is the validated partition plan: one [UnitInfo] per unit, in
// unit-index order (leaves first, fusions after), plus the
// vertex-to-owning-unit table.
type Info struct {
	Config             Config     `json:"config"`
	Units              []UnitInfo `json:"units"`
	VertexToOwningUnit []int      `json:"vertex_to_owning_unit"`
}

// UnitNum returns the total number of units, fusion units included.
func (info *Info) UnitNum() int { return len(info.Units) }

// LeafNum returns the number of base partitions.
func (info *Info) LeafNum() int { return len(info.Config.Partitions) }

// Root returns the index of the root unit.
func (info *Info) Root() int { return len(info.Units) - 1 }

// Info validates the config and expands it into per-unit descriptors.
// All violations are reported as configuration errors; none panic.
func (c *Config) Info() (*Info, error) {
	if len(c.Partitions) == 0 {
		return nil, ErrNoPartitions
	}
	unitNum := len(c.Partitions) + len(c.Fusions)
	wholeRanges := make([]decoding.IndexRange, 0, unitNum)
	owningRanges := make([]decoding.IndexRange, 0, unitNum)
	for i, p := range c.Partitions {
		if p.Start < 0 || p.End > c.VertexNum {
			return nil, fmt.Errorf("partition %d %v: %w", i, p, ErrRangeOutOfBounds)
		}
		wholeRanges = append(wholeRanges, p)
		owningRanges = append(owningRanges, p)
	}
	parents := make([]int, unitNum)
	for i := range parents {
		parents[i] = -1
	}
	for fusionIndex, fusion := range c.Fusions {
		unitIndex := len(c.Partitions) + fusionIndex
		left, right := fusion[0], fusion[1]
		if left < 0 || left >= unitIndex || right < 0 || right >= unitIndex {
			return nil, fmt.Errorf("fusion %d (%d, %d): %w", fusionIndex, left, right, ErrFusionOrder)
		}
		if parents[left] >= 0 {
			return nil, fmt.Errorf("unit %d: %w", left, ErrDoubleFusion)
		}
		if parents[right] >= 0 {
			return nil, fmt.Errorf("unit %d: %w", right, ErrDoubleFusion)
		}
		parents[left] = unitIndex
		parents[right] = unitIndex
		if wholeRanges[left].End > wholeRanges[right].Start {
			return nil, fmt.Errorf("fusion %d: ranges %v and %v: %w",
				fusionIndex, wholeRanges[left], wholeRanges[right], ErrRangeOverlap)
		}
		whole, interfaceRange := wholeRanges[left].Fuse(wholeRanges[right])
		wholeRanges = append(wholeRanges, whole)
		owningRanges = append(owningRanges, interfaceRange)
	}
	for unitIndex, parent := range parents[:unitNum-1] {
		if parent < 0 {
			return nil, fmt.Errorf("unit %d: %w", unitIndex, ErrUnfusedUnit)
		}
	}
	root := wholeRanges[unitNum-1]
	if root.Start != 0 || root.End != c.VertexNum {
		return nil, fmt.Errorf("root covers %v of [0, %d): %w", root, c.VertexNum, ErrIncompleteCover)
	}

	units := make([]UnitInfo, unitNum)
	for i := range units {
		units[i] = UnitInfo{
			WholeRange:  wholeRanges[i],
			OwningRange: owningRanges[i],
			Children:    [2]int{-1, -1},
			Parent:      parents[i],
		}
		if i >= len(c.Partitions) {
			units[i].Children = c.Fusions[i-len(c.Partitions)]
		} else {
			units[i].Leaves = []int{i}
		}
	}
	for fusionIndex := range c.Fusions {
		unitIndex := len(c.Partitions) + fusionIndex
		left, right := units[unitIndex].Children[0], units[unitIndex].Children[1]
		units[unitIndex].Leaves = append(units[unitIndex].Leaves, units[left].Leaves...)
		units[unitIndex].Leaves = append(units[unitIndex].Leaves, units[right].Leaves...)
		units[unitIndex].Descendants = append(units[unitIndex].Descendants, left, right)
		units[unitIndex].Descendants = append(units[unitIndex].Descendants, units[left].Descendants...)
		units[unitIndex].Descendants = append(units[unitIndex].Descendants, units[right].Descendants...)
	}

	vertexToOwningUnit := make([]int, c.VertexNum)
	for i := range vertexToOwningUnit {
		vertexToOwningUnit[i] = -1
	}
	for unitIndex, unit := range units {
		for v := unit.OwningRange.Start; v < unit.OwningRange.End; v++ {
			vertexToOwningUnit[v] = unitIndex
		}
	}
	return &Info{Config: *c, Units: units, VertexToOwningUnit: vertexToOwningUnit}, nil
}

// SplitDefects scatters a syndrome's defect vertices onto the units
// owning them. The result has one slice per unit; defects keep their
// original order.
func (info *Info) SplitDefects(pattern *decoding.SyndromePattern) [][]int {
	perUnit := make([][]int, len(info.Units))
	for _, defect := range pattern.DefectVertices {
		unit := info.VertexToOwningUnit[defect]
		perUnit[unit] = append(perUnit[unit], defect)
	}
	return perUnit
}
