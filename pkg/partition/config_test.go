package partition

import (
	"errors"
	"testing"

	"github.com/qecdec/fusionmatch/pkg/decoding"
)

func twoUnitConfig() *Config {
	// vertices 0..9, interface vertex 4 owned by the fusion unit
	return &Config{
		VertexNum: 10,
		Partitions: []decoding.IndexRange{
			decoding.NewRange(0, 4),
			decoding.NewRange(5, 10),
		},
		Fusions: [][2]int{{0, 1}},
	}
}

func TestInfo_TwoUnits(t *testing.T) {
	info, err := twoUnitConfig().Info()
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.UnitNum() != 3 || info.LeafNum() != 2 || info.Root() != 2 {
		t.Fatalf("unit counts wrong: %d units, %d leaves, root %d", info.UnitNum(), info.LeafNum(), info.Root())
	}
	rootUnit := info.Units[2]
	if rootUnit.WholeRange != decoding.NewRange(0, 10) {
		t.Errorf("root whole range = %v, want [0, 10)", rootUnit.WholeRange)
	}
	if rootUnit.OwningRange != decoding.NewRange(4, 5) {
		t.Errorf("root owning range = %v, want [4, 5)", rootUnit.OwningRange)
	}
	if rootUnit.Children != [2]int{0, 1} {
		t.Errorf("root children = %v, want (0, 1)", rootUnit.Children)
	}
	if info.Units[0].Parent != 2 || info.Units[1].Parent != 2 {
		t.Errorf("leaf parents = (%d, %d), want (2, 2)", info.Units[0].Parent, info.Units[1].Parent)
	}
	if info.VertexToOwningUnit[4] != 2 || info.VertexToOwningUnit[3] != 0 || info.VertexToOwningUnit[5] != 1 {
		t.Errorf("vertex ownership wrong: %v", info.VertexToOwningUnit)
	}
}

func TestInfo_FourUnitTree(t *testing.T) {
	cfg := &Config{
		VertexNum: 22,
		Partitions: []decoding.IndexRange{
			decoding.NewRange(0, 5),
			decoding.NewRange(6, 11),
			decoding.NewRange(12, 16),
			decoding.NewRange(17, 22),
		},
		Fusions: [][2]int{{0, 1}, {2, 3}, {4, 5}},
	}
	info, err := cfg.Info()
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.UnitNum() != 7 {
		t.Fatalf("UnitNum() = %d, want 7", info.UnitNum())
	}
	root := info.Units[6]
	if root.OwningRange != decoding.NewRange(11, 12) {
		t.Errorf("root owning = %v, want [11, 12)", root.OwningRange)
	}
	if len(root.Leaves) != 4 || len(root.Descendants) != 6 {
		t.Errorf("root leaves %v descendants %v", root.Leaves, root.Descendants)
	}
	if info.Units[4].IsLeaf() {
		t.Errorf("unit 4 should be a fusion unit")
	}
	if !info.Units[0].IsLeaf() {
		t.Errorf("unit 0 should be a leaf")
	}
}

func TestInfo_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"no partitions", func(c *Config) { c.Partitions = nil; c.Fusions = nil }, ErrNoPartitions},
		{"range out of bounds", func(c *Config) { c.Partitions[1] = decoding.NewRange(5, 11) }, ErrRangeOutOfBounds},
		{"overlap", func(c *Config) { c.Partitions[1] = decoding.NewRange(3, 10) }, ErrRangeOverlap},
		{"fusion order", func(c *Config) { c.Fusions[0] = [2]int{0, 2} }, ErrFusionOrder},
		{"incomplete cover", func(c *Config) { c.Partitions[1] = decoding.NewRange(5, 9) }, ErrIncompleteCover},
		{
			"double fusion",
			func(c *Config) {
				c.Partitions = append(c.Partitions, decoding.NewRange(10, 10))
				c.Fusions = [][2]int{{0, 1}, {0, 2}}
			},
			ErrDoubleFusion,
		},
		{
			"unfused unit",
			func(c *Config) {
				c.Partitions = append(c.Partitions, decoding.NewRange(10, 10))
				c.Fusions = [][2]int{{0, 1}}
			},
			ErrUnfusedUnit,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := twoUnitConfig()
			tt.mutate(cfg)
			_, err := cfg.Info()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Info() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitDefects(t *testing.T) {
	info, err := twoUnitConfig().Info()
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	split := info.SplitDefects(decoding.NewSyndromePattern(1, 4, 7, 9))
	if len(split[0]) != 1 || split[0][0] != 1 {
		t.Errorf("unit 0 defects = %v, want [1]", split[0])
	}
	if len(split[1]) != 2 || split[1][0] != 7 || split[1][1] != 9 {
		t.Errorf("unit 1 defects = %v, want [7 9]", split[1])
	}
	if len(split[2]) != 1 || split[2][0] != 4 {
		t.Errorf("unit 2 defects = %v, want [4]", split[2])
	}
}
