package decoding

import (
	"encoding/json"
	"fmt"
)

// IndexRange is a half-open index interval [Start, End). Partition
// specs use it for vertex ranges; it serializes as a two-element JSON
// array for compatibility with external tooling.
type IndexRange struct {
	Start int
	End   int
}

// NewRange builds the range [start, end). It panics if end < start;
// ranges are produced by trusted planner code, not parsed input.
func NewRange(start, end int) IndexRange {
	if end < start {
		panic(fmt.Sprintf("decoding: invalid range [%d, %d)", start, end))
	}
	return IndexRange{Start: start, End: end}
}

// Len returns the number of indices in the range.
func (r IndexRange) Len() int { return r.End - r.Start }

// IsEmpty reports whether the range contains no indices.
func (r IndexRange) IsEmpty() bool { return r.End == r.Start }

// Contains reports whether i lies inside the range.
func (r IndexRange) Contains(i int) bool { return i >= r.Start && i < r.End }

// Fuse combines r with a strictly higher range, returning the covering
// range and the gap between the two. The gap is the interface region
// owned by the fusion unit.
func (r IndexRange) Fuse(other IndexRange) (whole, interfaceRange IndexRange) {
	if r.End > other.Start {
		panic(fmt.Sprintf("decoding: cannot fuse overlapping ranges [%d,%d) and [%d,%d)",
			r.Start, r.End, other.Start, other.End))
	}
	return NewRange(r.Start, other.End), NewRange(r.End, other.Start)
}

// MarshalJSON encodes the range as [start, end].
func (r IndexRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Start, r.End})
}

// UnmarshalJSON decodes a [start, end] pair.
func (r *IndexRange) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if pair[1] < pair[0] {
		return fmt.Errorf("invalid range [%d, %d)", pair[0], pair[1])
	}
	r.Start, r.End = pair[0], pair[1]
	return nil
}

// UnmarshalTOML decodes a [start, end] pair from TOML config files.
func (r *IndexRange) UnmarshalTOML(data any) error {
	pair, ok := data.([]any)
	if !ok || len(pair) != 2 {
		return fmt.Errorf("range must be a [start, end] pair, got %v", data)
	}
	start, okS := pair[0].(int64)
	end, okE := pair[1].(int64)
	if !okS || !okE || end < start {
		return fmt.Errorf("invalid range %v", data)
	}
	r.Start, r.End = int(start), int(end)
	return nil
}

func (r IndexRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}
