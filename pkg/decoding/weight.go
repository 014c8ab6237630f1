//go:build !fm_weight32

package decoding

import "math"

// Weight is the integer weight type used for edge weights and dual
// variables. The default build uses 64-bit weights; building with the
// fm_weight32 tag switches the whole module to 32-bit weights, which
// halves the memory of the edge-growth arrays on large graphs.
type Weight = int64

// MaxWeight is the largest representable weight. It doubles as the
// "unbounded" sentinel for maximum update lengths.
const MaxWeight = Weight(math.MaxInt64)
