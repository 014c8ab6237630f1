//go:build fm_weight32

package decoding

import "math"

// Weight is the integer weight type used for edge weights and dual
// variables. This build uses 32-bit weights.
type Weight = int32

// MaxWeight is the largest representable weight. It doubles as the
// "unbounded" sentinel for maximum update lengths.
const MaxWeight = Weight(math.MaxInt32)
