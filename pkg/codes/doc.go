// Package codes generates example QEC decoding graphs and random
// syndromes for benchmarks and tests: a code-capacity repetition code,
// a code-capacity planar code, and a phenomenological planar code with
// noisy measurement rounds.
//
// Each code yields a [decoding.SolverInitializer], per-vertex
// visualizer positions and a generic edge-flip syndrome sampler.
// Probabilities translate into even integer edge weights via the
// log-likelihood ratio, scaled by 500 by default so that typical
// weights sit in the low thousands (1472 at p = 0.05); exact decoders
// only care about weight ratios.
//
// The phenomenological code lays vertices out round-by-round, so the
// time-axis partition strategy can cut contiguous vertex ranges with
// single-round interfaces between units, as the parallel solver
// requires.
package codes
