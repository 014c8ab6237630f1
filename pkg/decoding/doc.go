// Package decoding defines the shared data model for the MWPM decoder:
// the sparse weighted decoding graph, the syndrome pattern fed into a
// solve, and the matching/subgraph shapes produced by one.
//
// A decoding graph is built once from a [SolverInitializer] and reused
// across many solves. Vertices are dense indices in [0, VertexNum);
// edges are dense indices in [0, EdgeNum). Virtual vertices model open
// code boundaries: they carry no parity constraint and may absorb one
// match each per solve.
//
// Weights are non-negative integers of type [Weight]. Callers must
// scale probabilities into integer weights themselves; sums of weights
// along any path are assumed to fit in the weight type without
// overflow.
package decoding
