// Package solver glues the dual and primal modules into the
// user-facing decoders. [SerialSolver] runs the whole blossom
// algorithm in one thread; the parallel variants live in package
// parallel and satisfy the same [Solver] interface.
//
// A solver is built once per decoding graph and reused: solve, read
// the subgraph or matching, clear, solve again. Solving twice without
// clearing is a caller error.
//
// The package also carries the reference verifier used by tests and
// the benchmark's --verifier mode: an exact minimum-weight perfect
// matching on the induced defect complete graph, computed with
// Dijkstra distances and a bitmask dynamic program. It is exponential
// in the defect count and meant for cross-checking, not decoding.
package solver
