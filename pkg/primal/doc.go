// Package primal implements the alternating-tree and blossom side of
// the MWPM solver. It drives a dual module through the narrow
// capability set exposed by package dual: grow until an obstacle,
// resolve the obstacle, repeat.
//
// Obstacles resolve into the four classic moves: augmenting along a
// path (freeing both trees), growing a tree by absorbing a matched
// pair, shrinking an odd cycle into a blossom, and expanding a
// blossom whose dual returned to zero. Obstacles reported at the same
// instant are consumed in the dual module's canonical order; events
// staled by an earlier resolution are skipped.
//
// An optional tree-size bound degrades the algorithm gracefully
// towards a union-find decoder: a tree that outgrows the bound is
// collapsed into a single cluster node whose internal structure is no
// longer tracked. With the bound unset the solver is exact.
//
// After the event loop quiesces the final matching is read back as a
// perfect matching on the defect set and as the minimum-weight parity
// subgraph on the decoding graph.
package primal
