// Package partition turns a user partition spec into the per-unit
// descriptors consumed by the parallel solver.
//
// A [Config] names contiguous vertex ranges for the leaf units and a
// fusion plan pairing units bottom-up into a complete binary fusion
// tree. Leaf ranges may leave gaps; the vertices in the gap between
// two fused subtrees are the interface vertices owned by the fusion
// unit. Callers whose natural vertex numbering is not contiguous per
// partition must re-number vertices when building the graph.
//
// [Config.Info] validates the spec and computes, per unit, its whole
// covered range, its exclusively owned range, its children, parent,
// leaves and descendants, plus a vertex-to-owning-unit table used to
// scatter syndromes onto units.
package partition
