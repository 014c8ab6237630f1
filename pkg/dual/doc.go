// Package dual maintains the dual variables of a running blossom
// algorithm on a decoding graph and reports the events that stop
// uniform growth.
//
// Every defect vertex seeds a syndrome node whose dual variable is the
// radius of the region it has grown on the graph. Regions claim
// vertices as edges saturate and release them as they shrink back;
// the per-edge growth amounts are the ground truth from which
// tightness, obstacles and finally the parity subgraph are read.
//
// The package deliberately knows nothing about alternating trees or
// matching: it exposes the narrow capability set (add defect, set grow
// state, grow, compute maximum update length, create/expand blossom,
// clear) that a primal module drives. The same [Module] type serves
// the serial solver, the per-unit base solves of the parallel solver,
// and the fused units produced by absorbing children.
//
// # Weight parity
//
// The update length between two growing regions is half the slack of
// the edge between them, so edges connecting two real vertices must
// carry even weights. Edges incident to a virtual vertex only ever
// grow from one side and may be odd. Violations surface as panics the
// moment the slack between two growing regions turns odd; they are
// programming errors, not recoverable conditions.
package dual
