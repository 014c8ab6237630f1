// Package parallel decomposes a decoding problem along a partition
// spec, solves the base partitions concurrently and fuses sibling
// units bottom-up along the fusion tree.
//
// Every unit owns a private dual and primal submodule over the shared
// solve-state store. Interface vertices owned by a fusion unit are
// mirrored into the descendants as virtual-like boundaries until the
// unit fuses; a base solve therefore is an ordinary standalone blossom
// run that may park boundary defects in temporary matches against the
// mirrors. The fusion operation enables the mirrors, adopts both
// children's modules, re-roots the temporary matches that just became
// illegal, seeds the interface defects and resumes the event loop —
// producing a state the global algorithm could itself have reached,
// which is the invariant the whole scheme rests on.
//
// Scheduling is a fixed-size worker pool over a ready queue. In batch
// mode fusions wait for every base partition to finish; in streaming
// mode a parent becomes ready the moment both children are done, and
// an optional mock measurement interval paces leaf availability to
// emulate real-time syndrome arrival.
package parallel
