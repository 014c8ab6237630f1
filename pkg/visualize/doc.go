// Package visualize captures solver state snapshots in the JSON
// format consumed by the external fusion-blossom browser viewer, and
// renders decoding graphs to images through graphviz.
//
// A [Visualizer] accumulates named snapshots during a solve and
// writes one top-level JSON object: format tag, per-vertex positions
// and the snapshot list. Field names are fixed by the viewer; they
// are deliberately terse (s, v, p, lg, rg, ...) and must not be
// renamed. Edge growth values exceeding the edge weight (possible on
// edges interior to one region) are clamped for display only.
//
// The package also hosts a small HTTP server that exposes snapshot
// files to the viewer.
package visualize
