// Package cli implements the fusionmatch command-line interface.
//
// The main commands are:
//   - benchmark: decode random syndromes of an example code and report
//     timing, optionally verifying against the reference matcher and
//     writing a scheduler profile
//   - render: draw a decoding graph (and a decoded parity subgraph)
//     as SVG or PNG via graphviz
//   - serve: host snapshot files for the external browser visualizer
//
// All commands support --verbose (-v) for debug-level logging. Loggers
// are passed through context.Context so library calls can report
// progress without global state.
package cli
