package visualize

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/qecdec/fusionmatch/pkg/decoding"
)

// BuildDOT renders a decoding graph as a DOT document: real vertices
// as circles, virtual vertices as grey boxes, defects filled red, and
// the solved parity subgraph drawn bold. Positions pin the layout to
// the code's geometry; time layers are offset along the horizontal
// axis.
func BuildDOT(g *decoding.Graph, positions []Position, defects, subgraph []int) string {
	isDefect := make(map[int]bool, len(defects))
	for _, v := range defects {
		isDefect[v] = true
	}
	inSubgraph := make(map[int]bool, len(subgraph))
	for _, e := range subgraph {
		inSubgraph[e] = true
	}

	var b strings.Builder
	b.WriteString("graph decoding {\n")
	b.WriteString("\tlayout=neato;\n\tnode [shape=circle, fontsize=10];\n")
	for v := 0; v < g.VertexNum(); v++ {
		attrs := []string{fmt.Sprintf("label=%q", fmt.Sprintf("%d", v))}
		if v < len(positions) {
			pos := positions[v]
			attrs = append(attrs, fmt.Sprintf("pos=\"%.2f,%.2f!\"", pos.J+3*pos.T, -pos.I))
		}
		switch {
		case g.IsVirtual(v):
			attrs = append(attrs, "shape=box", "style=filled", "fillcolor=lightgrey")
		case isDefect[v]:
			attrs = append(attrs, "style=filled", "fillcolor=salmon")
		}
		fmt.Fprintf(&b, "\t%d [%s];\n", v, strings.Join(attrs, ", "))
	}
	for e := 0; e < g.EdgeNum(); e++ {
		left, right := g.Endpoints(e)
		attrs := []string{fmt.Sprintf("label=%q", fmt.Sprintf("%d", g.Weight(e)))}
		if inSubgraph[e] {
			attrs = append(attrs, "penwidth=3", "color=crimson")
		}
		fmt.Fprintf(&b, "\t%d -- %d [%s];\n", left, right, strings.Join(attrs, ", "))
	}
	b.WriteString("}\n")
	return b.String()
}

// RenderDOT rasterizes a DOT document through graphviz. Supported
// formats are "svg", "png" and "dot" (which returns the input).
func RenderDOT(ctx context.Context, dot, format string) ([]byte, error) {
	if format == "dot" {
		return []byte(dot), nil
	}
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var out graphviz.Format
	switch format {
	case "svg":
		out = graphviz.SVG
	case "png":
		out = graphviz.PNG
	default:
		return nil, fmt.Errorf("unsupported render format %q", format)
	}
	var buf bytes.Buffer
	if err := gv.Render(ctx, g, out, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
