package render

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/kheller/diagrid/pkg/diagram"
)

// Options configures snapshot rendering.
type Options struct {
	// Detailed includes every attribute in node labels.
	// When false, only the display text is shown.
	Detailed bool
}

// ToDOT converts a diagram to Graphviz DOT format. The resulting DOT string
// can be rendered with [SVG] or [PNG].
//
// Node fill colors follow the "color" attribute when present. Layout is left
// entirely to Graphviz; serialized canvas positions are ignored.
func ToDOT(d diagram.Diagram, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for _, n := range d.Nodes {
		attrs := fmtNodeAttrs(n, opts.Detailed)
		fmt.Fprintf(&buf, "  %d [%s];\n", n.Key, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, l := range d.Links {
		if text := l.Attrs.String("text"); text != "" {
			fmt.Fprintf(&buf, "  %d -> %d [label=%q];\n", l.From, l.To, text)
		} else {
			fmt.Fprintf(&buf, "  %d -> %d;\n", l.From, l.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtNodeAttrs(n diagram.Node, detailed bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, detailed))}
	if color := n.Attrs.String("color"); color != "" {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", color))
	}
	return attrs
}

func fmtLabel(n diagram.Node, detailed bool) string {
	label := n.Attrs.String("text")
	if label == "" {
		label = fmt.Sprintf("#%d", n.Key)
	}
	if !detailed {
		return label
	}

	parts := []string{fmt.Sprintf("key: %d", n.Key)}
	for _, k := range slices.Sorted(maps.Keys(n.Attrs)) {
		if k == "text" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Attrs[k]))
	}
	return label + "\n" + strings.Join(parts, "\n")
}

// SVG renders a DOT graph to SVG using Graphviz.
func SVG(ctx context.Context, dot string) ([]byte, error) {
	return renderFormat(ctx, dot, graphviz.SVG)
}

// PNG renders a DOT graph to PNG using Graphviz.
func PNG(ctx context.Context, dot string) ([]byte, error) {
	return renderFormat(ctx, dot, graphviz.PNG)
}

func renderFormat(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
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

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
