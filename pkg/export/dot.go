package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/vanderheijden86/cograph/pkg/interaction"
)

// DOTRenderer writes Graphviz DOT with pinned node positions. When Rendered
// is set, the DOT is laid out by neato (positions pinned) and written as SVG.
type DOTRenderer struct {
	fileRenderer
	Rendered bool
}

// Render writes the frame for s to the output path.
func (r *DOTRenderer) Render(s interaction.Styler) error {
	done, err := r.begin()
	if err != nil {
		return err
	}
	defer done()

	dot := ToDOT(s, r.opts)
	if !r.Rendered {
		return writeFile(r.opts.Path, []byte(dot))
	}
	out, err := RenderDOT(context.Background(), dot)
	if err != nil {
		return err
	}
	return writeFile(r.opts.Path, out)
}

// ToDOT converts the styled graph to an undirected DOT graph. Positions are
// canvas points with the y axis flipped, marked pinned for neato. Hidden
// edges are omitted.
func ToDOT(s interaction.Styler, opts Options) string {
	if opts.Width <= 0 {
		opts.Width = 1200
	}
	if opts.Height <= 0 {
		opts.Height = 900
	}
	f := project(s, opts)

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	if f.Title != "" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n", f.Title)
	}
	buf.WriteString("  node [shape=circle, style=filled, fixedsize=true, fontsize=10, fontname=\"Helvetica\"];\n")
	buf.WriteString("  edge [color=\"#CCCCCC\"];\n\n")

	for _, n := range f.Nodes {
		// Node diameter in inches; Size is a radius in points.
		diameter := max(n.Size, 1) * 2 / 72
		// Labels sit outside the small circles.
		attrs := []string{
			"label=\"\"",
			fmt.Sprintf("xlabel=%q", n.Label),
			fmt.Sprintf("pos=\"%.2f,%.2f!\"", n.PX, float64(f.Height)-n.PY),
			fmt.Sprintf("width=%.3f", diameter),
			fmt.Sprintf("fillcolor=%q", n.Color),
			fmt.Sprintf("color=%q", n.BorderColor),
		}
		if n.Hovered {
			attrs = append(attrs, "penwidth=3")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range f.Edges {
		fmt.Fprintf(&buf, "  %q -- %q [penwidth=%.2f, color=%q];\n", e.Source, e.Target, edgeWidth(e.Size), e.Color)
	}
	buf.WriteString("}\n")
	return buf.String()
}

// RenderDOT lays out dot with neato and returns SVG.
func RenderDOT(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
