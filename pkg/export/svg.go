package export

import (
	"bytes"
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"

	"github.com/vanderheijden86/cograph/pkg/interaction"
)

// SVGRenderer writes each frame as a standalone SVG document.
type SVGRenderer struct {
	fileRenderer
}

// Render writes the styled graph to the output path.
func (r *SVGRenderer) Render(s interaction.Styler) error {
	done, err := r.begin()
	if err != nil {
		return err
	}
	defer done()

	var buf bytes.Buffer
	renderSVGToWriter(&buf, project(s, r.opts))
	return writeFile(r.opts.Path, buf.Bytes())
}

// WriteSVG draws the styled graph to w without touching the filesystem.
func WriteSVG(w io.Writer, s interaction.Styler, opts Options) {
	if opts.Width <= 0 {
		opts.Width = 1200
	}
	if opts.Height <= 0 {
		opts.Height = 900
	}
	renderSVGToWriter(w, project(s, opts))
}

func renderSVGToWriter(w io.Writer, f frame) {
	canvas := svg.New(w)
	canvas.Start(f.Width, f.Height)
	canvas.Rect(0, 0, f.Width, f.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, f.Width-32, int(headerHeight-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))
	canvas.Text(32, 38, f.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(32, 56, f.Summary, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))

	canvas.Group("id=\"edges\"")
	for _, e := range f.Edges {
		canvas.Line(int(e.X1), int(e.Y1), int(e.X2), int(e.Y2),
			fmt.Sprintf("stroke:%s;stroke-width:%.2f;stroke-opacity:0.8", css(parseHex(e.Color)), edgeWidth(e.Size)))
	}
	canvas.Gend()

	canvas.Group("id=\"nodes\"")
	for _, n := range f.Nodes {
		x, y, r := int(n.PX), int(n.PY), int(n.Size+0.5)
		style := fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.5", css(parseHex(n.Color)), css(parseHex(n.BorderColor)))
		if n.Hovered {
			style += ";stroke-width:3"
		}
		canvas.Circle(x, y, max(r, 1), style)
	}
	for _, n := range f.Nodes {
		if n.Label == "" {
			continue
		}
		canvas.Text(int(n.PX+n.Size+3), int(n.PY+4), truncate(n.Label, 40),
			fmt.Sprintf("fill:%s;font-size:11px;font-family:sans-serif", css(colorText)))
	}
	canvas.Gend()

	canvas.End()
}
