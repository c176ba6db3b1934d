package export

import (
	"fmt"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/cograph/pkg/interaction"
)

// PNGRenderer rasterises each frame.
type PNGRenderer struct {
	fileRenderer
}

// Render writes the styled graph to the output path.
func (r *PNGRenderer) Render(s interaction.Styler) error {
	done, err := r.begin()
	if err != nil {
		return err
	}
	defer done()

	dc := drawPNG(project(s, r.opts))
	tmp := r.opts.Path + ".tmp.png"
	if err := dc.SavePNG(tmp); err != nil {
		return fmt.Errorf("write %s: %w", r.opts.Path, err)
	}
	return renameInto(tmp, r.opts.Path)
}

func drawPNG(f frame) *gg.Context {
	dc := gg.NewContext(f.Width, f.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(f.Width)-32, headerHeight-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(colorText)
	dc.DrawStringAnchored(f.Title, 32, 30, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(f.Summary, 32, 48, 0, 0.5)

	for _, e := range f.Edges {
		c := parseHex(e.Color)
		c.A = 0xcc
		dc.SetColor(c)
		dc.SetLineWidth(edgeWidth(e.Size))
		dc.DrawLine(e.X1, e.Y1, e.X2, e.Y2)
		dc.Stroke()
	}

	for _, n := range f.Nodes {
		dc.SetColor(parseHex(n.Color))
		dc.DrawCircle(n.PX, n.PY, max(n.Size, 1))
		dc.Fill()
		dc.SetColor(parseHex(n.BorderColor))
		dc.SetLineWidth(1.5)
		if n.Hovered {
			dc.SetLineWidth(3)
		}
		dc.DrawCircle(n.PX, n.PY, max(n.Size, 1))
		dc.Stroke()
	}

	dc.SetColor(colorText)
	for _, n := range f.Nodes {
		if n.Label == "" {
			continue
		}
		dc.DrawStringAnchored(truncate(n.Label, 40), n.PX+n.Size+3, n.PY, 0, 0.5)
	}
	return dc
}
