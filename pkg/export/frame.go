package export

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/vanderheijden86/cograph/pkg/interaction"
)

const (
	framePadding = 36.0
	headerHeight = 64.0
)

var (
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorFallback = color.RGBA{0x99, 0x99, 0x99, 0xff}
)

// frameNode is a node projected into pixel space.
type frameNode struct {
	interaction.NodeDisplay
	PX, PY float64
}

// frameEdge is a visible edge projected into pixel space.
type frameEdge struct {
	interaction.EdgeDisplay
	X1, Y1, X2, Y2 float64
}

// frame is one styled snapshot mapped onto a canvas.
type frame struct {
	Width, Height int
	Title         string
	Summary       string
	Nodes         []frameNode
	Edges         []frameEdge
}

// project maps layout coordinates onto a width x height canvas below the
// header, preserving aspect ratio. Hidden edges are dropped.
func project(s interaction.Styler, opts Options) frame {
	f := frame{Width: opts.Width, Height: opts.Height, Title: opts.Title}
	nodes := s.Nodes()
	edges := s.Edges()

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		minX, maxX = math.Min(minX, n.X), math.Max(maxX, n.X)
		minY, maxY = math.Min(minY, n.Y), math.Max(maxY, n.Y)
	}
	availW := float64(opts.Width) - 2*framePadding
	availH := float64(opts.Height) - 2*framePadding - headerHeight
	spanX, spanY := maxX-minX, maxY-minY
	scale := 1.0
	switch {
	case len(nodes) == 0:
	case spanX <= 0 && spanY <= 0:
		scale = 0
	case spanX <= 0:
		scale = availH / spanY
	case spanY <= 0:
		scale = availW / spanX
	default:
		scale = math.Min(availW/spanX, availH/spanY)
	}
	cx := float64(opts.Width) / 2
	cy := headerHeight + framePadding + availH/2
	midX, midY := (minX+maxX)/2, (minY+maxY)/2

	pos := make(map[string][2]float64, len(nodes))
	for _, n := range nodes {
		px := cx + (n.X-midX)*scale
		py := cy + (n.Y-midY)*scale
		pos[n.ID] = [2]float64{px, py}
		f.Nodes = append(f.Nodes, frameNode{NodeDisplay: n, PX: px, PY: py})
	}

	visible := 0
	for _, e := range edges {
		if e.Hidden {
			continue
		}
		visible++
		a, b := pos[e.Source], pos[e.Target]
		f.Edges = append(f.Edges, frameEdge{EdgeDisplay: e, X1: a[0], Y1: a[1], X2: b[0], Y2: b[1]})
	}

	f.Summary = fmt.Sprintf("nodes: %d  edges: %d", len(nodes), visible)
	if id, ok := s.State.Hovered(); ok {
		f.Summary += "  focus: " + id
	}
	return f
}

// parseHex parses "#RGB" or "#RRGGBB". Unparseable values fall back to grey.
func parseHex(s string) color.RGBA {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return colorFallback
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return colorFallback
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func edgeWidth(size float64) float64 {
	return math.Max(size, 0.5)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
