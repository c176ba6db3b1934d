package interaction

import "github.com/vanderheijden86/cograph/pkg/model"

// Default display colours.
const (
	DefaultMutedColor = "#E2E2E2"
	DefaultEdgeColor  = "#CCCCCC"
)

// NodeDisplay is how a renderer should draw one node.
type NodeDisplay struct {
	ID          string
	Label       string
	Color       string
	BorderColor string
	Size        float64
	X, Y        float64
	Marker      bool
	Muted       bool
	Hovered     bool
}

// EdgeDisplay is how a renderer should draw one edge.
type EdgeDisplay struct {
	Source, Target string
	Size           float64
	Color          string
	Hidden         bool
}

// Styler bundles a graph with a frozen interaction state. Renderers call
// NodeStyle and EdgeStyle once per element per redraw.
type Styler struct {
	Graph      *model.Graph
	State      State
	MutedColor string
	EdgeColor  string
}

// NewStyler snapshots st so that the styler stays valid after further
// transitions.
func NewStyler(g *model.Graph, st State) Styler {
	return Styler{
		Graph:      g,
		State:      st.Snapshot(),
		MutedColor: DefaultMutedColor,
		EdgeColor:  DefaultEdgeColor,
	}
}

// NodeStyle returns the display attributes of n. In Focused state, nodes
// other than the hovered node and its neighbours get the muted colour and
// an empty label.
func (s Styler) NodeStyle(n *model.Node) NodeDisplay {
	d := NodeDisplay{
		ID:          n.ID,
		Label:       n.Label,
		Color:       n.Color,
		BorderColor: n.BorderColor,
		Size:        n.Size,
		X:           n.X,
		Y:           n.Y,
		Marker:      n.IsCategoryMarker,
	}
	if n.HasCommunity() && n.CommunityColor != "" {
		d.Color = n.CommunityColor
	}
	if id, ok := s.State.Hovered(); ok && id == n.ID {
		d.Hovered = true
	}
	if !s.State.visible(n.ID) {
		d.Color = s.mutedColor()
		d.Label = ""
		d.Muted = true
	}
	return d
}

// EdgeStyle returns the display attributes of e. In Focused state, edges not
// touching the hovered node are hidden.
func (s Styler) EdgeStyle(e *model.Edge) EdgeDisplay {
	d := EdgeDisplay{
		Source: e.Source,
		Target: e.Target,
		Size:   e.Size,
		Color:  s.edgeColor(),
	}
	if id, ok := s.State.Hovered(); ok && !e.Touches(id) {
		d.Hidden = true
	}
	return d
}

// Nodes returns NodeStyle for every node in insertion order.
func (s Styler) Nodes() []NodeDisplay {
	if s.Graph == nil {
		return nil
	}
	out := make([]NodeDisplay, 0, s.Graph.Order())
	for _, n := range s.Graph.Nodes() {
		out = append(out, s.NodeStyle(n))
	}
	return out
}

// Edges returns EdgeStyle for every edge in insertion order, hidden ones
// included.
func (s Styler) Edges() []EdgeDisplay {
	if s.Graph == nil {
		return nil
	}
	out := make([]EdgeDisplay, 0, s.Graph.Size())
	for _, e := range s.Graph.Edges() {
		out = append(out, s.EdgeStyle(e))
	}
	return out
}

func (s Styler) mutedColor() string {
	if s.MutedColor == "" {
		return DefaultMutedColor
	}
	return s.MutedColor
}

func (s Styler) edgeColor() string {
	if s.EdgeColor == "" {
		return DefaultEdgeColor
	}
	return s.EdgeColor
}
