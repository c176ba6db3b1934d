package export

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/cograph/pkg/interaction"
	"github.com/vanderheijden86/cograph/pkg/model"
)

// JSONRenderer writes a graphology-compatible serialisation of each frame so
// that a browser viewer can load it directly.
type JSONRenderer struct {
	fileRenderer
}

// Document is the serialised graph.
type Document struct {
	Attributes DocumentAttributes `json:"attributes"`
	Options    DocumentOptions    `json:"options"`
	Nodes      []NodeEntry        `json:"nodes"`
	Edges      []EdgeEntry        `json:"edges"`
}

// DocumentAttributes carries graph-level metadata.
type DocumentAttributes struct {
	Title   string `json:"title,omitempty"`
	Focus   string `json:"focus,omitempty"`
	Nodes   int    `json:"node_count"`
	Edges   int    `json:"edge_count"`
	Visible int    `json:"visible_edge_count"`
}

// DocumentOptions mirrors graphology's graph options.
type DocumentOptions struct {
	Type       string `json:"type"`
	Multi      bool   `json:"multi"`
	AllowLoops bool   `json:"allowSelfLoops"`
}

// NodeEntry is one serialised node.
type NodeEntry struct {
	Key        string         `json:"key"`
	Attributes NodeAttributes `json:"attributes"`
}

// NodeAttributes are the display and analysis attributes of a node.
type NodeAttributes struct {
	Label            string      `json:"label"`
	X                float64     `json:"x"`
	Y                float64     `json:"y"`
	Size             float64     `json:"size"`
	Color            string      `json:"color"`
	BorderColor      string      `json:"borderColor,omitempty"`
	IsCategoryMarker bool        `json:"isCategoryMarker,omitempty"`
	Tier             string      `json:"tier,omitempty"`
	DegreeCentrality *float64    `json:"degreeCentrality,omitempty"`
	Eigenvector      model.Score `json:"eigenvectorCentrality"`
	Community        *int        `json:"community,omitempty"`
	Muted            bool        `json:"muted,omitempty"`
}

// EdgeEntry is one serialised edge.
type EdgeEntry struct {
	Key        string         `json:"key"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Undirected bool           `json:"undirected"`
	Attributes EdgeAttributes `json:"attributes"`
}

// EdgeAttributes are the display attributes of an edge.
type EdgeAttributes struct {
	Size   float64 `json:"size"`
	Weight float64 `json:"weight"`
	Color  string  `json:"color"`
	Hidden bool    `json:"hidden,omitempty"`
}

// Render writes the document for s to the output path.
func (r *JSONRenderer) Render(s interaction.Styler) error {
	done, err := r.begin()
	if err != nil {
		return err
	}
	defer done()

	data, err := json.MarshalIndent(BuildDocument(s, r.opts.Title), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	return writeFile(r.opts.Path, data)
}

// BuildDocument serialises the styled graph. Hidden edges are kept with
// hidden=true so that a viewer can toggle focus without reloading.
func BuildDocument(s interaction.Styler, title string) Document {
	doc := Document{
		Attributes: DocumentAttributes{Title: title},
		Options:    DocumentOptions{Type: "undirected", AllowLoops: true},
	}
	if s.Graph == nil {
		return doc
	}
	if id, ok := s.State.Hovered(); ok {
		doc.Attributes.Focus = id
	}

	for _, n := range s.Graph.Nodes() {
		d := s.NodeStyle(n)
		attrs := NodeAttributes{
			Label:            d.Label,
			X:                d.X,
			Y:                d.Y,
			Size:             d.Size,
			Color:            d.Color,
			BorderColor:      d.BorderColor,
			IsCategoryMarker: n.IsCategoryMarker,
			Tier:             n.Tier.String(),
			Eigenvector:      n.Eigenvector,
			Muted:            d.Muted,
		}
		if n.HasCentrality {
			dc := n.DegreeCentrality
			attrs.DegreeCentrality = &dc
		}
		if n.HasCommunity() {
			c := n.Community
			attrs.Community = &c
		}
		doc.Nodes = append(doc.Nodes, NodeEntry{Key: n.ID, Attributes: attrs})
	}

	for i, e := range s.Graph.Edges() {
		d := s.EdgeStyle(e)
		if !d.Hidden {
			doc.Attributes.Visible++
		}
		doc.Edges = append(doc.Edges, EdgeEntry{
			Key:        fmt.Sprintf("e%d", i),
			Source:     e.Source,
			Target:     e.Target,
			Undirected: true,
			Attributes: EdgeAttributes{Size: d.Size, Weight: e.Weight, Color: d.Color, Hidden: d.Hidden},
		})
	}
	doc.Attributes.Nodes = len(doc.Nodes)
	doc.Attributes.Edges = len(doc.Edges)
	return doc
}
