package builder

import "github.com/vanderheijden86/cograph/pkg/model"

// TierStyle is the colour and fixed size of a tier's marker nodes. A zero
// Size means the tier does not fix the size.
type TierStyle struct {
	Color string  `yaml:"color" toml:"color"`
	Size  float64 `yaml:"size" toml:"size"`
}

// Style holds every visual constant the builder assigns.
type Style struct {
	MinSize   float64 `yaml:"min_size" toml:"min_size"`
	MaxSize   float64 `yaml:"max_size" toml:"max_size"`
	EdgeScale float64 `yaml:"edge_scale" toml:"edge_scale"`

	DefaultColor  string `yaml:"default_color" toml:"default_color"`
	DefaultBorder string `yaml:"default_border" toml:"default_border"`

	DefaultMarkerColor string  `yaml:"default_marker_color" toml:"default_marker_color"`
	DefaultMarkerSize  float64 `yaml:"default_marker_size" toml:"default_marker_size"`
	MarkerBorder       string  `yaml:"marker_border" toml:"marker_border"`

	Tiers map[model.Tier]TierStyle `yaml:"tiers" toml:"tiers"`
}

// DefaultStyle returns the stock palette.
func DefaultStyle() Style {
	return Style{
		MinSize:   3,
		MaxSize:   15,
		EdgeScale: 2,

		DefaultColor:  "#5B8FF9",
		DefaultBorder: "#FFFFFF",

		DefaultMarkerColor: "#FF6B6B",
		DefaultMarkerSize:  10,
		MarkerBorder:       "#222222",

		Tiers: map[model.Tier]TierStyle{
			model.TierPlatinum: {Color: "#B4C7E7", Size: 20},
			model.TierGold:     {Color: "#FFD700", Size: 17},
			model.TierSilver:   {Color: "#C0C0C0", Size: 14},
			model.TierBronze:   {Color: "#CD7F32", Size: 11},
		},
	}
}

// TierColor returns the colour configured for t.
func (s Style) TierColor(t model.Tier) (string, bool) {
	ts, ok := s.Tiers[t]
	if !ok || t == model.TierNone || ts.Color == "" {
		return "", false
	}
	return ts.Color, true
}

// TierSize returns the fixed size configured for t.
func (s Style) TierSize(t model.Tier) (float64, bool) {
	ts, ok := s.Tiers[t]
	if !ok || t == model.TierNone || ts.Size <= 0 {
		return 0, false
	}
	return ts.Size, true
}

func (s Style) edgeScale() float64 {
	if s.EdgeScale <= 0 {
		return 2
	}
	return s.EdgeScale
}

func (s Style) plainNode(id string) *model.Node {
	return &model.Node{
		ID:          id,
		Color:       s.DefaultColor,
		BorderColor: s.DefaultBorder,
	}
}

func (s Style) markerNode(id string, tier model.Tier) *model.Node {
	n := &model.Node{
		ID:               id,
		Color:            s.DefaultMarkerColor,
		Size:             s.DefaultMarkerSize,
		BorderColor:      s.MarkerBorder,
		IsCategoryMarker: true,
		Tier:             tier,
	}
	if c, ok := s.TierColor(tier); ok {
		n.Color = c
	}
	if size, ok := s.TierSize(tier); ok {
		n.Size = size
		n.TierSized = true
	}
	return n
}
