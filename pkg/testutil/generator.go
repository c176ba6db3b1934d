// Package testutil provides edge-list fixture generators for various graph
// topologies. All generators produce deterministic output for reproducible
// tests.
package testutil

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/cograph/pkg/loader"
	"github.com/vanderheijden86/cograph/pkg/model"
)

// WeightedEdge is one fixture edge between node indices.
type WeightedEdge struct {
	From, To int
	Weight   float64
}

// GraphFixture is an abstract weighted graph used to drive the pipeline.
type GraphFixture struct {
	Description string
	Nodes       []string
	Edges       []WeightedEdge
}

// GeneratorConfig controls fixture generation.
type GeneratorConfig struct {
	Seed       uint64  // Random seed for determinism
	NodePrefix string  // Prefix for node ids (default: "N")
	MaxWeight  float64 // Upper bound for random weights (default: 10)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{Seed: 42, NodePrefix: "N", MaxWeight: 10}
}

// Generator creates fixtures with various topologies.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.NodePrefix == "" {
		cfg.NodePrefix = "N"
	}
	if cfg.MaxWeight <= 0 {
		cfg.MaxWeight = 10
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

func (g *Generator) names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", g.cfg.NodePrefix, i)
	}
	return out
}

func (g *Generator) weight() float64 {
	// Whole numbers keep expected sizes exact in assertions.
	return float64(1 + g.rng.IntN(int(g.cfg.MaxWeight)))
}

// Chain creates N0 - N1 - ... - N(n-1).
func (g *Generator) Chain(n int) GraphFixture {
	gf := GraphFixture{Description: fmt.Sprintf("chain of %d", n), Nodes: g.names(n)}
	for i := 0; i+1 < n; i++ {
		gf.Edges = append(gf.Edges, WeightedEdge{From: i, To: i + 1, Weight: g.weight()})
	}
	return gf
}

// Star creates a hub N0 connected to every spoke.
func (g *Generator) Star(spokes int) GraphFixture {
	gf := GraphFixture{Description: fmt.Sprintf("star with %d spokes", spokes), Nodes: g.names(spokes + 1)}
	for i := 1; i <= spokes; i++ {
		gf.Edges = append(gf.Edges, WeightedEdge{From: 0, To: i, Weight: g.weight()})
	}
	return gf
}

// Cycle creates a ring of n nodes.
func (g *Generator) Cycle(n int) GraphFixture {
	gf := g.Chain(n)
	gf.Description = fmt.Sprintf("cycle of %d", n)
	if n > 2 {
		gf.Edges = append(gf.Edges, WeightedEdge{From: n - 1, To: 0, Weight: g.weight()})
	}
	return gf
}

// Complete creates a clique of n nodes.
func (g *Generator) Complete(n int) GraphFixture {
	gf := GraphFixture{Description: fmt.Sprintf("complete graph of %d", n), Nodes: g.names(n)}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			gf.Edges = append(gf.Edges, WeightedEdge{From: i, To: j, Weight: g.weight()})
		}
	}
	return gf
}

// Disconnected creates `components` cliques of `size` nodes with no edges
// between them.
func (g *Generator) Disconnected(components, size int) GraphFixture {
	gf := GraphFixture{
		Description: fmt.Sprintf("%d cliques of %d", components, size),
		Nodes:       g.names(components * size),
	}
	for c := 0; c < components; c++ {
		base := c * size
		for i := 0; i < size; i++ {
			for j := i + 1; j < size; j++ {
				gf.Edges = append(gf.Edges, WeightedEdge{From: base + i, To: base + j, Weight: g.weight()})
			}
		}
	}
	return gf
}

// Barbell creates two cliques of `size` nodes joined by a single bridge.
func (g *Generator) Barbell(size int) GraphFixture {
	gf := g.Disconnected(2, size)
	gf.Description = fmt.Sprintf("barbell of two %d-cliques", size)
	gf.Edges = append(gf.Edges, WeightedEdge{From: size - 1, To: size, Weight: g.weight()})
	return gf
}

// Random creates an Erdős–Rényi style graph with the given edge density.
func (g *Generator) Random(n int, density float64) GraphFixture {
	gf := GraphFixture{Description: fmt.Sprintf("random %d nodes density %.2f", n, density), Nodes: g.names(n)}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if g.rng.Float64() < density {
				gf.Edges = append(gf.Edges, WeightedEdge{From: i, To: j, Weight: g.weight()})
			}
		}
	}
	return gf
}

// ToRecords converts a fixture into normalized edge records in edge order.
func (gf GraphFixture) ToRecords(origin string) []model.EdgeRecord {
	recs := make([]model.EdgeRecord, len(gf.Edges))
	for i, e := range gf.Edges {
		recs[i] = model.EdgeRecord{
			Source:      gf.Nodes[e.From],
			Target:      gf.Nodes[e.To],
			Weight:      e.Weight,
			WeightValid: true,
			Origin:      origin,
			Row:         i + 1,
		}
	}
	return recs
}

// ToBatch converts a fixture into a loader batch with its maximum weight.
func (gf GraphFixture) ToBatch() loader.Batch {
	return BatchOf(gf.ToRecords("fixture")...)
}

// ToCSV renders the fixture as an edge-list CSV with a header row.
func (gf GraphFixture) ToCSV() string {
	var sb strings.Builder
	sb.WriteString("Source1,Source2,Weight\n")
	for _, e := range gf.Edges {
		sb.WriteString(gf.Nodes[e.From])
		sb.WriteByte(',')
		sb.WriteString(gf.Nodes[e.To])
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(e.Weight, 'f', -1, 64))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// BatchOf assembles records into a batch, computing the maximum valid weight.
func BatchOf(recs ...model.EdgeRecord) loader.Batch {
	b := loader.Batch{Records: recs}
	for _, r := range recs {
		if !r.WeightValid {
			b.InvalidWeights++
			continue
		}
		b.MaxWeight = max(b.MaxWeight, r.Weight)
	}
	return b
}

// Edge is shorthand for a valid plain edge record.
func Edge(src, dst string, w float64) model.EdgeRecord {
	return model.EdgeRecord{Source: src, Target: dst, Weight: w, WeightValid: true}
}

// Marker is shorthand for a category-marker record.
func Marker(src, dst string, w float64, tier model.Tier) model.EdgeRecord {
	r := Edge(src, dst, w)
	r.IsCategoryMarker = true
	r.Tier = tier
	return r
}

// QuickChain returns a chain batch using the default generator.
func QuickChain(n int) loader.Batch { return NewDefault().Chain(n).ToBatch() }

// QuickStar returns a star batch using the default generator.
func QuickStar(spokes int) loader.Batch { return NewDefault().Star(spokes).ToBatch() }

// QuickBarbell returns a barbell batch using the default generator.
func QuickBarbell(size int) loader.Batch { return NewDefault().Barbell(size).ToBatch() }

// RecordGen draws edge records over a small alphabet so that duplicates,
// reversed pairs, self-loops, invalid weights and markers all occur.
func RecordGen() *rapid.Generator[model.EdgeRecord] {
	ids := []string{"A", "B", "C", "D", "E", "F", "G"}
	tiers := []model.Tier{model.TierNone, model.TierPlatinum, model.TierGold, model.TierSilver, model.TierBronze}
	return rapid.Custom(func(t *rapid.T) model.EdgeRecord {
		r := model.EdgeRecord{
			Source:      rapid.SampledFrom(ids).Draw(t, "source"),
			Target:      rapid.SampledFrom(ids).Draw(t, "target"),
			WeightValid: rapid.Float64Range(0, 1).Draw(t, "valid") > 0.1,
		}
		if r.WeightValid {
			r.Weight = float64(rapid.IntRange(0, 100).Draw(t, "weight"))
		}
		if rapid.IntRange(0, 9).Draw(t, "marker") == 0 {
			r.IsCategoryMarker = true
			r.Tier = rapid.SampledFrom(tiers).Draw(t, "tier")
		}
		return r
	})
}

// BatchGen draws non-empty batches of RecordGen records.
func BatchGen() *rapid.Generator[loader.Batch] {
	return rapid.Custom(func(t *rapid.T) loader.Batch {
		recs := rapid.SliceOfN(RecordGen(), 1, 40).Draw(t, "records")
		for i := range recs {
			recs[i].Row = i + 1
		}
		return BatchOf(recs...)
	})
}
