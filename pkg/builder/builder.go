// Package builder turns a normalized edge batch into a model.Graph and
// derives the visual attributes (colour, border, size) of every node and
// edge.
//
// A build is always a full rebuild: the caller discards the previous graph,
// its coordinates and any interaction state bound to it.
package builder

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/cograph/pkg/debug"
	"github.com/vanderheijden86/cograph/pkg/loader"
	"github.com/vanderheijden86/cograph/pkg/metrics"
	"github.com/vanderheijden86/cograph/pkg/model"
)

// ErrEmptyDataset is returned when a batch has no usable records.
var ErrEmptyDataset = errors.New("empty dataset")

// Stats summarises one build.
type Stats struct {
	Nodes          int `json:"nodes"`
	Edges          int `json:"edges"`
	DuplicateEdges int `json:"duplicate_edges"`
	SelfLoops      int `json:"self_loops"`
	Markers        int `json:"markers"`
}

// Build constructs the graph for one data load.
//
// Node attributes are fixed by the row that first introduces the node. For a
// category-marker row the source endpoint is the marker; the target is an
// ordinary node. Only the first row for an unordered pair creates an edge.
func Build(batch loader.Batch, style Style) (*model.Graph, Stats, error) {
	defer metrics.Timer(metrics.GraphBuild)()

	var stats Stats
	if batch.Len() == 0 {
		return nil, stats, ErrEmptyDataset
	}

	g := model.NewGraph()
	for _, rec := range batch.Records {
		if rec.IsCategoryMarker {
			if g.AddNode(style.markerNode(rec.Source, rec.Tier)) {
				stats.Markers++
			}
		} else {
			g.AddNode(style.plainNode(rec.Source))
		}
		g.AddNode(style.plainNode(rec.Target))

		added, err := g.AddEdge(&model.Edge{
			Source: rec.Source,
			Target: rec.Target,
			Size:   style.edgeScale() * batch.NormalizedWeight(rec),
			Weight: rec.Weight,
		})
		if err != nil {
			return nil, stats, fmt.Errorf("build %s row %d: %w", rec.Origin, rec.Row, err)
		}
		switch {
		case !added:
			stats.DuplicateEdges++
		case rec.IsSelfLoop():
			stats.SelfLoops++
		}
	}

	ScaleByDegree(g, style)

	stats.Nodes = g.Order()
	stats.Edges = g.Size()
	debug.Log("build: %d nodes, %d edges, %d duplicates ignored", stats.Nodes, stats.Edges, stats.DuplicateEdges)
	return g, stats, nil
}

// ScaleByDegree assigns every node whose size did not come from its tier a
// size interpolated between style.MinSize and style.MaxSize by degree. When
// all degrees are equal every such node gets MinSize.
func ScaleByDegree(g *model.Graph, style Style) {
	minDeg, maxDeg := g.DegreeRange()
	span := float64(maxDeg - minDeg)
	for _, n := range g.Nodes() {
		if n.TierSized {
			continue
		}
		if span == 0 {
			n.Size = style.MinSize
			continue
		}
		t := float64(g.Degree(n.ID)-minDeg) / span
		n.Size = style.MinSize + t*(style.MaxSize-style.MinSize)
	}
}
