package analysis

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/vanderheijden86/cograph/pkg/debug"
	"github.com/vanderheijden86/cograph/pkg/metrics"
	"github.com/vanderheijden86/cograph/pkg/model"
)

// ColorSource hands out one colour per community, in community order.
type ColorSource interface {
	Next() string
}

// RandomColors draws colours from a seeded generator. The same seed yields
// the same sequence.
type RandomColors struct {
	rng *rand.Rand
}

// NewRandomColors returns a ColorSource seeded with seed.
func NewRandomColors(seed uint64) *RandomColors {
	return &RandomColors{rng: rand.New(rand.NewPCG(seed, seed^0x5deece66d))}
}

// Next returns a random opaque "#RRGGBB" colour.
func (c *RandomColors) Next() string {
	return fmt.Sprintf("#%06X", c.rng.Uint32()&0xFFFFFF)
}

// Palette cycles through a fixed list of colours.
type Palette struct {
	Colors []string
	next   int
}

// Next returns the next palette entry, wrapping around.
func (p *Palette) Next() string {
	if len(p.Colors) == 0 {
		return "#999999"
	}
	c := p.Colors[p.next%len(p.Colors)]
	p.next++
	return c
}

// Group is one detected community.
type Group struct {
	ID             int      `json:"id"`
	Members        []string `json:"members"`
	InternalWeight float64  `json:"internal_weight"`
	Color          string   `json:"color"`
}

// Partition is the result of one community detection pass.
type Partition struct {
	Assignment map[string]int `json:"-"`
	// Groups are ordered by community id, which follows first-seen order.
	Groups     []Group       `json:"groups"`
	Modularity float64       `json:"modularity"`
	Resolution Resolution    `json:"-"`
	Elapsed    time.Duration `json:"-"`
}

// Len returns the number of communities.
func (p Partition) Len() int { return len(p.Groups) }

// CommunityLabel is the composite label given to community members.
func CommunityLabel(id string, community int) string {
	return fmt.Sprintf("%s (Community %d)", id, community)
}

// DetectCommunities partitions the non-marker nodes of g with Louvain
// modularity optimisation at the given resolution and annotates every node.
// Marker nodes have any previous community cleared.
func DetectCommunities(g *model.Graph, res Resolution, cfg CommunityConfig) (Partition, error) {
	defer metrics.Timer(metrics.CommunityCompute)()
	start := time.Now()

	if !res.Valid() {
		return Partition{}, fmt.Errorf("%w: %s", ErrResolutionOutOfRange, res)
	}
	colors := cfg.Colors
	if colors == nil {
		colors = NewRandomColors(cfg.Seed)
	}

	members, ug, edges := project(g, cfg.Weighted)
	groups := partition(g, members, ug, edges, res, cfg.Seed)

	p := Partition{
		Assignment: make(map[string]int, len(members)),
		Groups:     make([]Group, len(groups)),
		Resolution: res,
	}
	for c, ids := range groups {
		p.Groups[c] = Group{ID: c, Members: ids, Color: colors.Next()}
		for _, id := range ids {
			p.Assignment[id] = c
		}
	}

	for _, e := range g.Edges() {
		cs, okS := p.Assignment[e.Source]
		ct, okT := p.Assignment[e.Target]
		if okS && okT && cs == ct {
			p.Groups[cs].InternalWeight += e.Size
		}
	}

	ApplyPartition(g, p)

	if edges > 0 {
		p.Modularity = community.Q(ug, toGonum(g, groups), res.Float64())
	}
	p.Elapsed = time.Since(start)
	debug.Log("communities: %d groups at resolution %s, Q=%.4f", len(p.Groups), res, p.Modularity)
	return p, nil
}

// ApplyPartition writes the community id, colour and composite label of p
// onto the nodes of g. Nodes outside p are cleared.
func ApplyPartition(g *model.Graph, p Partition) {
	for _, n := range g.Nodes() {
		c, ok := p.Assignment[n.ID]
		if !ok {
			n.Community = -1
			n.CommunityColor = ""
			n.Label = n.ID
			continue
		}
		n.Community = c
		n.CommunityColor = p.Groups[c].Color
		n.Label = CommunityLabel(n.ID, c)
	}
}

// project returns the non-marker node ids in insertion order and the gonum
// graph over them. Gonum node ids are model insertion indices. Self-loops
// and edges touching markers are left out.
func project(g *model.Graph, weighted bool) ([]string, *simple.WeightedUndirectedGraph, int) {
	var members []string
	edges := 0
	ug := simple.NewWeightedUndirectedGraph(0, 0)
	for _, n := range g.Nodes() {
		if n.IsCategoryMarker {
			continue
		}
		members = append(members, n.ID)
		ug.AddNode(simple.Node(int64(g.IndexOf(n.ID))))
	}
	for _, e := range g.Edges() {
		if e.Source == e.Target {
			continue
		}
		s, t := g.Node(e.Source), g.Node(e.Target)
		if s.IsCategoryMarker || t.IsCategoryMarker {
			continue
		}
		w := 1.0
		if weighted {
			// Zero-size edges would leave the modularity undefined.
			w = max(e.Size, 1e-6)
		}
		ug.SetWeightedEdge(ug.NewWeightedEdge(
			simple.Node(int64(g.IndexOf(e.Source))),
			simple.Node(int64(g.IndexOf(e.Target))),
			w,
		))
		edges++
	}
	return members, ug, edges
}

// partition runs Louvain and renumbers communities by their earliest
// inserted member. Members within a group are in insertion order.
func partition(g *model.Graph, members []string, ug *simple.WeightedUndirectedGraph, edges int, res Resolution, seed uint64) [][]string {
	if len(members) == 0 {
		return nil
	}
	if edges == 0 {
		out := make([][]string, len(members))
		for i, id := range members {
			out[i] = []string{id}
		}
		return out
	}

	reduced := community.Modularize(ug, res.Float64(), rand.NewPCG(seed, seed))
	comms := reduced.Communities()

	out := make([][]string, 0, len(comms))
	for _, comm := range comms {
		if len(comm) == 0 {
			continue
		}
		idx := make([]int, len(comm))
		for i, n := range comm {
			idx[i] = int(n.ID())
		}
		slices.Sort(idx)
		ids := make([]string, len(idx))
		for i, k := range idx {
			ids[i] = g.Nodes()[k].ID
		}
		out = append(out, ids)
	}
	slices.SortFunc(out, func(a, b []string) int {
		return g.IndexOf(a[0]) - g.IndexOf(b[0])
	})
	return out
}

func toGonum(g *model.Graph, groups [][]string) [][]graph.Node {
	out := make([][]graph.Node, len(groups))
	for i, ids := range groups {
		out[i] = make([]graph.Node, len(ids))
		for j, id := range ids {
			out[i][j] = simple.Node(int64(g.IndexOf(id)))
		}
	}
	return out
}
