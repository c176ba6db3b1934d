// Package model defines the in-memory graph shared by the builder, the
// analysis services, the interaction reducers and the renderers.
//
// A Graph is undirected and simple apart from self-loops: every unordered
// node pair has at most one edge. Nodes and edges remember insertion order
// so that every derived view (rankings, community grouping, rendering) is
// deterministic for a given input.
package model

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Score is a centrality value that may be unavailable (for example when an
// iterative method failed to converge).
type Score struct {
	Value     float64
	Available bool
}

// Unavailable is the sentinel score for metrics that could not be computed.
var Unavailable = Score{}

// ScoreOf returns an available score.
func ScoreOf(v float64) Score {
	return Score{Value: v, Available: true}
}

// String formats the score with three decimals, or "N/A".
func (s Score) String() string {
	if !s.Available {
		return "N/A"
	}
	return strconv.FormatFloat(s.Value, 'f', 3, 64)
}

// MarshalJSON encodes an unavailable score as null.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Available {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, s.Value, 'f', -1, 64), nil
}

// UnmarshalJSON decodes null as Unavailable.
func (s *Score) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Unavailable
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}
	*s = ScoreOf(v)
	return nil
}

// Node is a graph vertex. ID is the trimmed label and never changes.
type Node struct {
	ID    string
	Label string

	Color       string
	Size        float64
	BorderColor string

	IsCategoryMarker bool
	Tier             Tier
	// TierSized is true when Size came from the tier table and must not be
	// replaced by degree scaling.
	TierSized bool

	// Centrality annotations, set by analysis. HasCentrality is false until
	// the first centrality pass touches the node.
	HasCentrality    bool
	DegreeCentrality float64
	Eigenvector      Score

	// Community annotation. Community is -1 when unassigned.
	Community      int
	CommunityColor string

	X, Y float64

	index int
}

// HasCommunity reports whether a community id is assigned.
func (n *Node) HasCommunity() bool {
	return n.Community >= 0
}

// Edge is an undirected edge. Source/Target keep the orientation of the row
// that introduced it; identity is the unordered pair.
type Edge struct {
	Source string
	Target string
	Size   float64
	// Weight is the raw weight of the introducing row.
	Weight float64

	index int
}

// Key returns the unordered pair key of the edge.
func (e *Edge) Key() PairKey {
	return MakePairKey(e.Source, e.Target)
}

// Touches reports whether id is one of the edge's endpoints.
func (e *Edge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}

// Other returns the endpoint opposite to id.
func (e *Edge) Other(id string) string {
	if e.Source == id {
		return e.Target
	}
	return e.Source
}

// PairKey identifies an unordered node pair.
type PairKey struct {
	A, B string
}

// MakePairKey orders the endpoints so that (a,b) and (b,a) share a key.
func MakePairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// Graph holds the nodes and edges of one view.
type Graph struct {
	nodes    []*Node
	nodeByID map[string]*Node
	edges    []*Edge
	edgeByPK map[PairKey]*Edge
	adj      map[string][]*Edge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodeByID: make(map[string]*Node),
		edgeByPK: make(map[PairKey]*Edge),
		adj:      make(map[string][]*Edge),
	}
}

// Order returns the number of nodes.
func (g *Graph) Order() int { return len(g.nodes) }

// Size returns the number of edges.
func (g *Graph) Size() int { return len(g.edges) }

// Nodes returns the nodes in insertion order. The slice must not be modified.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Edges returns the edges in insertion order. The slice must not be modified.
func (g *Graph) Edges() []*Edge { return g.edges }

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node { return g.nodeByID[id] }

// HasNode reports whether id is present.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodeByID[id]
	return ok
}

// IndexOf returns the insertion index of id, or -1.
func (g *Graph) IndexOf(id string) int {
	if n, ok := g.nodeByID[id]; ok {
		return n.index
	}
	return -1
}

// AddNode inserts n. It returns false, leaving the graph untouched, when a
// node with the same id already exists.
func (g *Graph) AddNode(n *Node) bool {
	if n == nil || n.ID == "" {
		return false
	}
	if _, ok := g.nodeByID[n.ID]; ok {
		return false
	}
	if n.Label == "" {
		n.Label = n.ID
	}
	n.Community = -1
	n.index = len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.nodeByID[n.ID] = n
	return true
}

// AddEdge inserts an edge between two existing nodes. It returns false when
// the unordered pair already has an edge; the existing edge is kept as is.
func (g *Graph) AddEdge(e *Edge) (bool, error) {
	if !g.HasNode(e.Source) {
		return false, fmt.Errorf("add edge: unknown source node %q", e.Source)
	}
	if !g.HasNode(e.Target) {
		return false, fmt.Errorf("add edge: unknown target node %q", e.Target)
	}
	key := e.Key()
	if _, exists := g.edgeByPK[key]; exists {
		return false, nil
	}
	e.index = len(g.edges)
	g.edges = append(g.edges, e)
	g.edgeByPK[key] = e
	g.adj[e.Source] = append(g.adj[e.Source], e)
	if e.Target != e.Source {
		g.adj[e.Target] = append(g.adj[e.Target], e)
	}
	return true, nil
}

// EdgeBetween returns the edge joining a and b in either orientation, or nil.
func (g *Graph) EdgeBetween(a, b string) *Edge {
	return g.edgeByPK[MakePairKey(a, b)]
}

// IncidentEdges returns the edges touching id in insertion order.
func (g *Graph) IncidentEdges(id string) []*Edge {
	return g.adj[id]
}

// Degree returns the number of edge endpoints at id. A self-loop counts twice.
func (g *Graph) Degree(id string) int {
	d := 0
	for _, e := range g.adj[id] {
		if e.Source == e.Target {
			d += 2
		} else {
			d++
		}
	}
	return d
}

// Neighbors returns the distinct nodes adjacent to id, ordered by node
// insertion. A node with a self-loop is its own neighbour.
func (g *Graph) Neighbors(id string) []string {
	incident := g.adj[id]
	if len(incident) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(incident))
	out := make([]*Node, 0, len(incident))
	for _, e := range incident {
		other := e.Other(id)
		if seen[other] {
			continue
		}
		seen[other] = true
		out = append(out, g.nodeByID[other])
	}
	sortNodesByIndex(out)
	ids := make([]string, len(out))
	for i, n := range out {
		ids[i] = n.ID
	}
	return ids
}

// Clone returns a deep copy of g. Annotations made on the copy never reach
// g, so a clone can be handed to readers outside the goroutine that owns g.
func (g *Graph) Clone() *Graph {
	c := NewGraph()
	for _, n := range g.nodes {
		cp := *n
		c.nodes = append(c.nodes, &cp)
		c.nodeByID[cp.ID] = &cp
	}
	for _, e := range g.edges {
		cp := *e
		c.edges = append(c.edges, &cp)
		c.edgeByPK[cp.Key()] = &cp
		c.adj[cp.Source] = append(c.adj[cp.Source], &cp)
		if cp.Target != cp.Source {
			c.adj[cp.Target] = append(c.adj[cp.Target], &cp)
		}
	}
	return c
}

// DegreeRange returns the smallest and largest node degree. Both are 0 for
// an empty graph.
func (g *Graph) DegreeRange() (minDeg, maxDeg int) {
	if len(g.nodes) == 0 {
		return 0, 0
	}
	minDeg, maxDeg = math.MaxInt, 0
	for _, n := range g.nodes {
		d := g.Degree(n.ID)
		minDeg = min(minDeg, d)
		maxDeg = max(maxDeg, d)
	}
	return minDeg, maxDeg
}

func sortNodesByIndex(nodes []*Node) {
	slices.SortFunc(nodes, func(a, b *Node) int { return cmp.Compare(a.index, b.index) })
}
