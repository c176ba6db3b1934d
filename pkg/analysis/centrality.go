// Package analysis annotates a model.Graph with centrality scores and
// community assignments and produces the ranked and grouped projections
// shown next to the graph.
//
// Analysis never changes graph structure. Category-marker nodes are left
// out of every annotation.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/vanderheijden86/cograph/pkg/debug"
	"github.com/vanderheijden86/cograph/pkg/metrics"
	"github.com/vanderheijden86/cograph/pkg/model"
)

// ErrCentralityUnavailable marks an eigenvector computation that did not
// converge. It is recorded in MetricStatus, never returned.
var ErrCentralityUnavailable = errors.New("centrality unavailable")

// Metric states.
const (
	StateComputed    = "computed"
	StateUnavailable = "unavailable"
)

// StatusEntry records computation state for a single metric.
type StatusEntry struct {
	State   string        `json:"state"`            // computed|unavailable
	Reason  string        `json:"reason,omitempty"` // explanation when unavailable
	Elapsed time.Duration `json:"ms,omitempty"`
	Err     error         `json:"-"`
}

// MetricStatus holds the status of every centrality metric.
type MetricStatus struct {
	Degree      StatusEntry `json:"degree"`
	Eigenvector StatusEntry `json:"eigenvector"`
}

// Row is one line of the centrality ranking.
type Row struct {
	ID               string      `json:"id"`
	Label            string      `json:"label"`
	Degree           int         `json:"degree"`
	DegreeCentrality float64     `json:"degree_centrality"`
	Eigenvector      model.Score `json:"eigenvector"`
}

// Ranking is the ordered centrality table for one graph snapshot.
type Ranking struct {
	Rows   []Row        `json:"rows"`
	Status MetricStatus `json:"status"`
}

// ComputeCentrality annotates every non-marker node with degree and
// eigenvector centrality and returns the ranking. Eigenvector failure is
// reported in the status and leaves every row Unavailable; it never fails
// the call.
func ComputeCentrality(g *model.Graph, cfg CentralityConfig) Ranking {
	defer metrics.Timer(metrics.CentralityCompute)()
	cfg = cfg.withDefaults()

	var r Ranking
	nodes := g.Nodes()

	start := time.Now()
	degree := degreeCentrality(g)
	r.Status.Degree = StatusEntry{State: StateComputed, Elapsed: time.Since(start)}

	start = time.Now()
	eigen, err := eigenvectorCentrality(g, cfg)
	r.Status.Eigenvector = StatusEntry{State: StateComputed, Elapsed: time.Since(start)}
	if err != nil {
		r.Status.Eigenvector.State = StateUnavailable
		r.Status.Eigenvector.Reason = err.Error()
		r.Status.Eigenvector.Err = err
		debug.Log("centrality: %v", err)
	}

	for i, n := range nodes {
		if n.IsCategoryMarker {
			n.HasCentrality = false
			n.DegreeCentrality = 0
			n.Eigenvector = model.Unavailable
			continue
		}
		n.HasCentrality = true
		n.DegreeCentrality = round3(degree[i])
		n.Eigenvector = model.Unavailable
		if eigen != nil {
			n.Eigenvector = model.ScoreOf(round3(eigen[i]))
		}
		r.Rows = append(r.Rows, Row{
			ID:               n.ID,
			Label:            n.Label,
			Degree:           g.Degree(n.ID),
			DegreeCentrality: n.DegreeCentrality,
			Eigenvector:      n.Eigenvector,
		})
	}

	SortRows(r.Rows)
	return r
}

// SortRows orders rows by degree centrality descending, then eigenvector
// descending with Unavailable after every numeric score. Ties keep their
// input order.
func SortRows(rows []Row) {
	slices.SortStableFunc(rows, CompareRows)
}

// CompareRows is the ranking order used by SortRows.
func CompareRows(a, b Row) int {
	if a.DegreeCentrality != b.DegreeCentrality {
		if a.DegreeCentrality > b.DegreeCentrality {
			return -1
		}
		return 1
	}
	switch {
	case a.Eigenvector.Available && !b.Eigenvector.Available:
		return -1
	case !a.Eigenvector.Available && b.Eigenvector.Available:
		return 1
	case !a.Eigenvector.Available:
		return 0
	case a.Eigenvector.Value > b.Eigenvector.Value:
		return -1
	case a.Eigenvector.Value < b.Eigenvector.Value:
		return 1
	}
	return 0
}

// degreeCentrality returns degree/(n-1) per node, indexed like g.Nodes().
func degreeCentrality(g *model.Graph) []float64 {
	nodes := g.Nodes()
	out := make([]float64, len(nodes))
	if len(nodes) <= 1 {
		return out
	}
	scale := 1 / float64(len(nodes)-1)
	for i, n := range nodes {
		out[i] = float64(g.Degree(n.ID)) * scale
	}
	return out
}

// eigenvectorCentrality runs power iteration on A+I. The identity shift
// keeps bipartite graphs from oscillating without changing the dominant
// eigenvector.
func eigenvectorCentrality(g *model.Graph, cfg CentralityConfig) ([]float64, error) {
	nodes := g.Nodes()
	n := len(nodes)
	if n == 0 {
		return nil, nil
	}

	type link struct {
		to int
		w  float64
	}
	adj := make([][]link, n)
	for _, e := range g.Edges() {
		w := 1.0
		if cfg.Weighted {
			w = e.Size
		}
		s, t := g.IndexOf(e.Source), g.IndexOf(e.Target)
		adj[s] = append(adj[s], link{to: t, w: w})
		if s != t {
			adj[t] = append(adj[t], link{to: s, w: w})
		}
	}

	vec := make([]float64, n)
	for i := range vec {
		vec[i] = 1 / math.Sqrt(float64(n))
	}
	work := make([]float64, n)

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		for i := range work {
			work[i] = vec[i]
			for _, l := range adj[i] {
				work[i] += l.w * vec[l.to]
			}
		}
		norm := 0.0
		for _, v := range work {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
			return nil, fmt.Errorf("%w: degenerate vector at iteration %d", ErrCentralityUnavailable, iter+1)
		}
		delta := 0.0
		for i := range work {
			work[i] /= norm
			delta += math.Abs(work[i] - vec[i])
		}
		vec, work = work, vec
		if delta < float64(n)*cfg.Tolerance {
			return vec, nil
		}
	}
	return nil, fmt.Errorf("%w: no convergence after %d iterations", ErrCentralityUnavailable, cfg.MaxIterations)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
