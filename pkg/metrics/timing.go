// Package metrics records wall time per pipeline stage: source loading,
// graph build, layout, centrality, community detection and rendering.
//
// Views run on separate goroutines and share the stage counters, so every
// counter is atomic. Recording is on by default; COGRAPH_METRICS=0 turns
// it off.
//
//	func assign(g *model.Graph) {
//	    defer metrics.Timer(metrics.LayoutCompute)()
//	    ...
//	}
package metrics

import (
	"os"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("COGRAPH_METRICS") != "0")
}

// Enabled reports whether stage timings are recorded.
func Enabled() bool { return enabled.Load() }

// SetEnabled switches recording on or off.
func SetEnabled(e bool) { enabled.Store(e) }

// Stage accumulates the timings of one pipeline stage.
type Stage struct {
	name  string
	count atomic.Int64
	total atomic.Int64 // ns
	max   atomic.Int64 // ns
	min   atomic.Int64 // ns, 0 until the first observation
}

func newStage(name string) *Stage { return &Stage{name: name} }

// Name returns the stage name.
func (s *Stage) Name() string { return s.name }

// Count returns the number of observations.
func (s *Stage) Count() int64 { return s.count.Load() }

// Observe adds one duration. It is a no-op while recording is disabled.
func (s *Stage) Observe(d time.Duration) {
	if !enabled.Load() {
		return
	}
	ns := d.Nanoseconds()
	s.count.Add(1)
	s.total.Add(ns)
	for cur := s.max.Load(); ns > cur; cur = s.max.Load() {
		if s.max.CompareAndSwap(cur, ns) {
			break
		}
	}
	for cur := s.min.Load(); cur == 0 || ns < cur; cur = s.min.Load() {
		if s.min.CompareAndSwap(cur, ns) {
			break
		}
	}
}

// Stats returns a consistent-enough snapshot for reporting.
func (s *Stage) Stats() TimingStats {
	n := s.count.Load()
	total := s.total.Load()
	st := TimingStats{
		Name:    s.name,
		Count:   n,
		TotalMs: ms(total),
		MaxMs:   ms(s.max.Load()),
		MinMs:   ms(s.min.Load()),
	}
	if n > 0 {
		st.AvgMs = ms(total / n)
	}
	return st
}

// Reset drops every observation.
func (s *Stage) Reset() {
	s.count.Store(0)
	s.total.Store(0)
	s.max.Store(0)
	s.min.Store(0)
}

func ms(ns int64) float64 { return float64(ns) / float64(time.Millisecond) }

// TimingStats is the reported form of a Stage.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer starts timing s and returns the function that stops it, for use
// with defer. A nil stage is ignored.
func Timer(s *Stage) func() {
	if s == nil || !enabled.Load() {
		return func() {}
	}
	start := time.Now()
	return func() { s.Observe(time.Since(start)) }
}

// Pipeline stages.
var (
	SourceLoad        = newStage("source_load")
	GraphBuild        = newStage("graph_build")
	LayoutCompute     = newStage("layout_compute")
	CentralityCompute = newStage("centrality_compute")
	CommunityCompute  = newStage("community_compute")
	RenderFrame       = newStage("render_frame")
)

var stages = []*Stage{
	SourceLoad,
	GraphBuild,
	LayoutCompute,
	CentralityCompute,
	CommunityCompute,
	RenderFrame,
}

// Stages returns every pipeline stage in pipeline order.
func Stages() []*Stage {
	return append([]*Stage(nil), stages...)
}

// ResetAll resets every stage.
func ResetAll() {
	for _, s := range stages {
		s.Reset()
	}
}

// AllTimingStats returns the stats of the stages observed at least once.
func AllTimingStats() []TimingStats {
	out := make([]TimingStats, 0, len(stages))
	for _, s := range stages {
		if s.Count() > 0 {
			out = append(out, s.Stats())
		}
	}
	return out
}
