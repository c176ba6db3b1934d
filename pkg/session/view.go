package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vanderheijden86/cograph/internal/datasource"
	"github.com/vanderheijden86/cograph/pkg/analysis"
	"github.com/vanderheijden86/cograph/pkg/builder"
	"github.com/vanderheijden86/cograph/pkg/export"
	"github.com/vanderheijden86/cograph/pkg/interaction"
	"github.com/vanderheijden86/cograph/pkg/layout"
	"github.com/vanderheijden86/cograph/pkg/loader"
	"github.com/vanderheijden86/cograph/pkg/model"
)

// ViewState is the lifecycle state of a view.
type ViewState int

const (
	// ViewIdle means no data has been applied yet.
	ViewIdle ViewState = iota
	// ViewReady means a graph is loaded.
	ViewReady
	// ViewEmpty means the last applied load had no rows.
	ViewEmpty
	// ViewClosed means the actor has stopped.
	ViewClosed
)

func (s ViewState) String() string {
	switch s {
	case ViewReady:
		return "ready"
	case ViewEmpty:
		return "empty"
	case ViewClosed:
		return "closed"
	default:
		return "idle"
	}
}

// RendererFactory creates the renderer for a freshly loaded graph.
type RendererFactory func(viewID string) (export.Renderer, error)

// ViewOptions configures a view.
type ViewOptions struct {
	Title   string
	Sources []datasource.Source

	Style      builder.Style
	Layout     layout.Options
	Analysis   analysis.Config
	Resolution analysis.Resolution

	// Renderer is called once per successful load. Nil means an in-memory
	// export.Recorder.
	Renderer RendererFactory
	// Loader fetches sources. Nil means datasource.NewLoader with Logger.
	Loader *datasource.Loader
	Logger *log.Logger
}

// Event is published to subscribers after each handled transition.
type Event struct {
	ViewID string
	Kind   string
	Err    error
}

// Event kinds.
const (
	EventLoaded     = "loaded"
	EventEmpty      = "empty"
	EventLoadFailed = "load_failed"
	EventHover      = "hover"
	EventResolution = "resolution"
	EventRecompute  = "recompute"
)

// LoadReport summarises an applied load.
type LoadReport struct {
	RequestID string                  `json:"request_id"`
	Token     uint64                  `json:"token"`
	Sources   []datasource.LoadResult `json:"-"`
	Stats     builder.Stats           `json:"stats"`
	Skipped   []loader.Skip           `json:"-"`
	Invalid   int                     `json:"invalid_weights"`
	Diff      datasource.BatchDiff    `json:"-"`
	Elapsed   time.Duration           `json:"elapsed"`
}

// Snapshot is a consistent copy of a view taken on its actor. The graph is
// a deep copy and safe to read from any goroutine.
type Snapshot struct {
	ViewID     string
	Title      string
	State      ViewState
	Styler     interaction.Styler
	Stats      builder.Stats
	Ranking    analysis.Ranking
	Partition  analysis.Partition
	Resolution analysis.Resolution
	Selection  datasource.Selection
	LastErr    error
}

// Graph returns the copied graph, nil when nothing is loaded.
func (s Snapshot) Graph() *model.Graph { return s.Styler.Graph }

// View owns one graph, its interaction state and its renderer. Every
// operation runs on the view's actor goroutine, one at a time.
type View struct {
	id     string
	opts   ViewOptions
	logger *log.Logger
	loader *datasource.Loader

	ops       chan func()
	done      chan struct{}
	closeOnce sync.Once

	// issued is the latest load token handed out.
	issued atomic.Uint64

	// Owned by the actor.
	state      ViewState
	graph      *model.Graph
	batch      loader.Batch
	stats      builder.Stats
	hover      interaction.State
	resolution analysis.Resolution
	ranking    analysis.Ranking
	partition  analysis.Partition
	partitions *analysis.PartitionCache
	renderer   export.Renderer
	selection  datasource.Selection
	lastErr    error

	subMu sync.Mutex
	subs  []func(Event)
}

func newView(id string, opts ViewOptions) *View {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Resolution == 0 {
		opts.Resolution = analysis.DefaultResolution
	}
	if opts.Style.MaxSize == 0 {
		opts.Style = builder.DefaultStyle()
	}
	if opts.Analysis == (analysis.Config{}) {
		opts.Analysis = analysis.DefaultConfig()
	}
	if opts.Renderer == nil {
		opts.Renderer = func(string) (export.Renderer, error) { return &export.Recorder{}, nil }
	}
	l := opts.Loader
	if l == nil {
		l = datasource.NewLoader(datasource.WithLogger(opts.Logger))
	}
	v := &View{
		id:         id,
		opts:       opts,
		logger:     opts.Logger.With("view", id),
		loader:     l,
		ops:        make(chan func()),
		done:       make(chan struct{}),
		resolution: opts.Resolution,
		partitions: analysis.NewPartitionCache(analysis.DefaultCacheTTL),
	}
	go v.run()
	return v
}

func (v *View) run() {
	for {
		select {
		case fn := <-v.ops:
			fn()
		case <-v.done:
			return
		}
	}
}

// do runs fn on the actor and waits for it.
func (v *View) do(ctx context.Context, fn func()) error {
	// A closed view must fail even while run is still selecting.
	select {
	case <-v.done:
		return ErrClosed
	default:
	}
	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		fn()
	}
	select {
	case v.ops <- op:
	case <-v.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// ID returns the view id.
func (v *View) ID() string { return v.id }

// Title returns the configured title, falling back to the id.
func (v *View) Title() string {
	if v.opts.Title != "" {
		return v.opts.Title
	}
	return v.id
}

// Sources returns the configured sources.
func (v *View) Sources() []datasource.Source { return v.opts.Sources }

// Subscribe registers fn for every event of this view. fn runs on the
// actor and must not call back into the view.
func (v *View) Subscribe(fn func(Event)) {
	v.subMu.Lock()
	defer v.subMu.Unlock()
	v.subs = append(v.subs, fn)
}

func (v *View) publish(kind string, err error) {
	v.subMu.Lock()
	subs := append([]func(Event){}, v.subs...)
	v.subMu.Unlock()
	ev := Event{ViewID: v.id, Kind: kind, Err: err}
	for _, fn := range subs {
		fn(ev)
	}
}

// Load fetches the view's sources passing sel and applies the result.
// Fetching runs outside the actor; the result is applied only if no newer
// load was requested meanwhile, otherwise ErrStaleLoad is returned.
// A fetch failure leaves the current graph and renderer untouched.
func (v *View) Load(ctx context.Context, sel datasource.Selection) (LoadReport, error) {
	token := v.issued.Add(1)
	report := LoadReport{RequestID: uuid.NewString(), Token: token}
	start := time.Now()
	logger := v.logger.With("request", report.RequestID)

	sources := datasource.Select(v.opts.Sources, sel.Years, sel.Categories)
	logger.Debug("load requested", "token", token, "sources", len(sources))

	batch, results, err := v.loader.LoadAll(ctx, sources)
	report.Sources = results
	if err != nil {
		var applyErr error
		doErr := v.do(ctx, func() {
			if token != v.issued.Load() {
				applyErr = ErrStaleLoad
				return
			}
			v.lastErr = err
			logger.Error("load failed, keeping previous graph", "err", err)
			v.publish(EventLoadFailed, err)
		})
		if doErr != nil {
			return report, doErr
		}
		if applyErr != nil {
			return report, applyErr
		}
		return report, err
	}

	var applyErr error
	doErr := v.do(ctx, func() {
		applyErr = v.apply(token, sel, batch, &report)
	})
	if doErr != nil {
		return report, doErr
	}
	report.Elapsed = time.Since(start)
	if applyErr == nil {
		logger.Info("view loaded",
			"nodes", report.Stats.Nodes,
			"edges", report.Stats.Edges,
			"skipped", len(report.Skipped),
			"elapsed", report.Elapsed.Round(time.Millisecond))
	}
	return report, applyErr
}

// Reload repeats the last applied selection.
func (v *View) Reload(ctx context.Context) (LoadReport, error) {
	var sel datasource.Selection
	if err := v.do(ctx, func() { sel = v.selection }); err != nil {
		return LoadReport{}, err
	}
	return v.Load(ctx, sel)
}

// OnDataLoaded applies an already normalized batch as a new load. It
// supersedes any load still in flight.
func (v *View) OnDataLoaded(ctx context.Context, batch loader.Batch) (LoadReport, error) {
	token := v.issued.Add(1)
	report := LoadReport{RequestID: uuid.NewString(), Token: token}
	var applyErr error
	if err := v.do(ctx, func() {
		applyErr = v.apply(token, v.selection, batch, &report)
	}); err != nil {
		return report, err
	}
	return report, applyErr
}

// apply rebuilds the view from batch. Runs on the actor.
func (v *View) apply(token uint64, sel datasource.Selection, batch loader.Batch, report *LoadReport) error {
	if token != v.issued.Load() {
		v.logger.Debug("discarding stale load", "token", token, "latest", v.issued.Load())
		return ErrStaleLoad
	}
	report.Skipped = batch.Skipped
	report.Invalid = batch.InvalidWeights
	report.Diff = datasource.DiffBatches(v.batch, batch, 20)

	g, stats, err := builder.Build(batch, v.opts.Style)
	if errors.Is(err, builder.ErrEmptyDataset) {
		v.clear()
		v.state = ViewEmpty
		v.batch = batch
		v.selection = sel
		v.lastErr = err
		v.logger.Warn("no rows to display", "skipped", len(batch.Skipped))
		v.publish(EventEmpty, err)
		return err
	}
	if err != nil {
		v.lastErr = err
		return err
	}
	report.Stats = stats
	if v.state == ViewReady && report.Diff.HasChanges() {
		v.logger.Info("edge list changed", "diff", report.Diff.Summary())
	}

	layout.Assign(g, v.opts.Layout)

	// Replace the renderer only once the new graph is complete.
	if err := export.Dispose(v.renderer); err != nil {
		v.logger.Warn("dispose renderer", "err", err)
	}
	v.renderer = nil
	v.graph = g
	v.batch = batch
	v.stats = stats
	v.selection = sel
	v.state = ViewReady
	v.lastErr = nil
	v.hover.Reset()

	v.analyze()

	r, err := v.opts.Renderer(v.id)
	if err != nil {
		v.lastErr = fmt.Errorf("create renderer: %w", err)
		v.logger.Error("create renderer", "err", err)
	} else {
		v.renderer = r
		v.render()
	}
	v.publish(EventLoaded, nil)
	return nil
}

// analyze recomputes centrality and communities. Runs on the actor.
func (v *View) analyze() {
	if v.graph == nil {
		return
	}
	v.ranking = analysis.ComputeCentrality(v.graph, v.opts.Analysis.Centrality)
	if st := v.ranking.Status.Eigenvector; st.Err != nil {
		v.logger.Warn("eigenvector centrality unavailable", "reason", st.Reason)
	}
	p, cached, err := v.partitions.Detect(v.graph, v.resolution, v.opts.Analysis.Community)
	if err != nil {
		v.logger.Warn("community detection skipped", "err", err)
		return
	}
	v.partition = p
	v.logger.Debug("communities detected",
		"resolution", v.resolution.String(),
		"communities", p.Len(),
		"modularity", p.Modularity,
		"cached", cached)
}

// render redraws with the current interaction state. Runs on the actor.
func (v *View) render() {
	if v.renderer == nil || v.graph == nil {
		return
	}
	if err := v.renderer.Render(interaction.NewStyler(v.graph, v.hover)); err != nil {
		v.lastErr = fmt.Errorf("render: %w", err)
		v.logger.Error("render failed", "err", err)
	}
}

// clear drops the graph, the analysis results and the renderer.
func (v *View) clear() {
	if err := export.Dispose(v.renderer); err != nil {
		v.logger.Warn("dispose renderer", "err", err)
	}
	v.renderer = nil
	v.graph = nil
	v.stats = builder.Stats{}
	v.ranking = analysis.Ranking{}
	v.partition = analysis.Partition{}
	v.partitions.Invalidate()
	v.hover.Reset()
}

// OnHoverEnter focuses id and redraws.
func (v *View) OnHoverEnter(ctx context.Context, id string) error {
	var err error
	if doErr := v.do(ctx, func() {
		if v.graph == nil {
			err = fmt.Errorf("%w: %q (no graph loaded)", interaction.ErrUnknownNode, id)
			return
		}
		if err = v.hover.Enter(v.graph, id); err != nil {
			return
		}
		v.render()
		v.publish(EventHover, nil)
	}); doErr != nil {
		return doErr
	}
	return err
}

// OnHoverLeave returns to the idle state and redraws.
func (v *View) OnHoverLeave(ctx context.Context) error {
	return v.do(ctx, func() {
		if !v.hover.Focused() {
			return
		}
		v.hover.Leave()
		v.render()
		v.publish(EventHover, nil)
	})
}

// OnResolutionChange applies cmd to the resolution and recomputes the
// communities. Stepping out of range resets the resolution to the default,
// skips the computation and returns analysis.ErrResolutionOutOfRange.
func (v *View) OnResolutionChange(ctx context.Context, cmd analysis.ResolutionCommand) (analysis.Resolution, error) {
	var (
		res analysis.Resolution
		err error
	)
	if doErr := v.do(ctx, func() {
		res, err = v.resolution.Apply(cmd)
		v.resolution = res
		if err != nil {
			v.logger.Warn("resolution out of range, reset to default", "resolution", res.String())
			v.publish(EventResolution, err)
			return
		}
		v.recompute()
		v.publish(EventResolution, nil)
	}); doErr != nil {
		return res, doErr
	}
	return res, err
}

// SetResolution sets the resolution to value and recomputes. A value
// outside [MinResolution, MaxResolution] resets the resolution to the
// default, skips the computation and returns analysis.ErrResolutionOutOfRange.
func (v *View) SetResolution(ctx context.Context, value float64) (analysis.Resolution, error) {
	res, err := analysis.ResolutionFromFloat(value)
	if doErr := v.do(ctx, func() {
		v.resolution = res
		if err != nil {
			v.logger.Warn("resolution out of range, reset to default", "value", value)
			v.publish(EventResolution, err)
			return
		}
		v.recompute()
		v.publish(EventResolution, nil)
	}); doErr != nil {
		return res, doErr
	}
	return res, err
}

// Recompute reruns centrality and community detection on the current graph.
func (v *View) Recompute(ctx context.Context) error {
	return v.do(ctx, func() {
		v.recompute()
		v.publish(EventRecompute, nil)
	})
}

func (v *View) recompute() {
	if v.graph == nil {
		return
	}
	v.analyze()
	v.render()
}

// Ranking returns the current centrality ranking.
func (v *View) Ranking(ctx context.Context) (analysis.Ranking, error) {
	var r analysis.Ranking
	err := v.do(ctx, func() {
		r = v.ranking
		r.Rows = append([]analysis.Row(nil), v.ranking.Rows...)
	})
	return r, err
}

// Communities returns the current partition.
func (v *View) Communities(ctx context.Context) (analysis.Partition, error) {
	var p analysis.Partition
	err := v.do(ctx, func() { p = v.partition })
	return p, err
}

// Resolution returns the current resolution.
func (v *View) Resolution(ctx context.Context) (analysis.Resolution, error) {
	var r analysis.Resolution
	err := v.do(ctx, func() { r = v.resolution })
	return r, err
}

// Snapshot returns a consistent copy of the view.
func (v *View) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := v.do(ctx, func() {
		var g *model.Graph
		if v.graph != nil {
			g = v.graph.Clone()
		}
		s = Snapshot{
			ViewID:     v.id,
			Title:      v.Title(),
			State:      v.state,
			Styler:     interaction.NewStyler(g, v.hover),
			Stats:      v.stats,
			Ranking:    v.ranking,
			Partition:  v.partition,
			Resolution: v.resolution,
			Selection:  v.selection,
			LastErr:    v.lastErr,
		}
	})
	return s, err
}

// Render redraws the current graph to a one-off renderer without touching
// the view's own renderer.
func (v *View) Render(ctx context.Context, r export.Renderer) error {
	var err error
	if doErr := v.do(ctx, func() {
		if v.graph == nil {
			err = builder.ErrEmptyDataset
			return
		}
		err = r.Render(interaction.NewStyler(v.graph, v.hover))
	}); doErr != nil {
		return doErr
	}
	return err
}

// close stops the actor after disposing the renderer.
func (v *View) close() {
	v.closeOnce.Do(func() {
		_ = v.do(context.Background(), func() {
			v.clear()
			v.state = ViewClosed
		})
		close(v.done)
	})
}
