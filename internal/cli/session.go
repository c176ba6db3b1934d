package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/cograph/internal/datasource"
	"github.com/vanderheijden86/cograph/pkg/analysis"
	"github.com/vanderheijden86/cograph/pkg/config"
	"github.com/vanderheijden86/cograph/pkg/export"
	"github.com/vanderheijden86/cograph/pkg/session"
	"github.com/vanderheijden86/cograph/pkg/ui"
)

// loadConfig reads the configuration named by --config, or the default
// file, and validates it.
func loadConfig(opts *rootOpts) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFrom(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if len(cfg.Views) == 0 {
		return cfg, fmt.Errorf("no views configured in %s (run 'cograph config init')", displayPath(cfg.Path()))
	}
	return cfg, nil
}

func displayPath(p string) string {
	if p == "" {
		return config.ConfigPath()
	}
	return p
}

// pickViews returns the configured views named by ids, or all of them.
func pickViews(cfg config.Config, ids []string) ([]config.ViewConfig, error) {
	if len(ids) == 0 {
		return cfg.Views, nil
	}
	out := make([]config.ViewConfig, 0, len(ids))
	for _, id := range ids {
		vc := cfg.FindView(id)
		if vc == nil {
			return nil, fmt.Errorf("%w: %q", session.ErrUnknownView, id)
		}
		out = append(out, *vc)
	}
	return out, nil
}

// selectionFor merges the view's configured selection with the command
// line, prompting when --select is set.
func selectionFor(opts *rootOpts, vc config.ViewConfig) (datasource.Selection, error) {
	sel := vc.Selection()
	if len(opts.years) > 0 {
		years, err := parseYears(opts.years)
		if err != nil {
			return sel, err
		}
		sel.Years = years
	}
	if len(opts.categories) > 0 {
		sel.Categories = opts.categories
	}
	if opts.selectSources {
		return ui.PromptSelection(vc.Sources, sel)
	}
	return sel, nil
}

// resolutionFor returns --resolution when given, else the configured one.
func resolutionFor(opts *rootOpts, cfg config.Config) (analysis.Resolution, error) {
	if opts.resolution != 0 {
		return analysis.ResolutionFromFloat(opts.resolution)
	}
	return cfg.Resolution()
}

// rendererFactory builds the configured file renderer for a view. Views
// without an output path render to memory.
func rendererFactory(vc config.ViewConfig) session.RendererFactory {
	if vc.Output.Path == "" && vc.Output.Format != export.FormatNone {
		return nil
	}
	out, title := vc.Output, vc.Title
	if title == "" {
		title = vc.ID
	}
	return func(string) (export.Renderer, error) {
		return export.NewRenderer(export.Options{
			Path:   out.Path,
			Format: out.Format,
			Title:  title,
			Width:  out.Width,
			Height: out.Height,
		})
	}
}

// openSession opens one view per vc. File output is wired only when
// withOutput is set.
func openSession(ctx context.Context, opts *rootOpts, cfg config.Config, views []config.ViewConfig, withOutput bool) (*session.Session, error) {
	logger := loggerFromContext(ctx)
	res, err := resolutionFor(opts, cfg)
	if err != nil {
		return nil, err
	}

	loader := datasource.NewLoader(datasource.WithLogger(logger))
	sess := session.New(session.WithLogger(logger))
	for _, vc := range views {
		vo := session.ViewOptions{
			Title:      vc.Title,
			Sources:    vc.Sources,
			Style:      cfg.Style,
			Layout:     cfg.Layout,
			Analysis:   cfg.AnalysisOptions(),
			Resolution: res,
			Loader:     loader,
			Logger:     logger.With("view", vc.ID),
		}
		if withOutput {
			vo.Renderer = rendererFactory(vc)
		}
		if _, err := sess.Open(vc.ID, vo); err != nil {
			_ = sess.Close()
			return nil, err
		}
	}
	return sess, nil
}

// loadViews loads every view with its selection concurrently. A failing
// view does not stop the others; the joined errors are returned.
func loadViews(ctx context.Context, opts *rootOpts, sess *session.Session, views []config.ViewConfig) error {
	logger := loggerFromContext(ctx)

	// Prompts must run one at a time before the loads start.
	sels := make([]datasource.Selection, len(views))
	for i, vc := range views {
		sel, err := selectionFor(opts, vc)
		if err != nil {
			return err
		}
		sels[i] = sel
	}

	errs := make([]error, len(views))
	var g errgroup.Group
	for i, vc := range views {
		g.Go(func() error {
			v, err := sess.View(vc.ID)
			if err != nil {
				errs[i] = err
				return nil
			}
			report, err := v.Load(ctx, sels[i])
			if err != nil {
				errs[i] = fmt.Errorf("view %s: %w", vc.ID, err)
				return nil
			}
			logReport(logger, vc.ID, report)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func logReport(logger *log.Logger, id string, report session.LoadReport) {
	logger.Info("loaded view",
		"view", id,
		"nodes", report.Stats.Nodes,
		"edges", report.Stats.Edges,
		"sources", len(report.Sources),
		"elapsed", report.Elapsed)
	if n := len(report.Skipped); n > 0 || report.Invalid > 0 {
		logger.Warn("rows not used", "view", id, "skipped", n, "invalid_weights", report.Invalid)
	}
	for _, s := range report.Skipped {
		logger.Debug("skipped row", "view", id, "origin", s.Origin, "row", s.Row, "reason", s.Reason)
	}
}
