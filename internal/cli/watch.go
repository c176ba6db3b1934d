package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/cograph/internal/datasource"
	"github.com/vanderheijden86/cograph/pkg/config"
	"github.com/vanderheijden86/cograph/pkg/session"
	"github.com/vanderheijden86/cograph/pkg/watcher"
)

// localPaths returns the files behind a view's file and SQLite sources.
func localPaths(sources []datasource.Source) []string {
	var paths []string
	for _, s := range sources {
		switch s.Type() {
		case datasource.SourceTypeFile:
			paths = append(paths, s.Path)
		case datasource.SourceTypeSQLite:
			paths = append(paths, s.SQLite)
		}
	}
	return paths
}

// startWatchers reloads each view when one of its local sources changes.
// The returned function stops every watcher.
func startWatchers(ctx context.Context, sess *session.Session, cfg config.Config, views []config.ViewConfig) (func(), error) {
	logger := loggerFromContext(ctx)
	var started []*watcher.Watcher
	stop := func() {
		for _, w := range started {
			w.Stop()
		}
	}

	for _, vc := range views {
		paths := localPaths(vc.Sources)
		if len(paths) == 0 {
			logger.Debug("no local sources to watch", "view", vc.ID)
			continue
		}
		v, err := sess.View(vc.ID)
		if err != nil {
			stop()
			return nil, err
		}
		w, err := watcher.NewWatcher(paths,
			watcher.WithDebounceDuration(cfg.Watch.DebounceDuration()),
			watcher.WithLogger(logger.With("view", vc.ID)),
			watcher.WithOnChange(reloadOnChange(ctx, logger, v)),
			watcher.WithOnError(func(err error) {
				logger.Warn("watch error", "view", vc.ID, "err", err)
			}),
		)
		if err != nil {
			stop()
			return nil, err
		}
		if err := w.Start(); err != nil {
			stop()
			return nil, fmt.Errorf("watch view %s: %w", vc.ID, err)
		}
		started = append(started, w)
		logger.Info("watching sources", "view", vc.ID, "files", len(paths), "polling", w.IsPolling())
	}
	return stop, nil
}

func reloadOnChange(ctx context.Context, logger *log.Logger, v *session.View) func([]string) {
	return func(changed []string) {
		logger.Info("sources changed, reloading", "view", v.ID(), "files", changed)
		report, err := v.Reload(ctx)
		switch {
		case errors.Is(err, session.ErrStaleLoad):
			logger.Debug("reload superseded", "view", v.ID())
		case err != nil:
			logger.Error("reload failed, keeping previous graph", "view", v.ID(), "err", err)
		default:
			logReport(logger, v.ID(), report)
			if report.Diff.HasChanges() {
				logger.Info("graph changed", "view", v.ID(), "diff", report.Diff.Summary())
			}
		}
	}
}

func newWatchCmd(root *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [view...]",
		Short: "Render views and re-render whenever their source files change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			views, err := pickViews(cfg, args)
			if err != nil {
				return err
			}
			sess, err := openSession(ctx, root, cfg, views, true)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := loadViews(ctx, root, sess, views); err != nil {
				loggerFromContext(ctx).Error("initial load failed", "err", err)
			}
			stop, err := startWatchers(ctx, sess, cfg, views)
			if err != nil {
				return err
			}
			defer stop()

			<-ctx.Done()
			return nil
		},
	}
}
