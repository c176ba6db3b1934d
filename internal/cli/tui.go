package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/cograph/pkg/ui"
)

func newTUICmd(root *rootOpts) *cobra.Command {
	var (
		watch   bool
		logFile string
	)

	cmd := &cobra.Command{
		Use:   "tui [view...]",
		Short: "Explore views interactively in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("tui needs a terminal; use 'cograph rank' or 'cograph render' instead")
			}

			// The alternate screen owns the terminal; logs go to a file or nowhere.
			var w io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			level := log.InfoLevel
			if root.verbose {
				level = log.DebugLevel
			}
			logger := newLogger(w, level)
			ctx := withLogger(cmd.Context(), logger)

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

			// A failed view still opens; its footer shows the error.
			if err := loadViews(ctx, root, sess, views); err != nil {
				logger.Error("load failed", "err", err)
			}
			if watch {
				stop, err := startWatchers(ctx, sess, cfg, views)
				if err != nil {
					return err
				}
				defer stop()
			}
			return ui.Run(ctx, sess, ui.WithLogger(logger))
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload views when their source files change")
	cmd.Flags().StringVar(&logFile, "log-file", "", "append logs to this file")
	return cmd
}
