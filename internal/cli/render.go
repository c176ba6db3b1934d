package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/cograph/pkg/export"
)

// renderOpts holds the flags of the render command.
type renderOpts struct {
	output string // output path, single view only
	format string // output format, overrides the extension
	width  int    // canvas width in pixels
	height int    // canvas height in pixels
	hover  string // node to focus before the final frame
}

func newRenderCmd(root *rootOpts) *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [view...]",
		Short: "Load views and write their rendered networks",
		Long: `Load the named views (all views when none are named) and write each one
to its configured output. --output and --format override the configured
output when exactly one view is rendered.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			prog := newProgress(logger)

			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			views, err := pickViews(cfg, args)
			if err != nil {
				return err
			}
			if (opts.output != "" || opts.format != "") && len(views) != 1 {
				return fmt.Errorf("--output and --format need exactly one view, got %d", len(views))
			}
			for i := range views {
				out := &views[i].Output
				if opts.output != "" {
					// The extension picks the format unless --format is given.
					out.Path, out.Format = opts.output, ""
				}
				if opts.format != "" {
					out.Format = opts.format
				}
				if opts.width > 0 {
					out.Width = opts.width
				}
				if opts.height > 0 {
					out.Height = opts.height
				}
				if out.Path == "" && out.Format != export.FormatNone {
					return fmt.Errorf("view %s has no output path (set output.path or use --output)", views[i].ID)
				}
				if _, err := export.ResolveFormat(export.Options{Path: out.Path, Format: out.Format}); err != nil {
					return fmt.Errorf("view %s: %w", views[i].ID, err)
				}
			}

			sess, err := openSession(ctx, root, cfg, views, true)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := loadViews(ctx, root, sess, views); err != nil {
				return err
			}

			if opts.hover != "" {
				for _, vc := range views {
					v, err := sess.View(vc.ID)
					if err != nil {
						return err
					}
					if err := v.OnHoverEnter(ctx, opts.hover); err != nil {
						return fmt.Errorf("view %s: %w", vc.ID, err)
					}
				}
			}

			for _, vc := range views {
				if vc.Output.Path != "" {
					logger.Info("wrote", "view", vc.ID, "path", vc.Output.Path)
				}
			}
			prog.done(fmt.Sprintf("Rendered %d view(s)", len(views)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single view only)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: svg, png, json, dot, graphviz, sqlite, none")
	cmd.Flags().IntVar(&opts.width, "width", 0, "canvas width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", 0, "canvas height in pixels")
	cmd.Flags().StringVar(&opts.hover, "hover", "", "focus this node and its neighbours in the output")

	return cmd
}
