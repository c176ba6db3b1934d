package cli

import (
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/cograph/pkg/server"
)

func newServeCmd(root *rootOpts) *cobra.Command {
	var (
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve [view...]",
		Short: "Serve views over HTTP for a browser viewer",
		Long: `Serve the loaded views as graph JSON and SVG, and accept hover and
resolution changes:

  GET    /api/views
  GET    /api/views/{id}
  POST   /api/views/{id}/reload
  POST   /api/views/{id}/hover        {"node": "..."}
  DELETE /api/views/{id}/hover
  POST   /api/views/{id}/resolution   {"command": "+"} or {"value": 1.5}
  GET    /api/views/{id}/ranking
  GET    /api/views/{id}/communities
  GET    /api/views/{id}/render.svg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

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
				logger.Error("initial load failed", "err", err)
			}
			if watch {
				stop, err := startWatchers(ctx, sess, cfg, views)
				if err != nil {
					return err
				}
				defer stop()
			}

			if addr == "" {
				addr = cfg.Serve.Addr
			}
			return server.New(sess, server.WithLogger(logger)).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload views when their source files change")
	return cmd
}
