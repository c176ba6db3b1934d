// Package cli implements the cograph command-line interface.
//
// Every command reads the configuration file (see cograph config path),
// opens a session with the requested views and loads them before acting.
// All commands support --verbose (-v) for debug-level logging; the logger
// travels through context.Context.
package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/cograph/pkg/metrics"
	"github.com/vanderheijden86/cograph/pkg/version"
)

// rootOpts holds the persistent flags shared by every command.
type rootOpts struct {
	configPath    string
	verbose       bool
	years         []string
	categories    []string
	resolution    float64
	selectSources bool
	stats         bool
}

// Execute runs the cograph CLI.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOpts{}

	root := &cobra.Command{
		Use:   "cograph",
		Short: "cograph turns co-occurrence edge lists into interactive networks",
		Long: `cograph loads weighted co-occurrence edge lists (CSV files, HTTP endpoints
or SQLite queries), builds an undirected network, lays it out, ranks nodes
by degree and eigenvector centrality and groups them into communities.`,
		Version:      version.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := log.InfoLevel
			if opts.verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), level)))
			if opts.stats {
				metrics.SetEnabled(true)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.stats {
				printStats(cmd.ErrOrStderr())
			}
		},
	}
	root.SetVersionTemplate("cograph {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/cograph/config.yaml)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	pf.StringSliceVar(&opts.years, "years", nil, "load only edge sources of these years (comma-separated)")
	pf.StringSliceVar(&opts.categories, "categories", nil, "load only category sources of these categories (comma-separated)")
	pf.Float64Var(&opts.resolution, "resolution", 0, "initial community resolution, 0.1 to 4.0 (default from config)")
	pf.BoolVar(&opts.selectSources, "select", false, "choose years and categories interactively")
	pf.BoolVar(&opts.stats, "stats", false, "print pipeline timings on exit")

	root.AddCommand(newRenderCmd(opts))
	root.AddCommand(newRankCmd(opts))
	root.AddCommand(newCommunitiesCmd(opts))
	root.AddCommand(newTUICmd(opts))
	root.AddCommand(newWatchCmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newConfigCmd(opts))

	return root
}

// parseYears converts --years values to integers.
func parseYears(values []string) ([]int, error) {
	out := make([]int, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		y, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", v)
		}
		out = append(out, y)
	}
	return out, nil
}
