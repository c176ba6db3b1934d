package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/cograph/pkg/session"
)

// loadOne opens and loads a single view without file output.
func loadOne(ctx context.Context, root *rootOpts, id string) (*session.Session, *session.View, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, nil, err
	}
	views, err := pickViews(cfg, []string{id})
	if err != nil {
		return nil, nil, err
	}
	sess, err := openSession(ctx, root, cfg, views, false)
	if err != nil {
		return nil, nil, err
	}
	if err := loadViews(ctx, root, sess, views); err != nil {
		_ = sess.Close()
		return nil, nil, err
	}
	v, err := sess.View(views[0].ID)
	if err != nil {
		_ = sess.Close()
		return nil, nil, err
	}
	return sess, v, nil
}

func newRankCmd(root *rootOpts) *cobra.Command {
	var (
		asJSON bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "rank <view>",
		Short: "Print the centrality ranking of a view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, v, err := loadOne(ctx, root, args[0])
			if err != nil {
				return err
			}
			defer sess.Close()

			ranking, err := v.Ranking(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				if limit > 0 && len(ranking.Rows) > limit {
					ranking.Rows = ranking.Rows[:limit]
				}
				return writeJSON(cmd.OutOrStdout(), ranking)
			}
			part, err := v.Communities(ctx)
			if err != nil {
				return err
			}
			printRanking(cmd.OutOrStdout(), ranking, part, limit)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "print at most n rows")
	return cmd
}

func newCommunitiesCmd(root *rootOpts) *cobra.Command {
	var (
		asJSON     bool
		maxMembers int
	)

	cmd := &cobra.Command{
		Use:   "communities <view>",
		Short: "Print the communities of a view",
		Long: `Print the communities of a view at the initial resolution. Use the global
--resolution flag to detect communities at another resolution.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, v, err := loadOne(ctx, root, args[0])
			if err != nil {
				return err
			}
			defer sess.Close()

			part, err := v.Communities(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), struct {
					Resolution  float64 `json:"resolution"`
					Communities any     `json:"communities"`
				}{part.Resolution.Float64(), part})
			}
			if part.Len() == 0 {
				return fmt.Errorf("view %s has no communities", args[0])
			}
			printPartition(cmd.OutOrStdout(), part, maxMembers)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().IntVar(&maxMembers, "members", 8, "members listed per community (0 for all)")
	return cmd
}
