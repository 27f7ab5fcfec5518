package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/interpretive-systems/critique/internal/config"
	"github.com/interpretive-systems/critique/internal/gitx"
	"github.com/interpretive-systems/critique/internal/localreview"
	"github.com/interpretive-systems/critique/internal/prefs"
	"github.com/interpretive-systems/critique/internal/review"
	"github.com/interpretive-systems/critique/internal/theme"
	"github.com/interpretive-systems/critique/internal/tui"
	"github.com/interpretive-systems/critique/internal/virtualize"
)

func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review the changes of a git work tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, done, err := setup(cmd)
			if err != nil {
				return err
			}
			defer done()

			root, err := gitx.RepoRoot(cmd.Context(), mustGetStringFlag(cmd, "repo"))
			if err != nil {
				return fmt.Errorf("not a git repo: %w", err)
			}
			staged := mustGetBoolFlag(cmd, "staged")
			mrID, err := cmd.Flags().GetInt("mr")
			if err != nil {
				return err
			}
			faults, err := faultFlags(cmd)
			if err != nil {
				return err
			}

			remote := localreview.NewWorktree(root, staged, remoteOptions(cfg, faults))
			opts := programOptions(cfg, root)
			opts.MRID = mrID
			opts.Title = filepath.Base(root)
			if staged {
				opts.Title += " (staged)"
			}
			return tui.Run(remote, opts)
		},
	}
	cmd.Flags().StringP("repo", "r", ".", "Path to repository root (default: current dir)")
	cmd.Flags().Bool("staged", false, "Review the index instead of the work tree")
	cmd.Flags().Int("mr", 1, "Review id comments are filed under")
	addFaultFlags(cmd)
	return cmd
}

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare OLD NEW",
		Short: "Review the differences between two files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range args {
				if _, err := os.Stat(p); err != nil {
					return err
				}
			}
			cfg, done, err := setup(cmd)
			if err != nil {
				return err
			}
			defer done()
			faults, err := faultFlags(cmd)
			if err != nil {
				return err
			}

			remote := localreview.NewCompare(args[0], args[1], remoteOptions(cfg, faults))
			opts := programOptions(cfg, "")
			opts.Title = "compare"
			return tui.Run(remote, opts)
		},
	}
	addFaultFlags(cmd)
	return cmd
}

func addFaultFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("fail-rate", 0, "Fraction of comment and diff calls that fail, for trying out rollback")
	cmd.Flags().Duration("latency", 0, "Delay added to every comment and diff call")
}

func faultFlags(cmd *cobra.Command) (localreview.Faults, error) {
	rate, err := cmd.Flags().GetFloat64("fail-rate")
	if err != nil {
		return localreview.Faults{}, err
	}
	if rate < 0 || rate > 1 {
		return localreview.Faults{}, fmt.Errorf("fail-rate must be within [0, 1], got %v", rate)
	}
	latency, err := cmd.Flags().GetDuration("latency")
	if err != nil {
		return localreview.Faults{}, err
	}
	return localreview.Faults{FailRate: rate, Latency: latency}, nil
}

func remoteOptions(cfg config.Parsed, faults localreview.Faults) localreview.Options {
	return localreview.Options{
		LargeDiffLines: cfg.Loader.LargeDiffLines,
		PageSize:       cfg.Loader.PageSize,
		ContextLines:   cfg.View.ContextLines,
		Author:         cfg.Comments.Author,
		Faults:         faults,
	}
}

// programOptions builds the TUI options from the config. Preferences stored
// in the repository win over the configured view mode.
func programOptions(cfg config.Parsed, repoRoot string) tui.Options {
	split := cfg.View.Split
	var leftWidth int
	if repoRoot != "" {
		p := prefs.Load(repoRoot)
		if p.SplitSet {
			split = p.Split
		}
		if p.LeftSet {
			leftWidth = p.LeftWidth
		}
	}
	return tui.Options{
		RepoRoot: repoRoot,
		Session: review.Options{
			LargeDiffLines:  cfg.Loader.LargeDiffLines,
			PageSize:        cfg.Loader.PageSize,
			Proximity:       cfg.Loader.Proximity,
			ContextLines:    cfg.View.ContextLines,
			MutationTimeout: cfg.Comments.MutationTimeout,
			Author:          cfg.Comments.Author,
			Split:           split,
		},
		Metrics: virtualize.Metrics{
			LineHeight:         cfg.View.LineHeight,
			HeaderHeight:       cfg.View.HeaderHeight,
			PlaceholderHeight:  cfg.View.PlaceholderHeight,
			Overscan:           cfg.View.Overscan,
			SmallDiffThreshold: cfg.View.SmallDiffThreshold,
		},
		Theme:     theme.Load(repoRoot, cfg.Theme.Name, cfg.Theme.SyntaxStyle),
		LeftWidth: leftWidth,
		Now:       time.Now,
	}
}
