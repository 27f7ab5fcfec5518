package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/interpretive-systems/critique/internal/config"
)

func Execute() error {
	if err := newRootCmd().Execute(); err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	return nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "critique",
		Short:         "Review diffs and comment on changed lines in the terminal",
		Long:          "critique: browse a diff file by file and anchor review comments to its lines.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Path to config file (default: user config dir)")
	root.PersistentFlags().String("log-file", "", "Write logs to this file (logging is off without one)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log at debug level")

	root.AddCommand(newReviewCmd())
	root.AddCommand(newCompareCmd())
	root.AddCommand(newRowsCmd())
	return root
}

// setup loads the configuration and points the global logger at the log
// file. The returned func closes the file.
func setup(cmd *cobra.Command) (config.Parsed, func(), error) {
	cfg, err := config.Load(mustGetStringFlag(cmd, "config"))
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}

	path := mustGetStringFlag(cmd, "log-file")
	if path == "" {
		path = cfg.Log.File
	}
	if path == "" {
		zerolog.SetGlobalLevel(zerolog.Disabled)
		return cfg, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return cfg, nil, fmt.Errorf("open log file: %w", err)
	}
	level := cfg.Log.Level
	if mustGetBoolFlag(cmd, "verbose") {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	log.Debug().Str("command", cmd.Name()).Msg("starting")
	return cfg, func() { f.Close() }, nil
}

func mustGetStringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		fmt.Fprintln(os.Stderr, "flag error:", err)
		os.Exit(2)
	}
	return v
}

func mustGetBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		fmt.Fprintln(os.Stderr, "flag error:", err)
		os.Exit(2)
	}
	return v
}
