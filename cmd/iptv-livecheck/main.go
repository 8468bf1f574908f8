package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alorle/iptv-livecheck/config"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "iptv-livecheck",
		Short:         "Verify IPTV catalog groups and keep only live streams",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML configuration file (default config.yaml)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Perform one verification run and update the catalog",
		RunE:  runOnce,
	}
	runCmd.Flags().StringArrayP("group", "g", nil, "Group tag to verify (repeatable, default: all configured targets)")
	runCmd.Flags().Bool("dry-run", false, "Probe and report without writing the catalog")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run verifications on a schedule and expose the HTTP API",
		RunE:  serve,
	}

	parseCmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Print the group and entry census of a catalog file",
		Args:  cobra.ExactArgs(1),
		RunE:  parseCatalog,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Print()
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, serveCmd, parseCmd, configCmd)
	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger and installs it as the default.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Log.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
