package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"helix-hq/callisto/pkg/config"
	"helix-hq/callisto/pkg/quota"
	"helix-hq/callisto/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

const defaultConfigPath = "callisto.yaml"

var rootCmd = &cobra.Command{
	Use:   "callisto",
	Short: "Callisto - persistent quota and response-cache layer",
	Long: `Callisto is the persistent quota layer for AI-backed services: a
response cache with TTL expiry, a daily spend ledger, and a sliding-window
rate limiter, all backed by embedded single-file SQLite stores.

This CLI operates those stores:
  - Scheduled retention sweeps with config hot reload
  - Quota statistics for cache, budget, and per-client rate limits
  - Ops utilities (cache cleanup/clear, budget reset, rate limit reset)`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the config file with env overrides. A missing file at the
// default path falls back to built-in defaults; an explicitly given path
// must exist.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil && errors.Is(err, fs.ErrNotExist) && cfgFile == defaultConfigPath {
		return config.Default(), nil
	}
	return cfg, err
}

// newLogger builds the process logger from config plus the --verbose flag.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level := cfg.Telemetry.Logging.Level
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Config{
		Level:  level,
		Format: cfg.Telemetry.Logging.Format,
		Writer: os.Stderr,
	})
}

// newManager constructs the quota manager from config.
func newManager(cfg *config.Config, logger *slog.Logger) (*quota.Manager, error) {
	return quota.NewManager(quota.Config{
		Driver:                   cfg.Storage.Driver,
		BusyTimeout:              cfg.Storage.BusyTimeout,
		MaxConns:                 cfg.Storage.MaxConns,
		CachePath:                cfg.Cache.Path,
		CacheTTL:                 cfg.Cache.TTL,
		BudgetPath:               cfg.Budget.Path,
		DailyCapUSD:              cfg.Budget.DailyCapUSD,
		RateLimitPath:            cfg.RateLimit.Path,
		RateLimit:                cfg.RateLimit.Requests,
		RateLimitWindow:          cfg.RateLimit.Window,
		RateLimitCleanupInterval: cfg.RateLimit.CleanupInterval,
		Logger:                   logger,
	})
}

// withManager runs fn with a manager built from the loaded config, closing
// the stores afterwards.
func withManager(fn func(*config.Config, *quota.Manager) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	mgr, err := newManager(cfg, logger)
	if err != nil {
		return err
	}
	defer mgr.Close()

	return fn(cfg, mgr)
}
