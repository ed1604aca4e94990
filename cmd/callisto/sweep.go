package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"helix-hq/callisto/pkg/config"
	"helix-hq/callisto/pkg/quota"
	"helix-hq/callisto/pkg/quota/retention"
)

var sweepOnce bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run retention sweeps over the quota stores",
	Long: `Run retention sweeps: delete expired response-cache rows and stale
rate-limiter rows.

With --once a single sweep runs and the command exits. Otherwise the sweeper
runs on the cron schedule from retention.sweep_schedule, watching the config
file for changes, until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(cfg *config.Config, mgr *quota.Manager) error {
			logger := slog.Default()
			sweeper := retention.NewSweeper(mgr.Cache(), mgr.Limiter(), cfg.Retention.SweepSchedule, logger)

			if sweepOnce {
				result, err := sweeper.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("removed %d expired cache entries, %d stale rate limit rows\n",
					result.CacheRemoved, result.RequestsRemoved)
				return nil
			}

			if cfg.Retention.SweepSchedule == "" {
				return fmt.Errorf("retention.sweep_schedule is not configured; use --once for a single sweep")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := sweeper.Start(ctx); err != nil {
				return err
			}

			// Reload tuning changes while the daemon runs. Schedule changes
			// require a restart; everything else re-reads from the stores.
			watcher, err := config.NewWatcher(cfgFile, logger)
			if err != nil {
				logger.Warn("config watcher unavailable", "error", err)
				<-ctx.Done()
				return nil
			}
			return watcher.Watch(ctx, func(updated *config.Config) {
				logger.Info("configuration changed",
					"daily_cap_usd", updated.Budget.DailyCapUSD,
					"rate_limit_requests", updated.RateLimit.Requests,
				)
			})
		})
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepOnce, "once", false, "run a single sweep and exit")
	rootCmd.AddCommand(sweepCmd)
}
