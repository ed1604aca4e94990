package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"helix-hq/callisto/pkg/config"
	"helix-hq/callisto/pkg/quota"
)

var statsClient string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show quota layer statistics",
	Long: `Show cache, budget, and rate limit statistics. With --client, also
show the sliding-window usage for that client identifier.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(cfg *config.Config, mgr *quota.Manager) error {
			snap, err := mgr.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Cache entries:   %d\n", snap.CacheEntries)
			fmt.Printf("Cache hits:      %d\n", snap.CacheHits)
			fmt.Printf("Cache misses:    %d\n", snap.CacheMisses)
			fmt.Printf("Spent today:     $%.4f of $%.2f\n", snap.SpentTodayUSD, snap.DailyCapUSD)
			fmt.Printf("Rate limit:      %d requests / %s\n",
				mgr.Limiter().Limit(), mgr.Limiter().Window())

			if statsClient != "" {
				st, err := mgr.Limiter().Stats(cmd.Context(), statsClient)
				if err != nil {
					return err
				}
				fmt.Printf("Client used:     %d\n", st.Used)
				fmt.Printf("Client remaining: %d\n", st.Remaining)
				fmt.Printf("Window resets:   %s\n", st.WindowReset.Format("15:04:05"))
			}
			return nil
		})
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsClient, "client", "", "client identifier to inspect")
	rootCmd.AddCommand(statsCmd)
}
