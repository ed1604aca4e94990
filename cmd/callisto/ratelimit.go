package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"helix-hq/callisto/pkg/config"
	"helix-hq/callisto/pkg/quota"
)

var resetAll bool

var ratelimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Manage the rate limiter",
}

var ratelimitResetCmd = &cobra.Command{
	Use:   "reset [identifier]",
	Short: "Reset rate limit state for a client, or all clients with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetAll && len(args) == 0 {
			return fmt.Errorf("provide a client identifier or --all")
		}
		return withManager(func(cfg *config.Config, mgr *quota.Manager) error {
			if resetAll {
				if err := mgr.Limiter().ResetAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Println("all rate limits reset")
				return nil
			}
			if err := mgr.Limiter().Reset(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("rate limit reset")
			return nil
		})
	},
}

func init() {
	ratelimitResetCmd.Flags().BoolVar(&resetAll, "all", false, "reset every client")
	ratelimitCmd.AddCommand(ratelimitResetCmd)
	rootCmd.AddCommand(ratelimitCmd)
}
