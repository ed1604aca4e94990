package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"helix-hq/callisto/pkg/config"
	"helix-hq/callisto/pkg/quota"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Inspect and manage the daily spend ledger",
}

var budgetShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show recorded daily spends",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(cfg *config.Config, mgr *quota.Manager) error {
			spends, err := mgr.Ledger().AllSpends(cmd.Context())
			if err != nil {
				return err
			}
			if len(spends) == 0 {
				fmt.Println("no spends recorded")
				return nil
			}

			days := make([]string, 0, len(spends))
			for day := range spends {
				days = append(days, day)
			}
			sort.Strings(days)

			for _, day := range days {
				fmt.Printf("%s  $%.4f\n", day, spends[day])
			}
			fmt.Printf("daily cap: $%.2f\n", mgr.Ledger().DailyCap())
			return nil
		})
	},
}

var budgetResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear today's spend accumulator",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(cfg *config.Config, mgr *quota.Manager) error {
			if err := mgr.Ledger().ClearToday(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("today's spend cleared")
			return nil
		})
	},
}

func init() {
	budgetCmd.AddCommand(budgetShowCmd)
	budgetCmd.AddCommand(budgetResetCmd)
	rootCmd.AddCommand(budgetCmd)
}
