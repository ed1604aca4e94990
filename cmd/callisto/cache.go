package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"helix-hq/callisto/pkg/config"
	"helix-hq/callisto/pkg/quota"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response cache",
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(cfg *config.Config, mgr *quota.Manager) error {
			removed, err := mgr.Cache().CleanupExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("removed %d expired entries\n", removed)
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(cfg *config.Config, mgr *quota.Manager) error {
			if err := mgr.Cache().Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("cache cleared")
			return nil
		})
	},
}

func init() {
	cacheCmd.AddCommand(cacheCleanupCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
