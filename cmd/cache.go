package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Norgate-AV/vyc/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the build cache",
}

var cacheClearCmd = &cobra.Command{
	Use:          "clear",
	Short:        "Remove all cached build results",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cache.New(viper.GetString("cache_dir"))
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Clear(); err != nil {
			return err
		}

		fmt.Println("Cache cleared")
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:          "stats",
	Short:        "Show build cache statistics",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cache.New(viper.GetString("cache_dir"))
		if err != nil {
			return err
		}
		defer c.Close()

		count, size, err := c.Stats()
		if err != nil {
			return err
		}

		fmt.Printf("Files: %d\nStore size: %d bytes\n", count, size)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
}
