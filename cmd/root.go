package cmd

import (
	"fmt"
	"os"

	"github.com/Norgate-AV/vyc/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:          "vyc",
	Short:        "Incremental Vyper compiler driver",
	Long:         `Compile Vyper contracts incrementally across multiple installed compiler versions`,
	RunE:         runBuild,
	SilenceUsage: true,
	Args:         cobra.ArbitraryArgs,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	rootCmd.PersistentFlags().StringP("out", "o", "", "Output directory for compiled artifacts")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable build cache")
	rootCmd.PersistentFlags().String("default-version", "", "Compiler version for files without a version pragma")
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(cacheCmd)

	viper.SetDefault("cache_dir", ".vyc-cache")
	viper.SetDefault("out", "artifacts")
	viper.SetDefault("verbose", false)
}
