package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Norgate-AV/vyc/internal/build"
	"github.com/Norgate-AV/vyc/internal/compiler"
	"github.com/Norgate-AV/vyc/internal/config"
)

var buildCmd = &cobra.Command{
	Use:          "build",
	Short:        "Build Vyper contracts",
	Long:         `Compile the given Vyper source files, skipping files that are unchanged since the last build.`,
	RunE:         runBuild,
	SilenceUsage: true,
}

func runBuild(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("requires at least one file argument")
	}

	for _, file := range args {
		if !strings.HasSuffix(file, ".vy") {
			return fmt.Errorf("file must have .vy extension: %s", file)
		}
	}

	loader := config.NewLoader()
	cfg, err := loader.LoadForBuild(cmd, args)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	runner, err := build.NewRunner(cfg, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := runner.Run(ctx, args)
	if err != nil {
		return err
	}

	if err := writeArtifacts(cfg.OutDir, result.Units); err != nil {
		return err
	}

	fmt.Printf("Compiled %d file(s), %d from cache (%d compiler invocation(s))\n",
		result.Compiled, result.Cached, result.Invocations)

	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// writeArtifacts writes one JSON artifact per contract. The core never
// writes artifacts itself; this is the CLI's consumer of the
// normalized units.
func writeArtifacts(outDir string, units []*compiler.CompiledUnit) error {
	if len(units) == 0 {
		return nil
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, unit := range units {
		data, err := json.MarshalIndent(unit, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode artifact for %s: %w", unit.ContractName, err)
		}

		path := filepath.Join(outDir, unit.ContractName+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write artifact %s: %w", path, err)
		}
	}

	return nil
}
