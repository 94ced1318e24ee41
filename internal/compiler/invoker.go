package compiler

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"go.uber.org/zap"
)

// MaxOutputBytes is the per-stream ceiling for compiler output. A
// combined payload for many contracts can run to hundreds of megabytes;
// anything past this is treated as an error rather than truncated.
const MaxOutputBytes int64 = 512 << 20

// Invoker runs the external compiler, one process per resolved group.
type Invoker struct {
	// Command constructor, replaceable for testing
	newCommand func(ctx context.Context, name string, arg ...string) *exec.Cmd

	maxOutput int64
	log       *zap.Logger
}

// NewInvoker creates an invoker using the real compiler binary.
func NewInvoker(log *zap.Logger) *Invoker {
	if log == nil {
		log = zap.NewNop()
	}

	return &Invoker{
		newCommand: exec.CommandContext,
		maxOutput:  MaxOutputBytes,
		log:        log,
	}
}

// Compile invokes the profile's compiler binary exactly once for the
// given files, requesting the combined machine-readable format, and
// returns the normalized per-contract units.
//
// Cancelling ctx terminates the child process. On nonzero exit the raw
// toolchain diagnostics are preserved verbatim in the returned error.
func (i *Invoker) Compile(ctx context.Context, profile *Profile, files []string) ([]*CompiledUnit, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to compile")
	}

	args, err := BuildCommandArgs(profile.Version, profile.Settings)
	if err != nil {
		return nil, err
	}

	args = append(args, "-f", "combined_json")
	args = append(args, files...)

	stdout := newLimitedBuffer(i.maxOutput)
	stderr := newLimitedBuffer(i.maxOutput)

	cmd := i.newCommand(ctx, profile.Binary(), args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	i.log.Debug("invoking compiler",
		zap.String("binary", profile.Binary()),
		zap.String("version", profile.Version.String()),
		zap.Strings("args", args),
		zap.Int("files", len(files)),
	)

	runErr := cmd.Run()

	if stdout.Exceeded() || stderr.Exceeded() {
		return nil, &OutputLimitError{Limit: i.maxOutput}
	}

	if runErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return nil, &CompileError{
				Version:  profile.Version.String(),
				ExitCode: exitErr.ExitCode(),
				Output:   stderr.String() + stdout.String(),
			}
		}

		return nil, fmt.Errorf("failed to run %s: %w", profile.Binary(), runErr)
	}

	units, err := ParseCombinedJSON(stdout.Bytes())
	if err != nil {
		return nil, &CompileError{
			Version:  profile.Version.String(),
			ExitCode: 0,
			Output:   fmt.Sprintf("%v\n%s", err, stderr.String()),
		}
	}

	return units, nil
}
