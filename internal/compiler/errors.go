package compiler

import (
	"fmt"
)

// NoMatchingVersionError is returned when a file's version pragma is
// satisfied by none of the configured compilers.
type NoMatchingVersionError struct {
	Path       string
	Constraint string
}

func (e *NoMatchingVersionError) Error() string {
	return fmt.Sprintf(
		"the version pragma in %s (%q) doesn't match any configured compiler",
		e.Path, e.Constraint,
	)
}

// UnsupportedVersionError is returned when a file declares a compiler
// version older than anything this toolchain family ever shipped.
type UnsupportedVersionError struct {
	Version string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported compiler version: %s", e.Version)
}

// TestDirectiveError is returned when a source file contains the legacy
// conditional-compilation test directive, which this toolchain does not
// understand. Detected before any compiler process is spawned.
type TestDirectiveError struct {
	Path string
}

func (e *TestDirectiveError) Error() string {
	return fmt.Sprintf("test directive found in %s: this directive is not supported", e.Path)
}

// SettingsError is returned when an abstract settings value cannot be
// expressed in the flag dialect of the resolved compiler version.
type SettingsError struct {
	Msg string
}

func (e *SettingsError) Error() string {
	return e.Msg
}

// CompileError is returned when the external compiler exits nonzero or
// produces output this tool cannot parse. Output carries the raw
// toolchain diagnostics verbatim so callers can match on them.
type CompileError struct {
	Version  string
	ExitCode int
	Output   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("vyper %s compilation failed (exit code %d):\n%s", e.Version, e.ExitCode, e.Output)
}

// OutputLimitError is returned when a compiler process produces more
// output than the configured ceiling. Truncating silently would corrupt
// the combined payload, so overflow is always surfaced.
type OutputLimitError struct {
	Limit int64
}

func (e *OutputLimitError) Error() string {
	return fmt.Sprintf("compiler output exceeded the %d byte limit", e.Limit)
}
