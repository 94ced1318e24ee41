package compiler

import (
	"fmt"
	"sort"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// Settings holds the abstract compiler settings for a profile. They are
// translated into the exact flag dialect for the resolved version by
// BuildCommandArgs.
type Settings struct {
	// Target EVM version (e.g. "istanbul", "shanghai")
	EVMVersion string

	// Optimizer control. Either a bool (pre-0.3.10 dialect) or a named
	// mode string such as "gas", "codesize" or "none" (0.3.10+ dialect).
	// nil means unset.
	Optimize any
}

// Canonical returns a stable, order-independent textual form of the
// settings, used for fingerprinting. Semantically identical settings
// always canonicalize identically, and the optimize shape (bool vs
// named mode) is part of the form so a dialect change invalidates
// cache entries.
func (s Settings) Canonical() string {
	parts := make([]string, 0, 2)

	if s.EVMVersion != "" {
		parts = append(parts, "evm_version="+s.EVMVersion)
	}

	switch v := s.Optimize.(type) {
	case nil:
	case bool:
		parts = append(parts, fmt.Sprintf("optimize=bool:%t", v))
	case string:
		parts = append(parts, "optimize=mode:"+v)
	default:
		parts = append(parts, fmt.Sprintf("optimize=invalid:%v", v))
	}

	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// Profile is one configured compiler installation: a specific toolchain
// version, the binary to invoke, and the settings to apply.
type Profile struct {
	// Toolchain version of this installation
	Version *goversion.Version

	// Path to the compiler binary. Empty means "vyper" from PATH.
	Path string

	// Abstract settings applied to every file compiled with this profile
	Settings Settings
}

// Binary returns the executable to invoke for this profile.
func (p *Profile) Binary() string {
	if p.Path != "" {
		return p.Path
	}

	return DefaultBinary
}

// Key identifies the (version, settings) pair of a profile. Files
// sharing a key are compiled in the same invocation and their cache
// entries are validated against it.
func (p *Profile) Key() string {
	return p.Version.String() + "|" + p.Settings.Canonical()
}

// DefaultBinary is the compiler executable used when a profile has no
// explicit path configured.
const DefaultBinary = "vyper"
