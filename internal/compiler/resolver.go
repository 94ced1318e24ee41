package compiler

import (
	"fmt"

	goversion "github.com/hashicorp/go-version"
)

// Resolver selects the configured compiler profile for each source
// file based on its version pragma.
type Resolver struct {
	profiles []*Profile

	// Optional tie-break version for files with no pragma when more
	// than one profile is configured. nil means highest wins.
	defaultVersion *goversion.Version
}

// NewResolver creates a resolver over the configured profiles.
func NewResolver(profiles []*Profile, defaultVersion *goversion.Version) (*Resolver, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no compiler profiles configured")
	}

	if defaultVersion != nil && findProfile(profiles, defaultVersion) == nil {
		return nil, fmt.Errorf("default_version %s does not match any configured compiler", defaultVersion)
	}

	return &Resolver{
		profiles:       profiles,
		defaultVersion: defaultVersion,
	}, nil
}

// Resolve returns the unique profile for a source file. Selection is
// deterministic given the same pragma and profile list.
func (r *Resolver) Resolve(file *SourceFile) (*Profile, error) {
	if file.Pragma == "" {
		return r.resolveUnpinned()
	}

	if exact := exactVersion(file.Pragma); exact != nil && exact.LessThan(lowestSupported) {
		return nil, &UnsupportedVersionError{Version: file.Pragma}
	}

	constraint, err := ParseConstraint(file.Pragma)
	if err != nil {
		return nil, fmt.Errorf("invalid version pragma in %s (%q): %w", file.Path, file.Pragma, err)
	}

	// Highest satisfying version wins so a widened pragma never flips
	// a file to an older compiler.
	var best *Profile
	for _, p := range r.profiles {
		if !constraint.Check(p.Version) {
			continue
		}

		if best == nil || p.Version.GreaterThan(best.Version) {
			best = p
		}
	}

	if best == nil {
		return nil, &NoMatchingVersionError{Path: file.Path, Constraint: file.Pragma}
	}

	return best, nil
}

// resolveUnpinned handles files with no declared constraint. With a
// single profile the choice is forced; with several, default_version
// decides if set, otherwise the highest configured version.
func (r *Resolver) resolveUnpinned() (*Profile, error) {
	if len(r.profiles) == 1 {
		return r.profiles[0], nil
	}

	if r.defaultVersion != nil {
		return findProfile(r.profiles, r.defaultVersion), nil
	}

	best := r.profiles[0]
	for _, p := range r.profiles[1:] {
		if p.Version.GreaterThan(best.Version) {
			best = p
		}
	}

	return best, nil
}

func findProfile(profiles []*Profile, v *goversion.Version) *Profile {
	for _, p := range profiles {
		if p.Version.Equal(v) {
			return p
		}
	}

	return nil
}
