package compiler

import (
	"testing"

	goversion "github.com/hashicorp/go-version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustProfile(t *testing.T, v string) *Profile {
	t.Helper()
	return &Profile{Version: goversion.Must(goversion.NewVersion(v))}
}

func TestResolver_Resolve(t *testing.T) {
	p39 := mustProfile(t, "0.3.9")
	p310 := mustProfile(t, "0.3.10")
	p216 := mustProfile(t, "0.2.16")

	tests := []struct {
		name     string
		profiles []*Profile
		pragma   string
		expected *Profile
	}{
		{
			name:     "no pragma, single profile",
			profiles: []*Profile{p39},
			pragma:   "",
			expected: p39,
		},
		{
			name:     "no pragma, multiple profiles picks highest",
			profiles: []*Profile{p216, p310, p39},
			pragma:   "",
			expected: p310,
		},
		{
			name:     "exact pin",
			profiles: []*Profile{p39, p310},
			pragma:   "0.3.9",
			expected: p39,
		},
		{
			name:     "caret range picks highest satisfying",
			profiles: []*Profile{p216, p39, p310},
			pragma:   "^0.3.1",
			expected: p310,
		},
		{
			name:     "explicit range",
			profiles: []*Profile{p216, p39, p310},
			pragma:   ">=0.2.0 <0.3.0",
			expected: p216,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResolver(tt.profiles, nil)
			require.NoError(t, err)

			profile, err := r.Resolve(&SourceFile{Path: "/project/c.vy", Pragma: tt.pragma})
			require.NoError(t, err)
			assert.Same(t, tt.expected, profile)
		})
	}
}

func TestResolver_DefaultVersion(t *testing.T) {
	p39 := mustProfile(t, "0.3.9")
	p310 := mustProfile(t, "0.3.10")

	r, err := NewResolver([]*Profile{p39, p310}, p39.Version)
	require.NoError(t, err)

	profile, err := r.Resolve(&SourceFile{Path: "/project/c.vy"})
	require.NoError(t, err)
	assert.Same(t, p39, profile)
}

func TestResolver_DefaultVersionNotConfigured(t *testing.T) {
	p39 := mustProfile(t, "0.3.9")

	_, err := NewResolver([]*Profile{p39}, goversion.Must(goversion.NewVersion("0.3.10")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_version")
}

func TestResolver_NoMatchingCompiler(t *testing.T) {
	r, err := NewResolver([]*Profile{mustProfile(t, "0.3.10")}, nil)
	require.NoError(t, err)

	_, err = r.Resolve(&SourceFile{Path: "/project/c.vy", Pragma: ">=0.5.0"})
	require.Error(t, err)

	var noMatch *NoMatchingVersionError
	require.ErrorAs(t, err, &noMatch)
	assert.Equal(t, "/project/c.vy", noMatch.Path)
	assert.Equal(t, ">=0.5.0", noMatch.Constraint)
	assert.Contains(t, err.Error(), "doesn't match any configured compiler")
}

func TestResolver_UnsupportedVersion(t *testing.T) {
	r, err := NewResolver([]*Profile{mustProfile(t, "0.3.10")}, nil)
	require.NoError(t, err)

	_, err = r.Resolve(&SourceFile{Path: "/project/c.vy", Pragma: "0.1.0-beta.15"})
	require.Error(t, err)

	var unsupported *UnsupportedVersionError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "0.1.0-beta.15", unsupported.Version)
}

func TestResolver_InvalidPragma(t *testing.T) {
	r, err := NewResolver([]*Profile{mustProfile(t, "0.3.10")}, nil)
	require.NoError(t, err)

	_, err = r.Resolve(&SourceFile{Path: "/project/c.vy", Pragma: "^garbage"})
	assert.Error(t, err)
}

func TestNewResolver_NoProfiles(t *testing.T) {
	_, err := NewResolver(nil, nil)
	assert.Error(t, err)
}
