package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// Version pragma forms accepted by the toolchain:
//
//	# pragma version ^0.3.7
//	#pragma version 0.3.10
//	# @version >=0.3.7 <0.4.0
var pragmaPattern = regexp.MustCompile(`(?m)^\s*#\s*(?:pragma\s+version|@version)\s+(\S[^\n]*)`)

// Legacy conditional-compilation directive from older tooling. The
// compiler treats it as a comment and silently builds the wrong
// bytecode, so it is rejected up front.
var testDirectivePattern = regexp.MustCompile(`#@\s*if\s+mode\s*==\s*["']test["']\s*:`)

// Versions below this line predate the flag dialects handled here and
// cannot be driven by this tool at all.
var lowestSupported = goversion.Must(goversion.NewVersion("0.1.0-beta.16"))

// SourceFile is one source file read for a build pass. Immutable once
// read; a pass never re-reads content.
type SourceFile struct {
	// Absolute path
	Path string

	// Raw content bytes
	Content []byte

	// SHA256 content fingerprint (hex)
	Hash string

	// Declared version constraint text, "" if the file has no pragma
	Pragma string
}

// ReadSource reads and fingerprints a source file, extracts its version
// pragma and rejects files carrying the legacy test directive.
func ReadSource(path string) (*SourceFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", path, err)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}

	if testDirectivePattern.Match(content) {
		return nil, &TestDirectiveError{Path: abs}
	}

	sum := sha256.Sum256(content)

	return &SourceFile{
		Path:    abs,
		Content: content,
		Hash:    hex.EncodeToString(sum[:]),
		Pragma:  ExtractPragma(content),
	}, nil
}

// ExtractPragma returns the version constraint text declared by the
// first version pragma in src, or "" if there is none.
func ExtractPragma(src []byte) string {
	m := pragmaPattern.FindSubmatch(src)
	if m == nil {
		return ""
	}

	return strings.TrimSpace(string(m[1]))
}

// ParseConstraint parses a pragma constraint into go-version
// constraints. Caret and tilde forms are rewritten into range
// constraints first, since the constraint parser only understands
// comparison operators.
func ParseConstraint(text string) (goversion.Constraints, error) {
	parts := splitConstraint(text)

	rewritten := make([]string, 0, len(parts))
	for _, part := range parts {
		r, err := rewriteConstraintPart(part)
		if err != nil {
			return nil, err
		}

		rewritten = append(rewritten, r)
	}

	return goversion.NewConstraint(strings.Join(rewritten, ","))
}

// splitConstraint splits a pragma constraint into individual terms.
// Both comma and whitespace separation appear in the wild.
func splitConstraint(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

func rewriteConstraintPart(part string) (string, error) {
	switch {
	case strings.HasPrefix(part, "^"):
		return caretRange(strings.TrimPrefix(part, "^"))
	case strings.HasPrefix(part, "~="):
		// PEP 440 compatible-release form, same meaning as tilde
		return "~>" + strings.TrimPrefix(part, "~="), nil
	case strings.HasPrefix(part, "~"):
		return "~>" + strings.TrimPrefix(part, "~"), nil
	default:
		return part, nil
	}
}

// caretRange expands ^X.Y.Z into ">=X.Y.Z, <upper" where the upper
// bound bumps the leftmost nonzero segment.
func caretRange(base string) (string, error) {
	v, err := goversion.NewVersion(base)
	if err != nil {
		return "", fmt.Errorf("invalid version in pragma: %w", err)
	}

	segs := v.Segments()
	for len(segs) < 3 {
		segs = append(segs, 0)
	}

	var upper string
	switch {
	case segs[0] > 0:
		upper = fmt.Sprintf("%d.0.0", segs[0]+1)
	case segs[1] > 0:
		upper = fmt.Sprintf("0.%d.0", segs[1]+1)
	default:
		upper = fmt.Sprintf("0.0.%d", segs[2]+1)
	}

	return fmt.Sprintf(">=%s, <%s", base, upper), nil
}

// exactVersion returns the version if the constraint pins a single
// exact version ("0.2.4" or "=0.2.4"), nil otherwise.
func exactVersion(text string) *goversion.Version {
	parts := splitConstraint(text)
	if len(parts) != 1 {
		return nil
	}

	s := strings.TrimPrefix(parts[0], "=")
	if strings.ContainsAny(s, "<>^~*") {
		return nil
	}

	v, err := goversion.NewVersion(s)
	if err != nil {
		return nil
	}

	return v
}
