package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/Norgate-AV/vyc/internal/compiler"
)

// HashSettings fingerprints a profile's settings. The canonical form is
// order-independent, so semantically identical settings from different
// call sites hash identically.
func HashSettings(s compiler.Settings) string {
	sum := sha256.Sum256([]byte(s.Canonical()))
	return hex.EncodeToString(sum[:])
}

// unitKey is the compiled-unit store key for a (file, profile) pair. A
// profile change produces a different key, so stale units are never
// returned for a reconfigured file.
func unitKey(sourcePath string, p *compiler.Profile) []byte {
	return []byte(sourcePath + "|" + HashSettings(p.Settings) + "|" + p.Version.String())
}
