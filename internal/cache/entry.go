package cache

import "time"

// Entry records the last successful compile of one source file. An
// entry is only trusted when its settings hash and version match the
// file's currently resolved profile.
type Entry struct {
	// Absolute path to the source file, also the index key
	SourcePath string `json:"source_path"`

	// SHA256 of the file content at the last successful compile
	ContentHash string `json:"content_hash"`

	// Fingerprint of the normalized profile settings
	SettingsHash string `json:"settings_hash"`

	// Compiler version the file was built with
	Version string `json:"version"`

	// Timestamp when this entry was recorded
	Timestamp time.Time `json:"timestamp"`

	// Success indicates the build completed cleanly
	Success bool `json:"success"`
}
