package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/Norgate-AV/vyc/internal/compiler"
)

// indexFile is the flat, human-inspectable staleness record, one entry
// per source path. Deleting it forces a full recompile and is always
// safe.
const indexFile = "index.json"

// index is the in-memory staleness map for a cache directory.
type index struct {
	path    string
	entries map[string]Entry
}

// loadIndex reads the persisted index. Read failures are soft: a
// missing or corrupt file degrades to an empty index (everything
// stale), never to a build-blocking error.
func loadIndex(cacheDir string) *index {
	ix := &index{
		path:    filepath.Join(cacheDir, indexFile),
		entries: make(map[string]Entry),
	}

	data, err := os.ReadFile(ix.path)
	if err != nil {
		return ix
	}

	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return ix
	}

	ix.entries = entries
	return ix
}

// isStale reports whether a file needs recompiling under its resolved
// profile. Any mismatch in content, settings or version is stale;
// profile changes force a recompile even for unchanged content.
func (ix *index) isStale(file *compiler.SourceFile, profile *compiler.Profile) bool {
	entry, ok := ix.entries[file.Path]
	if !ok || !entry.Success {
		return true
	}

	return entry.ContentHash != file.Hash ||
		entry.SettingsHash != HashSettings(profile.Settings) ||
		entry.Version != profile.Version.String()
}

// recordSuccess updates the entry for a file after a successful
// compile. In-memory only until save.
func (ix *index) recordSuccess(file *compiler.SourceFile, profile *compiler.Profile) {
	ix.entries[file.Path] = Entry{
		SourcePath:   file.Path,
		ContentHash:  file.Hash,
		SettingsHash: HashSettings(profile.Settings),
		Version:      profile.Version.String(),
		Timestamp:    time.Now(),
		Success:      true,
	}
}

// save persists the index atomically: write to a temp file in the same
// directory, then rename over the target. A crash mid-write leaves the
// previous index intact.
func (ix *index) save() error {
	data, err := json.MarshalIndent(ix.entries, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(ix.path), indexFile+".tmp-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), ix.path)
}
