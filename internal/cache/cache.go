// Package cache decides, per source file, whether a compile is
// necessary, and keeps the compiled units of up-to-date files so a
// cache hit never re-invokes the toolchain.
//
// Two stores live under the cache directory:
//
//  1. index.json — a flat, human-inspectable staleness record keyed by
//     source path (content hash, settings hash, compiler version),
//     replaced atomically after a pass. Safe to delete; read failures
//     degrade to "everything stale".
//  2. units.db — a BoltDB store of normalized compiled units keyed by
//     (path, settings hash, version), so unchanged files return
//     byte-identical artifacts without a compiler process.
//
// Successes recorded during a pass are staged in memory and persisted
// only by Commit, after every group of the pass has succeeded. A
// cache.lock file serializes passes over the same cache directory.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.etcd.io/bbolt"

	"github.com/Norgate-AV/vyc/internal/compiler"
)

const (
	// DefaultCacheDir is the default cache directory name
	DefaultCacheDir = ".vyc-cache"

	// bucketName is the BoltDB bucket holding compiled units
	bucketName = "units"

	lockFile = "cache.lock"
	dbFile   = "units.db"
)

// staged is one success waiting for Commit.
type staged struct {
	file    *compiler.SourceFile
	profile *compiler.Profile
	units   []*compiler.CompiledUnit
}

// Cache manages the staleness index and the compiled-unit store.
type Cache struct {
	root  string
	db    *bbolt.DB
	lock  *flock.Flock
	index *index

	pending []staged
}

// New opens (creating if necessary) the cache under cacheDir. If
// cacheDir is empty, DefaultCacheDir in the working directory is used.
func New(cacheDir string) (*Cache, error) {
	if cacheDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}

		cacheDir = filepath.Join(cwd, DefaultCacheDir)
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bbolt.Open(filepath.Join(cacheDir, dbFile), 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	return &Cache{
		root:  cacheDir,
		db:    db,
		lock:  flock.New(filepath.Join(cacheDir, lockFile)),
		index: loadIndex(cacheDir),
	}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}

	return nil
}

// LockPass takes the pass-level lock, blocking until it is acquired or
// ctx is cancelled. Concurrent passes over the same cache directory
// must not interleave writes.
func (c *Cache) LockPass(ctx context.Context) error {
	ok, err := c.lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire cache lock: %w", err)
	}

	if !ok {
		return fmt.Errorf("cache is locked by another build")
	}

	return nil
}

// UnlockPass releases the pass-level lock.
func (c *Cache) UnlockPass() error {
	return c.lock.Unlock()
}

// IsStale reports whether the file must be recompiled under its
// resolved profile. A cache miss is never an error.
func (c *Cache) IsStale(file *compiler.SourceFile, profile *compiler.Profile) bool {
	return c.index.isStale(file, profile)
}

// Units returns the stored compiled units for an up-to-date
// (file, profile) pair. A miss returns ok=false and the caller treats
// the file as stale.
func (c *Cache) Units(file *compiler.SourceFile, profile *compiler.Profile) ([]*compiler.CompiledUnit, bool) {
	var units []*compiler.CompiledUnit

	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		data := b.Get(unitKey(file.Path, profile))
		if data == nil {
			return nil // miss
		}

		return json.Unmarshal(data, &units)
	})
	if err != nil || units == nil {
		return nil, false
	}

	return units, true
}

// RecordSuccess stages a successful compile of a file. Nothing is
// persisted until Commit, so a failed pass never updates the cache.
func (c *Cache) RecordSuccess(file *compiler.SourceFile, profile *compiler.Profile, units []*compiler.CompiledUnit) {
	c.pending = append(c.pending, staged{file: file, profile: profile, units: units})
}

// Commit persists all staged successes: units first, then the index
// via atomic replace. A crash between the two leaves the old index in
// place and the affected files simply recompile next pass.
func (c *Cache) Commit() error {
	if len(c.pending) == 0 {
		return nil
	}

	err := c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		for _, s := range c.pending {
			data, err := json.Marshal(s.units)
			if err != nil {
				return err
			}

			if err := b.Put(unitKey(s.file.Path, s.profile), data); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store compiled units: %w", err)
	}

	for _, s := range c.pending {
		c.index.recordSuccess(s.file, s.profile)
	}

	if err := c.index.save(); err != nil {
		return fmt.Errorf("failed to save cache index: %w", err)
	}

	c.pending = nil
	return nil
}

// Clear removes all cache entries and stored units.
func (c *Cache) Clear() error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}

		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
	if err != nil {
		return err
	}

	c.index.entries = make(map[string]Entry)
	c.pending = nil

	if err := os.Remove(c.index.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache index: %w", err)
	}

	return nil
}

// Stats returns the number of indexed files and the size of the unit
// store on disk.
func (c *Cache) Stats() (int, int64, error) {
	var size int64

	info, err := os.Stat(filepath.Join(c.root, dbFile))
	if err != nil {
		return 0, 0, err
	}

	size = info.Size()
	return len(c.index.entries), size, nil
}
