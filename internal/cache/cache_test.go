package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	goversion "github.com/hashicorp/go-version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/vyc/internal/compiler"
)

func testProfile(t *testing.T, v string, settings compiler.Settings) *compiler.Profile {
	t.Helper()

	return &compiler.Profile{
		Version:  goversion.Must(goversion.NewVersion(v)),
		Settings: settings,
	}
}

func testSource(path, content string) *compiler.SourceFile {
	return &compiler.SourceFile{
		Path: path,
		Hash: hashString(content),
	}
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestHashSettings(t *testing.T) {
	a := HashSettings(compiler.Settings{EVMVersion: "istanbul", Optimize: true})
	b := HashSettings(compiler.Settings{Optimize: true, EVMVersion: "istanbul"})
	c := HashSettings(compiler.Settings{EVMVersion: "istanbul", Optimize: false})

	assert.Equal(t, a, b, "semantically identical settings must hash identically")
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestCache_StaleAndCommit(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	profile := testProfile(t, "0.3.10", compiler.Settings{Optimize: "gas"})
	src := testSource("/project/token.vy", "contract v1")

	// Unknown file is stale, and a miss is not an error
	assert.True(t, c.IsStale(src, profile))

	units := []*compiler.CompiledUnit{{
		ContractName: "token",
		SourcePath:   src.Path,
		Bytecode:     "0x6001",
	}}

	c.RecordSuccess(src, profile, units)

	// Nothing visible until Commit
	assert.True(t, c.IsStale(src, profile))

	require.NoError(t, c.Commit())
	assert.False(t, c.IsStale(src, profile))

	got, ok := c.Units(src, profile)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "0x6001", got[0].Bytecode)
}

func TestCache_ContentChangeIsStale(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	profile := testProfile(t, "0.3.10", compiler.Settings{})
	src := testSource("/project/token.vy", "contract v1")

	c.RecordSuccess(src, profile, nil)
	require.NoError(t, c.Commit())
	require.False(t, c.IsStale(src, profile))

	changed := testSource("/project/token.vy", "contract v2")
	assert.True(t, c.IsStale(changed, profile))
}

func TestCache_ProfileChangeIsStale(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	src := testSource("/project/token.vy", "contract v1")
	profile := testProfile(t, "0.3.10", compiler.Settings{Optimize: "gas"})

	c.RecordSuccess(src, profile, nil)
	require.NoError(t, c.Commit())
	require.False(t, c.IsStale(src, profile))

	// Same content, different settings: must recompile
	otherSettings := testProfile(t, "0.3.10", compiler.Settings{Optimize: "codesize"})
	assert.True(t, c.IsStale(src, otherSettings))

	// Same content and settings, different version: must recompile
	otherVersion := testProfile(t, "0.4.0", compiler.Settings{Optimize: "gas"})
	assert.True(t, c.IsStale(src, otherVersion))
}

func TestCache_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	c1, err := New(dir)
	require.NoError(t, err)

	profile := testProfile(t, "0.3.10", compiler.Settings{})
	src := testSource("/project/token.vy", "contract v1")

	c1.RecordSuccess(src, profile, []*compiler.CompiledUnit{{ContractName: "token", SourcePath: src.Path}})
	require.NoError(t, c1.Commit())
	require.NoError(t, c1.Close())

	c2, err := New(dir)
	require.NoError(t, err)
	defer c2.Close()

	assert.False(t, c2.IsStale(src, profile))

	units, ok := c2.Units(src, profile)
	require.True(t, ok)
	assert.Equal(t, "token", units[0].ContractName)
}

func TestCache_CorruptIndexDegradesToStale(t *testing.T) {
	dir := t.TempDir()

	c1, err := New(dir)
	require.NoError(t, err)

	profile := testProfile(t, "0.3.10", compiler.Settings{})
	src := testSource("/project/token.vy", "contract v1")

	c1.RecordSuccess(src, profile, nil)
	require.NoError(t, c1.Commit())
	require.NoError(t, c1.Close())

	err = os.WriteFile(filepath.Join(dir, indexFile), []byte("{not json"), 0o644)
	require.NoError(t, err)

	c2, err := New(dir)
	require.NoError(t, err)
	defer c2.Close()

	assert.True(t, c2.IsStale(src, profile), "corrupt index must degrade to everything stale")
}

func TestCache_DeletedIndexIsSafe(t *testing.T) {
	dir := t.TempDir()

	c1, err := New(dir)
	require.NoError(t, err)

	profile := testProfile(t, "0.3.10", compiler.Settings{})
	src := testSource("/project/token.vy", "contract v1")

	c1.RecordSuccess(src, profile, nil)
	require.NoError(t, c1.Commit())
	require.NoError(t, c1.Close())

	require.NoError(t, os.Remove(filepath.Join(dir, indexFile)))

	c2, err := New(dir)
	require.NoError(t, err)
	defer c2.Close()

	assert.True(t, c2.IsStale(src, profile))
}

func TestCache_UnitsMissForDifferentProfile(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	profile := testProfile(t, "0.3.10", compiler.Settings{Optimize: "gas"})
	src := testSource("/project/token.vy", "contract v1")

	c.RecordSuccess(src, profile, []*compiler.CompiledUnit{{ContractName: "token"}})
	require.NoError(t, c.Commit())

	other := testProfile(t, "0.3.9", compiler.Settings{Optimize: "gas"})
	_, ok := c.Units(src, other)
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	profile := testProfile(t, "0.3.10", compiler.Settings{})
	src := testSource("/project/token.vy", "contract v1")

	c.RecordSuccess(src, profile, []*compiler.CompiledUnit{{ContractName: "token"}})
	require.NoError(t, c.Commit())

	require.NoError(t, c.Clear())

	assert.True(t, c.IsStale(src, profile))
	_, ok := c.Units(src, profile)
	assert.False(t, ok)

	count, _, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCache_Stats(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	profile := testProfile(t, "0.3.10", compiler.Settings{})

	c.RecordSuccess(testSource("/project/a.vy", "a"), profile, nil)
	c.RecordSuccess(testSource("/project/b.vy", "b"), profile, nil)
	require.NoError(t, c.Commit())

	count, size, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Positive(t, size)
}

func TestCache_LockPass(t *testing.T) {
	dir := t.TempDir()

	c1, err := New(dir)
	require.NoError(t, err)
	defer c1.Close()

	require.NoError(t, c1.LockPass(context.Background()))

	c2, err := New(dir)
	require.NoError(t, err)
	defer c2.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err = c2.LockPass(ctx)
	assert.Error(t, err, "second pass must not acquire the lock while the first holds it")

	require.NoError(t, c1.UnlockPass())
	require.NoError(t, c2.LockPass(context.Background()))
	require.NoError(t, c2.UnlockPass())
}

func TestCache_DefaultDir(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tempDir := t.TempDir()
	require.NoError(t, os.Chdir(tempDir))
	defer os.Chdir(cwd)

	c, err := New("")
	require.NoError(t, err)
	defer c.Close()

	_, statErr := os.Stat(filepath.Join(tempDir, DefaultCacheDir))
	assert.NoError(t, statErr)
}
