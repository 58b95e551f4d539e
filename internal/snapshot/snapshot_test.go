package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"treediff/internal/config"
	"treediff/internal/object"
	"treediff/internal/walker"
)

func setupManager(t *testing.T) (*object.Store, *Manager) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	require.NoError(t, err)

	store, err := object.New(db, t.TempDir(), config.Default(), zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() { store.Close() })
	return store, NewManager(store, zap.NewNop())
}

func writeFile(t *testing.T, dir, name, content string, mode os.FileMode) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
}

func TestTake(t *testing.T) {
	store, manager := setupManager(t)

	dir := t.TempDir()
	writeFile(t, dir, "README.md", "# hello\n", 0644)
	writeFile(t, dir, "bin/run.sh", "#!/bin/sh\n", 0755)
	writeFile(t, dir, "src/main.go", "package main\n", 0644)
	writeFile(t, dir, ".git/HEAD", "ref: refs/heads/main\n", 0644)

	snap, err := manager.Take(dir, "v1")
	require.NoError(t, err)
	require.NotEmpty(t, snap.ID)
	require.NotEmpty(t, snap.Root)

	tree, err := store.ResolveTree(snap.Root)
	require.NoError(t, err)

	t.Run("CapturesFiles", func(t *testing.T) {
		entry, err := tree.EntryAt("src/main.go")
		require.NoError(t, err)
		require.NotNil(t, entry)

		content, err := entry.Content()
		require.NoError(t, err)
		assert.Equal(t, []byte("package main\n"), content)
		assert.Equal(t, uint32(0o100644), entry.ContentMode())
	})

	t.Run("ExecutableMode", func(t *testing.T) {
		entry, err := tree.EntryAt("bin/run.sh")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, uint32(0o100755), entry.ContentMode())
	})

	t.Run("IgnoresStoreDirs", func(t *testing.T) {
		entry, err := tree.EntryAt(".git/HEAD")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("Listed", func(t *testing.T) {
		snaps, err := manager.List()
		require.NoError(t, err)
		require.Len(t, snaps, 1)
		assert.Equal(t, snap.ID, snaps[0].ID)
		assert.Equal(t, "v1", snaps[0].Label)
	})
}

func TestResolve(t *testing.T) {
	_, manager := setupManager(t)

	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "a\n", 0644)

	snap, err := manager.Take(dir, "first")
	require.NoError(t, err)

	t.Run("EmptySentinel", func(t *testing.T) {
		ref, err := manager.Resolve("empty")
		require.NoError(t, err)
		assert.Equal(t, object.EmptyTreeRef(), ref)
	})

	t.Run("ByLabel", func(t *testing.T) {
		ref, err := manager.Resolve("first")
		require.NoError(t, err)
		assert.Equal(t, snap.Root, ref)
	})

	t.Run("ByIDPrefix", func(t *testing.T) {
		ref, err := manager.Resolve(snap.ID[:8])
		require.NoError(t, err)
		assert.Equal(t, snap.Root, ref)
	})

	t.Run("RawRefPassthrough", func(t *testing.T) {
		ref, err := manager.Resolve("cafe0000")
		require.NoError(t, err)
		assert.Equal(t, object.TreeRef("cafe0000"), ref)
	})
}

func TestSnapshotDiffRoundTrip(t *testing.T) {
	store, manager := setupManager(t)

	dir := t.TempDir()
	writeFile(t, dir, "page-1.md", "# This is the first page", 0644)

	before, err := manager.Take(dir, "before")
	require.NoError(t, err)

	writeFile(t, dir, "page-2.md", "# Second page", 0644)

	after, err := manager.Take(dir, "after")
	require.NoError(t, err)

	records, err := walker.New(store, zap.NewNop()).Walk(context.Background(), before.Root, after.Root)
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.True(t, records[0].NewFile)
	assert.Equal(t, "page-2.md", records[0].Path())
	assert.Contains(t, records[0].Diff, "+# Second page")
}
