package object

import (
	"bytes"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"treediff/internal/config"
	apperrors "treediff/internal/errors"
)

func setupStore(t *testing.T) *Store {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	require.NoError(t, err)

	store, err := New(db, t.TempDir(), config.Default(), zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() { store.Close() })
	return store
}

func TestBlobStore(t *testing.T) {
	store := setupStore(t)

	t.Run("RoundTrip", func(t *testing.T) {
		id, err := store.Blobs().Put([]byte("hello world\n"))
		require.NoError(t, err)
		require.NotEmpty(t, id)

		content, err := store.Blobs().Get(id)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello world\n"), content)
	})

	t.Run("Deduplicates", func(t *testing.T) {
		first, err := store.Blobs().Put([]byte("same bytes"))
		require.NoError(t, err)
		second, err := store.Blobs().Put([]byte("same bytes"))
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("EmptyContent", func(t *testing.T) {
		id, err := store.Blobs().Put(nil)
		require.NoError(t, err)

		content, err := store.Blobs().Get(id)
		require.NoError(t, err)
		assert.Empty(t, content)
	})

	t.Run("LargeContentSurvivesCompression", func(t *testing.T) {
		// Well above the compression threshold and highly compressible.
		large := bytes.Repeat([]byte("all work and no play makes a dull repo\n"), 500)

		id, err := store.Blobs().Put(large)
		require.NoError(t, err)

		content, err := store.Blobs().Get(id)
		require.NoError(t, err)
		assert.Equal(t, large, content)
	})

	t.Run("MissingBlob", func(t *testing.T) {
		_, err := store.Blobs().Get("deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("Exists", func(t *testing.T) {
		id, err := store.Blobs().Put([]byte("present"))
		require.NoError(t, err)

		ok, err := store.Blobs().Exists(id)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Blobs().Exists("nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestTreeStore(t *testing.T) {
	store := setupStore(t)

	readmeID, err := store.Blobs().Put([]byte("# readme\n"))
	require.NoError(t, err)
	mainID, err := store.Blobs().Put([]byte("package main\n"))
	require.NoError(t, err)

	t.Run("PutAndResolve", func(t *testing.T) {
		subRef, err := store.PutTree([]TreeEntry{
			{Name: "main.go", Kind: KindBlob, Mode: 0o100644, ID: mainID},
		})
		require.NoError(t, err)

		rootRef, err := store.PutTree([]TreeEntry{
			{Name: "src", Kind: KindTree, Mode: 0o040000, ID: string(subRef)},
			{Name: "README.md", Kind: KindBlob, Mode: 0o100644, ID: readmeID},
		})
		require.NoError(t, err)

		tree, err := store.ResolveTree(rootRef)
		require.NoError(t, err)

		children, err := tree.Children(".")
		require.NoError(t, err)
		require.Len(t, children, 2)
		// Lexicographic regardless of insertion order.
		assert.Equal(t, "README.md", children[0].Name)
		assert.Equal(t, KindBlob, children[0].Kind)
		assert.Equal(t, "src", children[1].Name)
		assert.Equal(t, KindTree, children[1].Kind)

		entry, err := tree.EntryAt("src/main.go")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, mainID, entry.ContentID())
		assert.Equal(t, uint32(0o100644), entry.ContentMode())

		content, err := entry.Content()
		require.NoError(t, err)
		assert.Equal(t, []byte("package main\n"), content)
	})

	t.Run("AbsentPaths", func(t *testing.T) {
		ref, err := store.PutTree([]TreeEntry{
			{Name: "README.md", Kind: KindBlob, Mode: 0o100644, ID: readmeID},
		})
		require.NoError(t, err)

		tree, err := store.ResolveTree(ref)
		require.NoError(t, err)

		entry, err := tree.EntryAt("missing.txt")
		require.NoError(t, err)
		assert.Nil(t, entry)

		entry, err = tree.EntryAt(".")
		require.NoError(t, err)
		assert.Nil(t, entry)

		children, err := tree.Children("no/such/dir")
		require.NoError(t, err)
		assert.Empty(t, children)
	})

	t.Run("DeterministicRef", func(t *testing.T) {
		a, err := store.PutTree([]TreeEntry{
			{Name: "README.md", Kind: KindBlob, Mode: 0o100644, ID: readmeID},
			{Name: "main.go", Kind: KindBlob, Mode: 0o100644, ID: mainID},
		})
		require.NoError(t, err)

		b, err := store.PutTree([]TreeEntry{
			{Name: "main.go", Kind: KindBlob, Mode: 0o100644, ID: mainID},
			{Name: "README.md", Kind: KindBlob, Mode: 0o100644, ID: readmeID},
		})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("EmptySentinel", func(t *testing.T) {
		ref, err := store.PutTree(nil)
		require.NoError(t, err)
		assert.Equal(t, EmptyTreeRef(), ref)

		// Resolves even on a store that never saw it.
		tree, err := store.ResolveTree(EmptyTreeRef())
		require.NoError(t, err)

		children, err := tree.Children(".")
		require.NoError(t, err)
		assert.Empty(t, children)
	})

	t.Run("UnknownRef", func(t *testing.T) {
		_, err := store.ResolveTree("0000000000000000000000000000000000000000000000000000000000000000")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("RejectsBadEntries", func(t *testing.T) {
		_, err := store.PutTree([]TreeEntry{
			{Name: "a/b", Kind: KindBlob, ID: readmeID},
		})
		assert.Error(t, err)

		_, err = store.PutTree([]TreeEntry{
			{Name: "x", Kind: KindBlob, ID: readmeID},
			{Name: "x", Kind: KindBlob, ID: mainID},
		})
		assert.Error(t, err)

		_, err = store.PutTree([]TreeEntry{
			{Name: "x", Kind: "commit", ID: readmeID},
		})
		assert.Error(t, err)
	})
}
