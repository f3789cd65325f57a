package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("put and open", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "dir/blob-a", []byte("alpha")))

		blob, err := store.Open(ctx, "dir/blob-a")
		require.NoError(t, err)
		defer blob.Close()

		assert.Equal(t, int64(5), blob.Size())
		data, err := ReadAll(ctx, blob)
		require.NoError(t, err)
		assert.Equal(t, []byte("alpha"), data)
	})

	t.Run("put overwrites", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "dir/blob-a", []byte("beta")))

		blob, err := store.Open(ctx, "dir/blob-a")
		require.NoError(t, err)
		defer blob.Close()

		data, err := ReadAll(ctx, blob)
		require.NoError(t, err)
		assert.Equal(t, []byte("beta"), data)
	})

	t.Run("open missing", func(t *testing.T) {
		_, err := store.Open(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("read at offset", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "dir/blob-b", []byte("0123456789")))

		blob, err := store.Open(ctx, "dir/blob-b")
		require.NoError(t, err)
		defer blob.Close()

		p := make([]byte, 4)
		n, err := blob.ReadAt(ctx, p, 3)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.Equal(t, []byte("3456"), p)
	})

	t.Run("list by prefix", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "other/blob-c", []byte("x")))

		names, err := store.List(ctx, "dir/")
		require.NoError(t, err)
		assert.Equal(t, []string{"dir/blob-a", "dir/blob-b"}, names)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "dir/blob-a"))
		_, err := store.Open(ctx, "dir/blob-a")
		assert.ErrorIs(t, err, ErrNotFound)

		// Deleting a missing blob is not an error.
		assert.NoError(t, store.Delete(ctx, "dir/blob-a"))
	})
}

func TestLocalStore(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	testStore(t, store)
}

func TestLocalStoreMappable(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "blob", []byte("mapped")))
	blob, err := store.Open(ctx, "blob")
	require.NoError(t, err)
	defer blob.Close()

	m, ok := blob.(Mappable)
	require.True(t, ok)
	data, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("mapped"), data)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesOnPut(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte("original")
	require.NoError(t, store.Put(ctx, "blob", data))
	data[0] = 'X'

	blob, err := store.Open(ctx, "blob")
	require.NoError(t, err)
	defer blob.Close()

	got, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)
}

func TestFaultyStore(t *testing.T) {
	ctx := context.Background()
	faulty := NewFaultyStore(NewMemoryStore())

	// Disarmed by default.
	require.NoError(t, faulty.Put(ctx, "a", []byte("1")))

	faulty.FailPutsAfter(1, "segments/", nil)
	require.NoError(t, faulty.Put(ctx, "segments/one", []byte("1")))
	assert.ErrorIs(t, faulty.Put(ctx, "segments/two", []byte("2")), ErrInjected)

	// Non-matching prefixes pass through while armed.
	require.NoError(t, faulty.Put(ctx, "manifests/x", []byte("3")))

	faulty.Disarm()
	assert.NoError(t, faulty.Put(ctx, "segments/three", []byte("3")))
}
