package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/findergo/metastore"
	"github.com/hupe1980/findergo/model"
	"github.com/hupe1980/findergo/textindex"
)

func buildStores(t *testing.T) (*metastore.Store, *textindex.Index) {
	t.Helper()

	meta := metastore.New()
	text := textindex.New()

	m1 := model.FileMeta{ID: model.FileID{Dev: 1, Inode: 1}, Path: "/docs/todo.txt", MTime: 1700000000, Size: 20}
	require.NoError(t, m1.Validate())
	ord1, _ := meta.Upsert(m1)
	text.Update(ord1, "buy milk call dentist")

	m2 := model.FileMeta{ID: model.FileID{Dev: 1, Inode: 2}, Path: "/docs/notes.md", MTime: 1700000100, Size: 30}
	require.NoError(t, m2.Validate())
	ord2, _ := meta.Upsert(m2)
	text.Update(ord2, "milk recipes")

	return meta, text
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, comp := range []Compressor{Zstd{}, LZ4{}, None{}} {
		t.Run(comp.Name(), func(t *testing.T) {
			meta, text := buildStores(t)

			data, err := Encode(5, meta, text, nil, comp)
			require.NoError(t, err)

			snap, err := Decode(data)
			require.NoError(t, err)

			assert.Equal(t, uint64(5), snap.Seq)
			assert.Equal(t, 2, snap.Meta.Len())
			assert.Equal(t, 2, snap.Text.Docs())

			got, _, ok := snap.Meta.Get(model.FileID{Dev: 1, Inode: 1})
			require.True(t, ok)
			assert.Equal(t, "/docs/todo.txt", got.Path)

			milk := snap.Text.Lookup("milk")
			require.NotNil(t, milk)
			assert.Equal(t, uint64(2), milk.GetCardinality())
		})
	}
}

func TestDecodeRejectsCorruption(t *testing.T) {
	meta, text := buildStores(t)
	data, err := Encode(1, meta, text, nil, nil)
	require.NoError(t, err)

	t.Run("short header", func(t *testing.T) {
		_, err := Decode(data[:10])
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[0] = 'X'
		_, err := Decode(bad)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("flipped payload bit", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[len(bad)-1] ^= 0xff
		_, err := Decode(bad)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("truncated section", func(t *testing.T) {
		_, err := Decode(data[:len(data)-4])
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestBlobName(t *testing.T) {
	assert.Equal(t, "segments/SEG-000007", BlobName(7))
}
