package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/findergo/metastore"
	"github.com/hupe1980/findergo/textindex"
)

func TestAcquireRelease(t *testing.T) {
	g := New(1, metastore.New(), textindex.New())

	require.True(t, g.Acquire())
	assert.False(t, g.Reclaimable())
	g.Release()

	// The owner reference still pins it.
	assert.False(t, g.Reclaimable())

	g.Retire()
	assert.True(t, g.Reclaimable())
}

func TestAcquireFailsAfterFullRelease(t *testing.T) {
	g := New(1, metastore.New(), textindex.New())
	g.Retire()

	// A fully released generation can never be pinned again; readers reload
	// the current pointer instead.
	assert.False(t, g.Acquire())
}

func TestReaderDefersReclamation(t *testing.T) {
	g := New(3, metastore.New(), textindex.New())

	require.True(t, g.Acquire())
	g.Retire()

	// Retired, but a reader is still in flight.
	assert.False(t, g.Reclaimable())

	g.Release()
	assert.True(t, g.Reclaimable())
}

func TestAccessors(t *testing.T) {
	meta := metastore.New()
	text := textindex.New()
	g := New(7, meta, text)

	assert.Equal(t, uint64(7), g.Seq())
	assert.Same(t, meta, g.Meta())
	assert.Same(t, text, g.Text())
	assert.Greater(t, g.CreatedAt(), int64(0))
}
