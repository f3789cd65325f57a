package manifest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/findergo/blobstore"
)

func TestLoadEmpty(t *testing.T) {
	s := NewStore(blobstore.NewMemoryStore())

	m, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), m.Seq)
	assert.Empty(t, m.Segment)
}

func TestPublishLoad(t *testing.T) {
	ctx := context.Background()
	s := NewStore(blobstore.NewMemoryStore())

	require.NoError(t, s.Publish(ctx, &Manifest{
		Seq:     1,
		Segment: "segments/SEG-000001",
		WALSeq:  3,
	}))

	m, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.Seq)
	assert.Equal(t, "segments/SEG-000001", m.Segment)
	assert.Equal(t, uint64(3), m.WALSeq)
	assert.Equal(t, CurrentVersion, m.Version)
}

func TestPublishSupersedes(t *testing.T) {
	ctx := context.Background()
	s := NewStore(blobstore.NewMemoryStore())

	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, s.Publish(ctx, &Manifest{
			Seq:     seq,
			Segment: fmt.Sprintf("segments/SEG-%06d", seq),
		}))
	}

	m, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), m.Seq)
}

func TestPublishPrunesHistory(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	s := NewStore(blobs)

	for seq := uint64(1); seq <= 6; seq++ {
		require.NoError(t, s.Publish(ctx, &Manifest{Seq: seq}))
	}

	names, err := blobs.List(ctx, manifestPrefix)
	require.NoError(t, err)
	assert.Len(t, names, keepManifests+1)
	assert.Contains(t, names, "MANIFEST-000006")

	// The current manifest still loads after pruning.
	m, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), m.Seq)
}

func TestPointerMoveIsLast(t *testing.T) {
	ctx := context.Background()
	inner := blobstore.NewMemoryStore()
	faulty := blobstore.NewFaultyStore(inner)
	s := NewStore(faulty, func(o *Options) {
		// The pointer writes through the faulty store too.
		o.Pointer = NewBlobPointer(faulty)
	})

	require.NoError(t, s.Publish(ctx, &Manifest{Seq: 1, Segment: "segments/SEG-000001"}))

	// Manifest blob write succeeds, pointer move fails: the previous
	// manifest must stay current.
	faulty.FailPutsAfter(1, "", nil)
	err := s.Publish(ctx, &Manifest{Seq: 2, Segment: "segments/SEG-000002"})
	require.ErrorIs(t, err, blobstore.ErrInjected)

	faulty.Disarm()
	m, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.Seq)
}
