// Package manifest tracks which generation segment is current.
//
// Each commit writes a new numbered manifest blob and then moves a single
// pointer (the CURRENT blob, or a DynamoDB item for remote stores) to it.
// The pointer move is the publication point: a crash before it leaves the
// previous manifest current, a crash after it leaves the new one current,
// and nothing in between is observable.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/findergo/blobstore"
	"github.com/hupe1980/findergo/codec"
)

const (
	// CurrentName is the blob holding the name of the current manifest.
	CurrentName = "CURRENT"
	// CurrentVersion is the manifest format version written by this package.
	CurrentVersion = 1

	manifestPrefix = "MANIFEST-"
	// keepManifests is how many superseded manifests Publish retains for
	// inspection before pruning.
	keepManifests = 2
)

// Manifest describes one committed generation.
type Manifest struct {
	Version int    `json:"version"`
	Seq     uint64 `json:"seq"`
	Segment string `json:"segment"`
	Codec   string `json:"codec"`
	WALSeq  uint64 `json:"wal_seq"`
}

// Pointer resolves and publishes the name of the current manifest blob.
// Store must be atomic with respect to Load.
type Pointer interface {
	// Load returns the current manifest blob name, or blobstore.ErrNotFound
	// when nothing has been published yet.
	Load(ctx context.Context) (string, error)
	// Store publishes name as the current manifest blob name.
	Store(ctx context.Context, name string) error
}

// BlobPointer keeps the pointer in a CURRENT blob within the store itself.
// This is the default for local and MinIO stores, whose Put is atomic.
type BlobPointer struct {
	blobs blobstore.BlobStore
}

// NewBlobPointer creates a pointer stored as a blob named CURRENT.
func NewBlobPointer(blobs blobstore.BlobStore) *BlobPointer {
	return &BlobPointer{blobs: blobs}
}

// Load returns the current manifest blob name.
func (p *BlobPointer) Load(ctx context.Context) (string, error) {
	blob, err := p.blobs.Open(ctx, CurrentName)
	if err != nil {
		return "", err
	}
	defer blob.Close()

	data, err := blobstore.ReadAll(ctx, blob)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Store publishes name as the current manifest blob name.
func (p *BlobPointer) Store(ctx context.Context, name string) error {
	return p.blobs.Put(ctx, CurrentName, []byte(name+"\n"))
}

// Store manages manifest blobs and their publication pointer.
type Store struct {
	mu    sync.Mutex
	blobs blobstore.BlobStore
	ptr   Pointer
	codec codec.Codec
}

// Options configures a manifest store.
type Options struct {
	// Pointer overrides the publication pointer. Defaults to a BlobPointer
	// in the same blob store.
	Pointer Pointer
	// Codec encodes manifest blobs. Defaults to codec.Default.
	Codec codec.Codec
}

// NewStore creates a manifest store on top of blobs.
func NewStore(blobs blobstore.BlobStore, optFns ...func(*Options)) *Store {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Pointer == nil {
		opts.Pointer = NewBlobPointer(blobs)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	return &Store{blobs: blobs, ptr: opts.Pointer, codec: opts.Codec}
}

// Load returns the current manifest. A store that has never published
// returns an empty manifest with Seq 0 and no segment.
func (s *Store) Load(ctx context.Context) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.ptr.Load(ctx)
	if errors.Is(err, blobstore.ErrNotFound) {
		return &Manifest{Version: CurrentVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("manifest: load pointer: %w", err)
	}

	blob, err := s.blobs.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", name, err)
	}
	defer blob.Close()

	data, err := blobstore.ReadAll(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", name, err)
	}

	var m Manifest
	if err := s.codec.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: decode %s: %w", name, err)
	}
	if m.Version > CurrentVersion {
		return nil, fmt.Errorf("manifest: unsupported version %d", m.Version)
	}
	return &m, nil
}

// Publish writes m as a new numbered manifest blob and moves the pointer to
// it. The pointer move is the last step; any earlier failure leaves the
// previous manifest current.
func (s *Store) Publish(ctx context.Context, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Version = CurrentVersion
	if m.Codec == "" {
		m.Codec = s.codec.Name()
	}

	data, err := s.codec.Marshal(m)
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}

	name := fmt.Sprintf("%s%06d", manifestPrefix, m.Seq)
	if err := s.blobs.Put(ctx, name, data); err != nil {
		return fmt.Errorf("manifest: write %s: %w", name, err)
	}
	if err := s.ptr.Store(ctx, name); err != nil {
		return fmt.Errorf("manifest: publish %s: %w", name, err)
	}

	s.prune(ctx, name)
	return nil
}

// prune removes superseded manifest blobs, keeping the current one and a
// short history. Failures are ignored; stale manifests are harmless.
func (s *Store) prune(ctx context.Context, current string) {
	names, err := s.blobs.List(ctx, manifestPrefix)
	if err != nil {
		return
	}
	if len(names) <= keepManifests+1 {
		return
	}
	for _, name := range names[:len(names)-(keepManifests+1)] {
		if name == current {
			continue
		}
		_ = s.blobs.Delete(ctx, name)
	}
}
