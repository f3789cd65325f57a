package findergo

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/findergo/blobstore"
	"github.com/hupe1980/findergo/codec"
	"github.com/hupe1980/findergo/generation"
	"github.com/hupe1980/findergo/manifest"
	"github.com/hupe1980/findergo/metastore"
	"github.com/hupe1980/findergo/model"
	"github.com/hupe1980/findergo/query"
	"github.com/hupe1980/findergo/segment"
	"github.com/hupe1980/findergo/textindex"
	"github.com/hupe1980/findergo/wal"
)

// keepSegments is how many superseded segment blobs a commit retains before
// pruning, mirroring the manifest history depth.
const keepSegments = 2

// stagedUpsert is one pending add-or-update awaiting the next commit.
// Re-staging the same identity overwrites it: last write wins.
type stagedUpsert struct {
	meta    model.FileMeta
	content string
}

// Index is an embeddable filesystem search index.
//
// It is single-writer, multi-reader: AddOrUpdate and Commit serialize on an
// internal writer lock while Search runs lock-free against the current
// immutable generation. Staged upserts become visible to Search only after
// Commit publishes the next generation.
type Index struct {
	codec       codec.Codec
	compression segment.Compressor
	logger      *Logger

	blobs    blobstore.BlobStore
	manifest *manifest.Store
	wal      *wal.WAL

	// writer serializes staging and commits.
	writer  sync.Mutex
	staging map[model.FileID]stagedUpsert

	// current is the generation queries read. Swapped atomically at commit.
	current atomic.Pointer[generation.Generation]

	reclaim *reclaimer

	// lifecycle guards Close against in-flight operations: operations hold
	// the read side, Close takes the write side and drains them.
	lifecycle sync.RWMutex
	closed    bool
}

// Open opens or creates an index rooted at dir.
//
// Segments and manifests live in a local blob store under dir unless
// WithBlobStore overrides it. Staged upserts that were logged but not yet
// committed when the process died are replayed and committed before Open
// returns, so an opened index always reflects every acknowledged upsert.
func Open(dir string, optFns ...Option) (*Index, error) {
	opts := options{
		codec:       codec.Default,
		compression: segment.Default,
		logger:      NoopLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	blobs := opts.blobs
	if blobs == nil {
		var err error
		blobs, err = blobstore.NewLocalStore(filepath.Join(dir, "store"))
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
	}

	var manifestOpts []func(*manifest.Options)
	manifestOpts = append(manifestOpts, func(o *manifest.Options) { o.Codec = opts.codec })
	if opts.pointer != nil {
		manifestOpts = append(manifestOpts, func(o *manifest.Options) { o.Pointer = opts.pointer })
	}

	idx := &Index{
		codec:       opts.codec,
		compression: opts.compression,
		logger:      opts.logger,
		blobs:       blobs,
		manifest:    manifest.NewStore(blobs, manifestOpts...),
		staging:     make(map[model.FileID]stagedUpsert),
		reclaim:     newReclaimer(opts.logger),
	}

	ctx := context.Background()
	var m *manifest.Manifest

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		m, err = idx.manifest.Load(gctx)
		return err
	})
	if !opts.walDisabled {
		g.Go(func() error {
			walOpts := append([]func(*wal.Options){func(o *wal.Options) {
				o.Path = filepath.Join(dir, "wal")
				o.Codec = opts.codec
			}}, opts.walOptions...)
			w, err := wal.Open(walOpts...)
			if err != nil {
				return fmt.Errorf("open wal: %w", err)
			}
			idx.wal = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if idx.wal != nil {
			_ = idx.wal.Close()
		}
		return nil, translateError(err)
	}

	if idx.wal != nil {
		// The log file is truncated at every checkpoint, so its scanned
		// counter restarts; numbering must continue above the manifest's
		// high-water mark or later entries would be skipped on recovery.
		idx.wal.Seed(m.WALSeq)
	}

	meta, text, err := idx.loadSegment(ctx, m)
	if err != nil {
		if idx.wal != nil {
			_ = idx.wal.Close()
		}
		return nil, translateError(err)
	}
	idx.current.Store(generation.New(m.Seq, meta, text))

	if err := idx.recover(ctx, m.WALSeq); err != nil {
		if idx.wal != nil {
			_ = idx.wal.Close()
		}
		return nil, translateError(err)
	}

	idx.logger.Info("index opened",
		"generation", idx.current.Load().Seq(),
		"files", meta.Len(),
		"terms", text.Terms(),
	)
	return idx, nil
}

// loadSegment decodes the manifest's segment blob, or returns empty stores
// for a fresh index.
func (i *Index) loadSegment(ctx context.Context, m *manifest.Manifest) (*metastore.Store, *textindex.Index, error) {
	if m.Segment == "" {
		return metastore.New(), textindex.New(), nil
	}

	blob, err := i.blobs.Open(ctx, m.Segment)
	if err != nil {
		return nil, nil, fmt.Errorf("open segment %s: %w", m.Segment, err)
	}
	defer blob.Close()

	data, err := blobstore.ReadAll(ctx, blob)
	if err != nil {
		return nil, nil, fmt.Errorf("read segment %s: %w", m.Segment, err)
	}

	snap, err := segment.Decode(data)
	if err != nil {
		return nil, nil, err
	}
	if snap.Seq != m.Seq {
		return nil, nil, fmt.Errorf("%w: segment seq %d does not match manifest seq %d", segment.ErrCorrupt, snap.Seq, m.Seq)
	}
	return snap.Meta, snap.Text, nil
}

// recover replays WAL entries newer than the manifest's checkpoint into the
// staging buffer and commits them, so acknowledged-but-uncommitted upserts
// survive a crash.
func (i *Index) recover(ctx context.Context, committedSeq uint64) error {
	if i.wal == nil {
		return nil
	}

	replayed := 0
	err := i.wal.Replay(func(e wal.Entry) error {
		if e.Seq <= committedSeq {
			return nil
		}
		i.staging[e.Meta.ID] = stagedUpsert{meta: e.Meta, content: e.Content}
		replayed++
		return nil
	})
	if err != nil {
		return fmt.Errorf("wal replay: %w", err)
	}
	if replayed == 0 {
		// Nothing newer than the checkpoint; drop any already-committed tail.
		return i.wal.Checkpoint()
	}

	i.logger.Info("recovering staged upserts from wal", "entries", replayed)
	if _, err := i.commitLocked(ctx); err != nil {
		return fmt.Errorf("recovery commit: %w", err)
	}
	return nil
}

// AddOrUpdate stages a file record and its content for the next commit.
//
// The identity key is meta.ID: re-adding a known identity supersedes the
// previous record even when the path changed (a rename). When the committed
// record already matches the incoming path, mtime and size and nothing is
// staged for the identity, the call is a no-op and returns UpdateSkipped.
// Empty content clears the file's postings at the next commit while keeping
// the metadata searchable by name.
//
// Acknowledged upserts are durable: the entry is logged to the WAL before
// the call returns.
func (i *Index) AddOrUpdate(ctx context.Context, meta model.FileMeta, content string) (model.UpdateResult, error) {
	i.lifecycle.RLock()
	defer i.lifecycle.RUnlock()
	if i.closed {
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := meta.Validate(); err != nil {
		return 0, &ErrInvalidMeta{Path: meta.Path, cause: err}
	}

	i.writer.Lock()
	defer i.writer.Unlock()

	committed, _, known := i.current.Load().Meta().Get(meta.ID)
	_, staged := i.staging[meta.ID]

	if !staged && known && sameVersion(committed, meta) {
		return model.UpdateSkipped, nil
	}

	if i.wal != nil {
		if _, err := i.wal.Append(meta, content); err != nil {
			return 0, fmt.Errorf("wal append: %w", err)
		}
	}
	i.staging[meta.ID] = stagedUpsert{meta: meta, content: content}

	result := model.UpdateAdded
	if known {
		result = model.UpdateChanged
	}
	i.logger.Debug("staged upsert",
		"file_id", meta.ID.String(),
		"path", meta.Path,
		"result", result.String(),
	)
	return result, nil
}

// ShouldReindex reports whether the index's view of the file is stale: the
// identity is unknown, or its recorded path, mtime or size differ from meta.
// Hosts use it to skip re-reading unchanged files during a scan.
func (i *Index) ShouldReindex(meta model.FileMeta) (bool, error) {
	i.lifecycle.RLock()
	defer i.lifecycle.RUnlock()
	if i.closed {
		return false, ErrClosed
	}

	i.writer.Lock()
	defer i.writer.Unlock()

	if st, ok := i.staging[meta.ID]; ok {
		return !sameVersion(st.meta, meta), nil
	}
	committed, _, ok := i.current.Load().Meta().Get(meta.ID)
	if !ok {
		return true, nil
	}
	return !sameVersion(committed, meta), nil
}

func sameVersion(a, b model.FileMeta) bool {
	return a.Path == b.Path && a.MTime == b.MTime && a.Size == b.Size
}

// Commit folds all staged upserts into the next generation, makes it durable
// and atomically publishes it to readers. It returns the published sequence
// number.
//
// Commit is all-or-nothing: on any failure the previous generation stays
// current and the staged upserts stay staged, so a later Commit retries them.
// A commit with nothing staged is a no-op returning the current sequence.
func (i *Index) Commit(ctx context.Context) (uint64, error) {
	i.lifecycle.RLock()
	defer i.lifecycle.RUnlock()
	if i.closed {
		return 0, ErrClosed
	}

	i.writer.Lock()
	defer i.writer.Unlock()

	seq, err := i.commitLocked(ctx)
	return seq, translateError(err)
}

// commitLocked requires i.writer to be held.
func (i *Index) commitLocked(ctx context.Context) (uint64, error) {
	cur := i.current.Load()
	if len(i.staging) == 0 {
		return cur.Seq(), nil
	}
	start := time.Now()

	meta := cur.Meta().Clone()
	text := cur.Text().Clone()
	for _, st := range i.staging {
		ord, _ := meta.Upsert(st.meta)
		text.Update(ord, st.content)
	}

	seq := cur.Seq() + 1
	data, err := segment.Encode(seq, meta, text, i.codec, i.compression)
	if err != nil {
		return 0, err
	}

	name := segment.BlobName(seq)
	if err := i.blobs.Put(ctx, name, data); err != nil {
		return 0, fmt.Errorf("write segment: %w", err)
	}

	var walSeq uint64
	if i.wal != nil {
		walSeq = i.wal.Seq()
	}
	if err := i.manifest.Publish(ctx, &manifest.Manifest{
		Seq:     seq,
		Segment: name,
		WALSeq:  walSeq,
	}); err != nil {
		return 0, err
	}

	// Publication succeeded; everything below is cleanup and must not fail
	// the commit.
	next := generation.New(seq, meta, text)
	i.current.Store(next)
	i.reclaim.Retire(cur)

	staged := len(i.staging)
	i.staging = make(map[model.FileID]stagedUpsert)

	if i.wal != nil {
		if err := i.wal.Checkpoint(); err != nil {
			i.logger.Warn("wal checkpoint failed, entries will replay on next open", "error", err)
		}
	}
	i.pruneSegments(ctx, name)

	i.logger.Info("generation committed",
		"generation", seq,
		"upserts", staged,
		"files", meta.Len(),
		"segment_bytes", len(data),
		"duration", time.Since(start),
	)
	return seq, nil
}

// pruneSegments removes superseded segment blobs, keeping the current one
// and a short history. Best-effort; stale segments are harmless.
func (i *Index) pruneSegments(ctx context.Context, current string) {
	names, err := i.blobs.List(ctx, "segments/")
	if err != nil {
		return
	}
	if len(names) <= keepSegments+1 {
		return
	}
	for _, name := range names[:len(names)-(keepSegments+1)] {
		if name == current {
			continue
		}
		_ = i.blobs.Delete(ctx, name)
	}
}

// Search runs a ranked query against the current generation.
//
// Search never blocks writers and never observes staged-but-uncommitted
// upserts. The generation is pinned for the duration of the call, so a
// concurrent commit cannot reclaim state under it; returned hits are owned
// copies and outlive the generation.
func (i *Index) Search(ctx context.Context, q model.SearchQuery) ([]model.Hit, error) {
	i.lifecycle.RLock()
	defer i.lifecycle.RUnlock()
	if i.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var gen *generation.Generation
	for {
		gen = i.current.Load()
		if gen == nil {
			return nil, ErrClosed
		}
		if gen.Acquire() {
			break
		}
		// Lost a race with a commit reclaiming this generation; reload.
	}
	defer gen.Release()

	return query.Evaluate(gen, q, i.logger.Logger), nil
}

// Generation returns the sequence number of the currently published
// generation. Sequence 0 means nothing has been committed yet.
func (i *Index) Generation() uint64 {
	if g := i.current.Load(); g != nil {
		return g.Seq()
	}
	return 0
}

// Len returns the number of files in the currently published generation.
// Staged upserts are not counted until committed.
func (i *Index) Len() int {
	if g := i.current.Load(); g != nil {
		return g.Meta().Len()
	}
	return 0
}

// Close releases the index. In-flight operations drain first; every call
// after Close returns ErrClosed. Staged-but-uncommitted upserts stay in the
// WAL and are recovered by the next Open.
func (i *Index) Close() error {
	i.lifecycle.Lock()
	defer i.lifecycle.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true

	if g := i.current.Swap(nil); g != nil {
		g.Retire()
	}

	var firstErr error
	if i.wal != nil {
		if err := i.wal.Close(); err != nil {
			firstErr = err
		}
	}
	i.logger.Info("index closed")
	return firstErr
}
