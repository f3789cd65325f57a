// Package generation models the immutable, atomically-published snapshots
// that queries read.
//
// A Generation pairs one metadata store state with one content index state
// under a monotonically increasing sequence number. Once published it never
// changes; a commit builds the next generation via copy-on-write and swaps
// an atomic pointer. Readers pin a generation with Acquire/Release so that a
// commit never reclaims state under an in-flight query.
package generation

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/findergo/metastore"
	"github.com/hupe1980/findergo/textindex"
)

// Generation is one immutable snapshot of the index.
type Generation struct {
	seq       uint64
	createdAt int64 // unix seconds at publication; anchors recency scoring
	meta      *metastore.Store
	text      *textindex.Index

	// refs counts the publisher's owner reference plus one per in-flight
	// reader. Retire drops the owner reference; the generation is
	// reclaimable once refs reaches zero.
	refs atomic.Int64
}

// New creates a generation holding the given stores. The caller owns one
// reference and releases it via Retire.
func New(seq uint64, meta *metastore.Store, text *textindex.Index) *Generation {
	g := &Generation{
		seq:       seq,
		createdAt: time.Now().Unix(),
		meta:      meta,
		text:      text,
	}
	g.refs.Store(1)
	return g
}

// Seq returns the generation's sequence number.
func (g *Generation) Seq() uint64 { return g.seq }

// CreatedAt returns the publication time in unix seconds. It is fixed for
// the generation's lifetime so that scoring stays deterministic per
// (generation, query) pair.
func (g *Generation) CreatedAt() int64 { return g.createdAt }

// Meta returns the metadata store. Read-only.
func (g *Generation) Meta() *metastore.Store { return g.meta }

// Text returns the content index. Read-only.
func (g *Generation) Text() *textindex.Index { return g.text }

// Acquire pins the generation for a reader. It fails only when the
// generation has already been fully released, which a reader resolves by
// reloading the current pointer and retrying.
func (g *Generation) Acquire() bool {
	for {
		n := g.refs.Load()
		if n <= 0 {
			return false
		}
		if g.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release unpins the generation.
func (g *Generation) Release() {
	g.refs.Add(-1)
}

// Retire drops the publisher's owner reference. Called when a newer
// generation replaces this one.
func (g *Generation) Retire() {
	g.refs.Add(-1)
}

// Reclaimable reports whether no readers or owner hold the generation.
func (g *Generation) Reclaimable() bool {
	return g.refs.Load() <= 0
}
