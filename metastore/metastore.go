// Package metastore holds the per-file metadata records of one generation.
//
// Records are keyed by model.FileID and carry a dense document ordinal that
// the content index and query engine share. Like textindex, a Store is
// mutated only by the committing writer on a private Clone; published
// instances are immutable. Clones share the record entries, the live-ordinal
// bitmap and the path table with their parent until first mutation.
package metastore

import (
	"maps"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/findergo/model"
)

type record struct {
	meta model.FileMeta
	ord  uint32
}

type pathEntry struct {
	path string
	ord  uint32
}

// Store is the metadata store of one generation.
type Store struct {
	byID  map[model.FileID]*record
	byOrd map[uint32]*record
	live  *roaring.Bitmap // ordinals of live records
	paths []pathEntry     // sorted by path, one entry per live record

	nextOrd uint32

	liveOwned  bool
	pathsOwned bool
}

// New creates an empty store.
func New() *Store {
	return &Store{
		byID:       make(map[model.FileID]*record),
		byOrd:      make(map[uint32]*record),
		live:       roaring.New(),
		liveOwned:  true,
		pathsOwned: true,
	}
}

// Clone returns a mutable copy sharing unchanged state with the receiver.
func (s *Store) Clone() *Store {
	return &Store{
		byID:    maps.Clone(s.byID),
		byOrd:   maps.Clone(s.byOrd),
		live:    s.live,
		paths:   s.paths,
		nextOrd: s.nextOrd,
	}
}

// Upsert inserts or replaces the record for meta's identity and returns the
// document ordinal plus the superseded record, if any.
//
// An incoming record whose identity matches an existing record but whose
// path differs is a rename: the ordinal is kept and the old path entry is
// removed, never left behind as a stale duplicate.
func (s *Store) Upsert(meta model.FileMeta) (uint32, *model.FileMeta) {
	if old, ok := s.byID[meta.ID]; ok {
		prev := old.meta
		rec := &record{meta: meta, ord: old.ord}
		s.byID[meta.ID] = rec
		s.byOrd[old.ord] = rec
		if prev.Path != meta.Path {
			s.removePath(prev.Path)
			s.insertPath(meta.Path, old.ord)
		}
		return old.ord, &prev
	}

	ord := s.nextOrd
	s.nextOrd++
	rec := &record{meta: meta, ord: ord}
	s.byID[meta.ID] = rec
	s.byOrd[ord] = rec
	s.writableLive().Add(ord)
	s.insertPath(meta.Path, ord)
	return ord, nil
}

// Remove deletes the record for id. The public boundary exposes no delete
// operation; this is the internal removal path for hosts that rebuild.
func (s *Store) Remove(id model.FileID) (uint32, bool) {
	rec, ok := s.byID[id]
	if !ok {
		return 0, false
	}
	delete(s.byID, id)
	delete(s.byOrd, rec.ord)
	s.writableLive().Remove(rec.ord)
	s.removePath(rec.meta.Path)
	return rec.ord, true
}

// Get returns the record and ordinal for id.
func (s *Store) Get(id model.FileID) (model.FileMeta, uint32, bool) {
	rec, ok := s.byID[id]
	if !ok {
		return model.FileMeta{}, 0, false
	}
	return rec.meta, rec.ord, true
}

// ByOrdinal returns the record with the given document ordinal.
func (s *Store) ByOrdinal(ord uint32) (model.FileMeta, bool) {
	rec, ok := s.byOrd[ord]
	if !ok {
		return model.FileMeta{}, false
	}
	return rec.meta, true
}

// Ordinals returns the bitmap of live document ordinals. The bitmap is
// shared store state and must not be mutated by the caller.
func (s *Store) Ordinals() *roaring.Bitmap {
	return s.live
}

// PrefixOrdinals returns the ordinals of records whose path starts with
// prefix. The returned bitmap is owned by the caller.
func (s *Store) PrefixOrdinals(prefix string) *roaring.Bitmap {
	out := roaring.New()
	if prefix == "" {
		return s.live.Clone()
	}
	lo := sort.Search(len(s.paths), func(i int) bool { return s.paths[i].path >= prefix })
	for i := lo; i < len(s.paths) && strings.HasPrefix(s.paths[i].path, prefix); i++ {
		out.Add(s.paths[i].ord)
	}
	return out
}

// Len returns the number of live records.
func (s *Store) Len() int {
	return len(s.byID)
}

func (s *Store) writableLive() *roaring.Bitmap {
	if !s.liveOwned {
		s.live = s.live.Clone()
		s.liveOwned = true
	}
	return s.live
}

func (s *Store) writablePaths() {
	if s.pathsOwned {
		return
	}
	dup := make([]pathEntry, len(s.paths))
	copy(dup, s.paths)
	s.paths = dup
	s.pathsOwned = true
}

func (s *Store) insertPath(path string, ord uint32) {
	s.writablePaths()
	i := sort.Search(len(s.paths), func(i int) bool { return s.paths[i].path >= path })
	s.paths = append(s.paths, pathEntry{})
	copy(s.paths[i+1:], s.paths[i:])
	s.paths[i] = pathEntry{path: path, ord: ord}
}

func (s *Store) removePath(path string) {
	s.writablePaths()
	i := sort.Search(len(s.paths), func(i int) bool { return s.paths[i].path >= path })
	if i < len(s.paths) && s.paths[i].path == path {
		s.paths = append(s.paths[:i], s.paths[i+1:]...)
	}
}
