// Command capi exports the index behind the C ABI declared in finder_core.h.
//
// Build it as a shared library:
//
//	go build -buildmode=c-shared -o libfinder_core.so ./capi
//
// The ABI manages a single process-global index. Errors never cross the
// boundary as values: mutating calls return false and log to stderr, and
// fc_search degrades to an empty result set.
package main

/*
#include <stdlib.h>
#include "finder_core.h"
*/
import "C"

import (
	"context"
	"sync"
	"unsafe"

	"github.com/hupe1980/findergo"
	"github.com/hupe1980/findergo/model"
)

var (
	mu     sync.Mutex
	idx    *findergo.Index
	idxDir string

	logger = findergo.NewLogger(nil)
)

func instance() *findergo.Index {
	mu.Lock()
	defer mu.Unlock()
	return idx
}

//export fc_init_index
func fc_init_index(indexDir *C.char) C.bool {
	if indexDir == nil {
		logger.Error("fc_init_index called with null path")
		return false
	}

	dir := C.GoString(indexDir)

	mu.Lock()
	defer mu.Unlock()
	if idx != nil {
		if dir != idxDir {
			logger.Warn("fc_init_index ignored, index already open at a different path",
				"open_dir", idxDir,
				"requested_dir", dir,
			)
		}
		return true
	}

	i, err := findergo.Open(dir, findergo.WithLogger(logger))
	if err != nil {
		logger.Error("fc_init_index failed", "error", err)
		return false
	}
	idx = i
	idxDir = dir
	return true
}

//export fc_close_index
func fc_close_index() {
	mu.Lock()
	defer mu.Unlock()
	if idx == nil {
		return
	}
	if err := idx.Close(); err != nil {
		logger.Error("fc_close_index failed", "error", err)
	}
	idx = nil
	idxDir = ""
}

//export fc_add_or_update
func fc_add_or_update(meta *C.FCFileMeta, content *C.char) C.bool {
	i := instance()
	if i == nil {
		logger.Error("fc_add_or_update called before fc_init_index")
		return false
	}
	m, ok := fileMetaFromC(meta)
	if !ok {
		logger.Error("fc_add_or_update received invalid meta")
		return false
	}

	var text string
	if content != nil {
		text = C.GoString(content)
	}

	if _, err := i.AddOrUpdate(context.Background(), m, text); err != nil {
		logger.Error("fc_add_or_update failed", "path", m.Path, "error", err)
		return false
	}
	return true
}

//export fc_should_reindex
func fc_should_reindex(meta *C.FCFileMeta) C.bool {
	i := instance()
	if i == nil {
		return true // unknown state, let the host re-read
	}
	m, ok := fileMetaFromC(meta)
	if !ok {
		logger.Error("fc_should_reindex received invalid meta")
		return true
	}
	stale, err := i.ShouldReindex(m)
	if err != nil {
		return true
	}
	return C.bool(stale)
}

//export fc_commit_and_refresh
func fc_commit_and_refresh() C.bool {
	i := instance()
	if i == nil {
		logger.Error("fc_commit_and_refresh called before fc_init_index")
		return false
	}
	if _, err := i.Commit(context.Background()); err != nil {
		logger.Error("fc_commit_and_refresh failed", "error", err)
		return false
	}
	return true
}

//export fc_search
func fc_search(q *C.FCQuery) C.FCResults {
	empty := C.FCResults{hits: nil, count: 0}

	i := instance()
	if i == nil {
		logger.Error("fc_search called before fc_init_index")
		return empty
	}
	if q == nil {
		logger.Error("fc_search received null query pointer")
		return empty
	}

	hits, err := i.Search(context.Background(), model.SearchQuery{
		Term:       goStringOrEmpty(q.q),
		Glob:       goStringOrEmpty(q.glob),
		Scope:      model.Scope(q.scope),
		PathPrefix: goStringOrEmpty(q.path_prefix),
		Limit:      int(q.limit),
	})
	if err != nil {
		logger.Error("fc_search failed", "error", err)
		return empty
	}
	if len(hits) == 0 {
		return empty
	}

	// The hit array and its strings are C allocations owned by the caller
	// until fc_free_results; nothing aliases engine memory.
	arr := (*C.FCHit)(C.malloc(C.size_t(len(hits)) * C.sizeof_FCHit))
	out := unsafe.Slice(arr, len(hits))
	for n, h := range hits {
		out[n] = C.FCHit{
			path:  C.CString(h.Path),
			name:  C.CString(h.Name),
			mtime: C.int64_t(h.MTime),
			size:  C.uint64_t(h.Size),
			score: C.float(h.Score),
		}
	}
	return C.FCResults{hits: arr, count: C.int32_t(len(hits))}
}

//export fc_free_results
func fc_free_results(results *C.FCResults) {
	if results == nil {
		return
	}

	hits := results.hits
	count := int(results.count)

	// Null the struct before freeing so a second call on the same struct is
	// a harmless no-op instead of a double free.
	results.hits = nil
	results.count = 0

	if hits == nil || count <= 0 {
		return
	}

	for _, h := range unsafe.Slice(hits, count) {
		if h.path != nil {
			C.free(unsafe.Pointer(h.path))
		}
		if h.name != nil {
			C.free(unsafe.Pointer(h.name))
		}
	}
	C.free(unsafe.Pointer(hits))
}

func goStringOrEmpty(s *C.char) string {
	if s == nil {
		return ""
	}
	return C.GoString(s)
}

// fileMetaFromC copies a boundary record into an owned FileMeta. path and
// name must be non-null; ext may be null.
func fileMetaFromC(meta *C.FCFileMeta) (model.FileMeta, bool) {
	if meta == nil || meta.path == nil || meta.name == nil {
		return model.FileMeta{}, false
	}
	return model.FileMeta{
		ID:    model.FileID{Dev: uint64(meta.dev), Inode: uint64(meta.inode)},
		Path:  C.GoString(meta.path),
		Name:  C.GoString(meta.name),
		Ext:   goStringOrEmpty(meta.ext),
		MTime: int64(meta.mtime),
		Size:  uint64(meta.size),
	}, true
}

func main() {}
