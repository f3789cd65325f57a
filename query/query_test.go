package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/findergo/generation"
	"github.com/hupe1980/findergo/metastore"
	"github.com/hupe1980/findergo/model"
	"github.com/hupe1980/findergo/textindex"
)

type testFile struct {
	inode   uint64
	path    string
	mtime   int64
	content string
}

func buildGeneration(t *testing.T, files []testFile) *generation.Generation {
	t.Helper()

	meta := metastore.New()
	text := textindex.New()
	for _, f := range files {
		m := model.FileMeta{
			ID:    model.FileID{Dev: 1, Inode: f.inode},
			Path:  f.path,
			MTime: f.mtime,
			Size:  uint64(len(f.content)),
		}
		require.NoError(t, m.Validate())
		ord, _ := meta.Upsert(m)
		text.Update(ord, f.content)
	}
	return generation.New(1, meta, text)
}

func defaultFiles() []testFile {
	now := time.Now().Unix()
	return []testFile{
		{inode: 1, path: "/docs/todo.txt", mtime: now, content: "buy milk call dentist"},
		{inode: 2, path: "/docs/milk.md", mtime: now, content: "recipes for cake"},
		{inode: 3, path: "/music/song.mp3", mtime: now, content: ""},
	}
}

func paths(hits []model.Hit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Path)
	}
	return out
}

func TestEvaluateContentMatch(t *testing.T) {
	gen := buildGeneration(t, defaultFiles())

	hits := Evaluate(gen, model.SearchQuery{Term: "dentist", Scope: model.ScopeAll}, nil)
	assert.Equal(t, []string{"/docs/todo.txt"}, paths(hits))
}

func TestEvaluateScopes(t *testing.T) {
	gen := buildGeneration(t, defaultFiles())

	t.Run("name only", func(t *testing.T) {
		hits := Evaluate(gen, model.SearchQuery{Term: "milk", Scope: model.ScopeName}, nil)
		assert.Equal(t, []string{"/docs/milk.md"}, paths(hits))
	})

	t.Run("content only", func(t *testing.T) {
		hits := Evaluate(gen, model.SearchQuery{Term: "milk", Scope: model.ScopeContent}, nil)
		assert.Equal(t, []string{"/docs/todo.txt"}, paths(hits))
	})

	t.Run("all matches both domains", func(t *testing.T) {
		hits := Evaluate(gen, model.SearchQuery{Term: "milk", Scope: model.ScopeAll}, nil)
		assert.ElementsMatch(t, []string{"/docs/todo.txt", "/docs/milk.md"}, paths(hits))
	})

	t.Run("unknown scope degrades to all", func(t *testing.T) {
		hits := Evaluate(gen, model.SearchQuery{Term: "milk", Scope: model.Scope(42)}, nil)
		assert.ElementsMatch(t, []string{"/docs/todo.txt", "/docs/milk.md"}, paths(hits))
	})

	t.Run("path prefix", func(t *testing.T) {
		hits := Evaluate(gen, model.SearchQuery{
			Scope:      model.ScopePathPrefix,
			PathPrefix: "/docs/",
		}, nil)
		assert.ElementsMatch(t, []string{"/docs/todo.txt", "/docs/milk.md"}, paths(hits))
	})

	t.Run("path prefix with term", func(t *testing.T) {
		hits := Evaluate(gen, model.SearchQuery{
			Term:       "milk",
			Scope:      model.ScopePathPrefix,
			PathPrefix: "/music/",
		}, nil)
		assert.Empty(t, hits)
	})
}

func TestEvaluateEmptyTerm(t *testing.T) {
	gen := buildGeneration(t, defaultFiles())

	t.Run("unconstrained", func(t *testing.T) {
		hits := Evaluate(gen, model.SearchQuery{}, nil)
		assert.Len(t, hits, 3)
	})

	t.Run("content scope requires postings", func(t *testing.T) {
		hits := Evaluate(gen, model.SearchQuery{Scope: model.ScopeContent}, nil)
		assert.ElementsMatch(t, []string{"/docs/todo.txt", "/docs/milk.md"}, paths(hits))
	})
}

func TestEvaluateLastTermPrefix(t *testing.T) {
	gen := buildGeneration(t, defaultFiles())

	// A partially typed last word still matches.
	hits := Evaluate(gen, model.SearchQuery{Term: "dent", Scope: model.ScopeContent}, nil)
	assert.Equal(t, []string{"/docs/todo.txt"}, paths(hits))

	// Earlier terms must match exactly.
	hits = Evaluate(gen, model.SearchQuery{Term: "dent milk", Scope: model.ScopeContent}, nil)
	assert.Empty(t, hits)
}

func TestEvaluateMultiTermIntersection(t *testing.T) {
	gen := buildGeneration(t, defaultFiles())

	hits := Evaluate(gen, model.SearchQuery{Term: "buy dentist", Scope: model.ScopeContent}, nil)
	assert.Equal(t, []string{"/docs/todo.txt"}, paths(hits))

	hits = Evaluate(gen, model.SearchQuery{Term: "buy cake", Scope: model.ScopeContent}, nil)
	assert.Empty(t, hits)
}

func TestEvaluateGlob(t *testing.T) {
	gen := buildGeneration(t, defaultFiles())

	t.Run("filters by pattern", func(t *testing.T) {
		hits := Evaluate(gen, model.SearchQuery{Glob: "*.md"}, nil)
		assert.Equal(t, []string{"/docs/milk.md"}, paths(hits))
	})

	t.Run("full path pattern", func(t *testing.T) {
		hits := Evaluate(gen, model.SearchQuery{Glob: "/docs/*"}, nil)
		assert.ElementsMatch(t, []string{"/docs/todo.txt", "/docs/milk.md"}, paths(hits))
	})

	t.Run("malformed pattern matches nothing", func(t *testing.T) {
		hits := Evaluate(gen, model.SearchQuery{Glob: "[unclosed"}, nil)
		assert.Empty(t, hits)
	})
}

func TestEvaluateLimit(t *testing.T) {
	files := make([]testFile, 0, 60)
	now := time.Now().Unix()
	for i := uint64(1); i <= 60; i++ {
		files = append(files, testFile{
			inode:   i,
			path:    "/data/file" + string(rune('a'+i%26)) + ".txt",
			mtime:   now - int64(i),
			content: "common term",
		})
	}
	gen := buildGeneration(t, files)

	t.Run("non-positive limit defaults to 50", func(t *testing.T) {
		hits := Evaluate(gen, model.SearchQuery{Term: "common", Scope: model.ScopeAll, Limit: 0}, nil)
		assert.Len(t, hits, model.DefaultLimit)

		hits = Evaluate(gen, model.SearchQuery{Term: "common", Scope: model.ScopeAll, Limit: -3}, nil)
		assert.Len(t, hits, model.DefaultLimit)
	})

	t.Run("explicit limit truncates", func(t *testing.T) {
		full := Evaluate(gen, model.SearchQuery{Term: "common", Scope: model.ScopeAll, Limit: len(files)}, nil)
		require.Len(t, full, len(files))

		hits := Evaluate(gen, model.SearchQuery{Term: "common", Scope: model.ScopeAll, Limit: 5}, nil)
		require.Len(t, hits, 5)

		// Truncation keeps the head of the full ranking.
		assert.Equal(t, paths(full)[:5], paths(hits))
	})
}

func TestEvaluateRanking(t *testing.T) {
	now := time.Now().Unix()
	gen := buildGeneration(t, []testFile{
		{inode: 1, path: "/a/report", mtime: now, content: "quarterly report numbers"},
		{inode: 2, path: "/b/report-draft.txt", mtime: now, content: "nothing relevant"},
		{inode: 3, path: "/c/misc.txt", mtime: now, content: "report report report"},
	})

	hits := Evaluate(gen, model.SearchQuery{Term: "report", Scope: model.ScopeAll}, nil)
	require.Len(t, hits, 3)

	// Exact name match outranks a substring name match and a content-only hit.
	assert.Equal(t, "/a/report", hits[0].Path)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i].Score, hits[i-1].Score)
	}
}

func TestEvaluateDeterministicTieBreak(t *testing.T) {
	now := time.Now().Unix()
	gen := buildGeneration(t, []testFile{
		{inode: 1, path: "/b/same.txt", mtime: now - 100, content: "token"},
		{inode: 2, path: "/a/same.txt", mtime: now - 100, content: "token"},
		{inode: 3, path: "/c/same.txt", mtime: now, content: "token"},
	})

	q := model.SearchQuery{Term: "token", Scope: model.ScopeContent}
	first := Evaluate(gen, q, nil)
	require.Len(t, first, 3)

	// Newer mtime wins at equal score; paths break remaining ties.
	assert.Equal(t, "/c/same.txt", first[0].Path)
	assert.Equal(t, []string{"/c/same.txt", "/a/same.txt", "/b/same.txt"}, paths(first))

	// Re-running the same query against the same generation is stable.
	second := Evaluate(gen, q, nil)
	assert.Equal(t, paths(first), paths(second))
}

func TestEvaluateHitFields(t *testing.T) {
	now := time.Now().Unix()
	gen := buildGeneration(t, []testFile{
		{inode: 1, path: "/docs/todo.txt", mtime: now, content: "dentist"},
	})

	hits := Evaluate(gen, model.SearchQuery{Term: "dentist", Scope: model.ScopeAll}, nil)
	require.Len(t, hits, 1)

	assert.Equal(t, "/docs/todo.txt", hits[0].Path)
	assert.Equal(t, "todo.txt", hits[0].Name)
	assert.Equal(t, now, hits[0].MTime)
	assert.Equal(t, uint64(len("dentist")), hits[0].Size)
	assert.Greater(t, hits[0].Score, float32(0))
}
