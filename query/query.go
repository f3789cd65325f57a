// Package query evaluates ranked searches against one pinned generation.
//
// Evaluation never blocks commits and never sees partial state: the caller
// pins a generation, evaluates against its immutable stores and releases it.
// Malformed input degrades to an empty result set rather than an error; the
// search path is best-effort by contract.
package query

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/findergo/generation"
	"github.com/hupe1980/findergo/model"
	"github.com/hupe1980/findergo/textindex"
	"github.com/hupe1980/findergo/tokenizer"
)

// Evaluate runs q against gen and returns ranked hits.
//
// Results are ordered by score descending, then modification time descending,
// then path ascending, and truncated to the query limit. Every hit is an
// owned copy; hits stay valid after the generation is reclaimed.
func Evaluate(gen *generation.Generation, q model.SearchQuery, logger *slog.Logger) []model.Hit {
	if logger == nil {
		logger = slog.Default()
	}

	limit := q.Limit
	if limit <= 0 {
		limit = model.DefaultLimit
	}
	scope := q.Scope.Normalize()

	meta := gen.Meta()
	text := gen.Text()

	var matcher *globMatcher
	if q.Glob != "" {
		var err error
		matcher, err = compileGlob(q.Glob)
		if err != nil {
			logger.Warn("unusable glob pattern, returning no results",
				"glob", q.Glob,
				"error", err,
			)
			return nil
		}
	}

	var candidates *roaring.Bitmap
	if scope == model.ScopePathPrefix {
		candidates = meta.PrefixOrdinals(q.PathPrefix)
	} else {
		candidates = meta.Ordinals()
	}

	lowerTerm := strings.ToLower(strings.TrimSpace(q.Term))
	terms := tokenizer.Terms(q.Term)

	var content *roaring.Bitmap
	if len(terms) > 0 && scope != model.ScopeName {
		content = contentMatches(text, terms)
	}

	hits := make([]model.Hit, 0, limit)
	now := gen.CreatedAt()

	it := candidates.Iterator()
	for it.HasNext() {
		ord := it.Next()
		rec, ok := meta.ByOrdinal(ord)
		if !ok {
			continue
		}

		if !matchesScope(scope, rec, ord, lowerTerm, content, text) {
			continue
		}
		if matcher != nil && !matcher.Match(rec.Path) {
			continue
		}

		hits = append(hits, model.Hit{
			Path:  rec.Path,
			Name:  rec.Name,
			MTime: rec.MTime,
			Size:  rec.Size,
			Score: score(rec, ord, lowerTerm, terms, text, now),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].MTime != hits[j].MTime {
			return hits[i].MTime > hits[j].MTime
		}
		return hits[i].Path < hits[j].Path
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}

	logger.Debug("query evaluated",
		"term", q.Term,
		"scope", int32(scope),
		"generation", gen.Seq(),
		"hits", len(hits),
	)
	return hits
}

// matchesScope applies the scope's match rule to one candidate.
func matchesScope(scope model.Scope, rec model.FileMeta, ord uint32, lowerTerm string, content *roaring.Bitmap, text *textindex.Index) bool {
	if lowerTerm == "" {
		// Unconstrained term: the scope still decides which records qualify.
		if scope == model.ScopeContent {
			return text.HasContent(ord)
		}
		return true
	}

	nameHit := strings.Contains(strings.ToLower(rec.Name), lowerTerm)
	contentHit := content != nil && content.Contains(ord)

	switch scope {
	case model.ScopeName:
		return nameHit
	case model.ScopeContent:
		return contentHit
	default: // ScopeAll, ScopePathPrefix
		return nameHit || contentHit
	}
}

// contentMatches intersects exact postings for every query term, widening the
// last term to a prefix match so that a partially typed word still matches.
func contentMatches(text *textindex.Index, terms []string) *roaring.Bitmap {
	last := len(terms) - 1
	var acc *roaring.Bitmap
	for i, term := range terms {
		var set *roaring.Bitmap
		if i == last {
			set = text.LookupPrefix(term)
		} else {
			set = text.Lookup(term)
			if set == nil {
				return roaring.New()
			}
		}
		if acc == nil {
			acc = set.Clone()
		} else {
			acc.And(set)
		}
		if acc.IsEmpty() {
			return acc
		}
	}
	return acc
}
