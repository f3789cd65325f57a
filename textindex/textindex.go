// Package textindex implements the incremental inverted index over
// tokenized file content.
//
// Postings are roaring bitmaps keyed by per-generation document ordinals.
// The index is mutated only by the single committing writer on a private
// Clone; published instances are immutable and safe for concurrent readers
// without locks. Clones share unchanged posting lists with their parent and
// copy an entry the first time it is touched, so a commit pays for what it
// changed, not for the whole index.
package textindex

import (
	"maps"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/findergo/tokenizer"
)

// postings is the per-term posting list: the set of documents containing the
// term plus the term frequency within each.
type postings struct {
	docs *roaring.Bitmap
	freq map[uint32]uint32
}

func (p *postings) clone() *postings {
	return &postings{
		docs: p.docs.Clone(),
		freq: maps.Clone(p.freq),
	}
}

// docEntry records the distinct terms and total token count of one document.
// Entries are immutable; an update installs a fresh entry.
type docEntry struct {
	terms []string
	total int
}

// Index is an inverted index over tokenized document content.
type Index struct {
	terms  map[string]*postings
	docs   map[uint32]*docEntry
	sorted []string // distinct terms in lexical order, for prefix scans

	// owned marks posting lists created by this instance. Lists inherited
	// from the parent clone are copied before the first mutation.
	owned map[string]struct{}
	// sortedOwned marks the sorted term table as private to this instance.
	sortedOwned bool
}

// New creates an empty index.
func New() *Index {
	return &Index{
		terms:       make(map[string]*postings),
		docs:        make(map[uint32]*docEntry),
		owned:       make(map[string]struct{}),
		sortedOwned: true,
	}
}

// Clone returns a mutable copy sharing unchanged posting lists with the
// receiver. The receiver stays immutable and readable.
func (ix *Index) Clone() *Index {
	return &Index{
		terms:  maps.Clone(ix.terms),
		docs:   maps.Clone(ix.docs),
		sorted: ix.sorted,
		owned:  make(map[string]struct{}),
	}
}

// Update replaces all postings of the document with the tokenization of
// text. Empty text removes the document's postings entirely; stale terms
// never survive an update.
func (ix *Index) Update(ord uint32, text string) {
	ix.Remove(ord)

	counts, total := tokenizer.Counts(text)
	if total == 0 {
		return
	}

	terms := make([]string, 0, len(counts))
	for term, count := range counts {
		pl := ix.writablePostings(term)
		pl.docs.Add(ord)
		pl.freq[ord] = count
		terms = append(terms, term)
	}
	sort.Strings(terms)

	ix.docs[ord] = &docEntry{terms: terms, total: total}
}

// Remove deletes all postings of the document.
func (ix *Index) Remove(ord uint32) {
	entry, ok := ix.docs[ord]
	if !ok {
		return
	}
	for _, term := range entry.terms {
		pl := ix.writablePostings(term)
		pl.docs.Remove(ord)
		delete(pl.freq, ord)
		if pl.docs.IsEmpty() {
			delete(ix.terms, term)
			ix.removeSorted(term)
		}
	}
	delete(ix.docs, ord)
}

// Lookup returns the posting bitmap for an exact term, or nil when the term
// is unknown. The returned bitmap is shared index state and must not be
// mutated by the caller.
func (ix *Index) Lookup(term string) *roaring.Bitmap {
	pl, ok := ix.terms[term]
	if !ok {
		return nil
	}
	return pl.docs
}

// LookupPrefix returns the union of posting bitmaps of all terms starting
// with prefix. The returned bitmap is owned by the caller.
func (ix *Index) LookupPrefix(prefix string) *roaring.Bitmap {
	if prefix == "" {
		return roaring.New()
	}
	lo := sort.SearchStrings(ix.sorted, prefix)
	var lists []*roaring.Bitmap
	for i := lo; i < len(ix.sorted) && strings.HasPrefix(ix.sorted[i], prefix); i++ {
		lists = append(lists, ix.terms[ix.sorted[i]].docs)
	}
	if len(lists) == 0 {
		return roaring.New()
	}
	return roaring.FastOr(lists...)
}

// Frequency returns how often term occurs in the document.
func (ix *Index) Frequency(ord uint32, term string) uint32 {
	pl, ok := ix.terms[term]
	if !ok {
		return 0
	}
	return pl.freq[ord]
}

// DocTokens returns the total token count of the document, or 0 when the
// document has no indexed content.
func (ix *Index) DocTokens(ord uint32) int {
	entry, ok := ix.docs[ord]
	if !ok {
		return 0
	}
	return entry.total
}

// HasContent reports whether the document has at least one posting.
func (ix *Index) HasContent(ord uint32) bool {
	return ix.DocTokens(ord) > 0
}

// Docs returns the number of documents with indexed content.
func (ix *Index) Docs() int {
	return len(ix.docs)
}

// Terms returns the number of distinct indexed terms.
func (ix *Index) Terms() int {
	return len(ix.terms)
}

// writablePostings returns a posting list private to this instance, copying
// a list inherited from the parent clone on first touch.
func (ix *Index) writablePostings(term string) *postings {
	pl, ok := ix.terms[term]
	if !ok {
		pl = &postings{docs: roaring.New(), freq: make(map[uint32]uint32)}
		ix.terms[term] = pl
		ix.owned[term] = struct{}{}
		ix.insertSorted(term)
		return pl
	}
	if _, mine := ix.owned[term]; !mine {
		pl = pl.clone()
		ix.terms[term] = pl
		ix.owned[term] = struct{}{}
	}
	return pl
}

func (ix *Index) writableSorted() {
	if ix.sortedOwned {
		return
	}
	dup := make([]string, len(ix.sorted))
	copy(dup, ix.sorted)
	ix.sorted = dup
	ix.sortedOwned = true
}

func (ix *Index) insertSorted(term string) {
	ix.writableSorted()
	i := sort.SearchStrings(ix.sorted, term)
	if i < len(ix.sorted) && ix.sorted[i] == term {
		return
	}
	ix.sorted = append(ix.sorted, "")
	copy(ix.sorted[i+1:], ix.sorted[i:])
	ix.sorted[i] = term
}

func (ix *Index) removeSorted(term string) {
	ix.writableSorted()
	i := sort.SearchStrings(ix.sorted, term)
	if i < len(ix.sorted) && ix.sorted[i] == term {
		ix.sorted = append(ix.sorted[:i], ix.sorted[i+1:]...)
	}
}
