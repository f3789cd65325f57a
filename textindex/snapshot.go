package textindex

import "sort"

// TermCount is one term's frequency within a document.
type TermCount struct {
	Term  string `json:"t"`
	Count uint32 `json:"c"`
}

// DocSnapshot is the serializable form of one document's postings.
type DocSnapshot struct {
	Ord   uint32      `json:"ord"`
	Total int         `json:"total"`
	Terms []TermCount `json:"terms"`
}

// Snapshot returns the serializable form of the index, ordered by document
// ordinal for deterministic output.
func (ix *Index) Snapshot() []DocSnapshot {
	out := make([]DocSnapshot, 0, len(ix.docs))
	for ord, entry := range ix.docs {
		terms := make([]TermCount, 0, len(entry.terms))
		for _, term := range entry.terms {
			terms = append(terms, TermCount{Term: term, Count: ix.terms[term].freq[ord]})
		}
		out = append(out, DocSnapshot{Ord: ord, Total: entry.total, Terms: terms})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ord < out[j].Ord })
	return out
}

// FromSnapshot rebuilds an index from its serialized form.
func FromSnapshot(docs []DocSnapshot) *Index {
	ix := New()
	for _, doc := range docs {
		terms := make([]string, 0, len(doc.Terms))
		for _, tc := range doc.Terms {
			pl := ix.writablePostings(tc.Term)
			pl.docs.Add(doc.Ord)
			pl.freq[doc.Ord] = tc.Count
			terms = append(terms, tc.Term)
		}
		sort.Strings(terms)
		ix.docs[doc.Ord] = &docEntry{terms: terms, total: doc.Total}
	}
	return ix
}
