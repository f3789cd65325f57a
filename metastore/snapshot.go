package metastore

import (
	"sort"

	"github.com/hupe1980/findergo/model"
)

// RecordSnapshot is the serializable form of one record.
type RecordSnapshot struct {
	Meta model.FileMeta `json:"meta"`
	Ord  uint32         `json:"ord"`
}

// Snapshot is the serializable form of the whole store.
type Snapshot struct {
	Records []RecordSnapshot `json:"records"`
	NextOrd uint32           `json:"next_ord"`
}

// Snapshot returns the serializable form of the store, ordered by ordinal
// for deterministic output.
func (s *Store) Snapshot() Snapshot {
	records := make([]RecordSnapshot, 0, len(s.byID))
	for _, rec := range s.byID {
		records = append(records, RecordSnapshot{Meta: rec.meta, Ord: rec.ord})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Ord < records[j].Ord })
	return Snapshot{Records: records, NextOrd: s.nextOrd}
}

// FromSnapshot rebuilds a store from its serialized form.
func FromSnapshot(snap Snapshot) *Store {
	s := New()
	for _, rs := range snap.Records {
		rec := &record{meta: rs.Meta, ord: rs.Ord}
		s.byID[rs.Meta.ID] = rec
		s.byOrd[rs.Ord] = rec
		s.live.Add(rs.Ord)
		s.insertPath(rs.Meta.Path, rs.Ord)
	}
	s.nextOrd = snap.NextOrd
	return s
}
