package query

import (
	"strings"

	"github.com/hupe1980/findergo/model"
	"github.com/hupe1980/findergo/textindex"
)

// Ranking weights. These are part of the result contract: hosts depend on
// stable ordering across versions, so the weights are fixed rather than
// configurable.
const (
	weightName    = 0.5
	weightText    = 0.4
	weightRecency = 0.1

	// recencyWindow is the span over which the recency boost decays linearly
	// from 1 to 0.
	recencyWindow = int64(30 * 24 * 60 * 60) // 30 days in seconds
)

// score ranks one matched document.
//
//	score = 0.5*nameMatch + 0.4*termFrequency + 0.1*recency
//
// nameMatch is 1 for an exact (case-insensitive) name match, 0.5 for a
// substring match. termFrequency is the summed per-term frequency normalized
// by the document's token count, capped at 1. recency decays linearly over
// recencyWindow from the generation's publication time, so the same query
// against the same generation always ranks identically.
func score(meta model.FileMeta, ord uint32, lowerTerm string, terms []string, text *textindex.Index, now int64) float32 {
	var nameMatch float64
	if lowerTerm != "" {
		lowerName := strings.ToLower(meta.Name)
		switch {
		case lowerName == lowerTerm:
			nameMatch = 1
		case strings.Contains(lowerName, lowerTerm):
			nameMatch = 0.5
		}
	}

	var tf float64
	if total := text.DocTokens(ord); total > 0 {
		var sum uint32
		for _, term := range terms {
			sum += text.Frequency(ord, term)
		}
		tf = float64(sum) / float64(total)
		if tf > 1 {
			tf = 1
		}
	}

	var recency float64
	age := now - meta.MTime
	switch {
	case age <= 0:
		recency = 1
	case age < recencyWindow:
		recency = 1 - float64(age)/float64(recencyWindow)
	}

	return float32(weightName*nameMatch + weightText*tf + weightRecency*recency)
}
