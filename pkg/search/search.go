// Package search ranks memory records against a keyword query.
//
// Scoring is additive and deterministic: token occurrences in the
// text, exact tag matches, and exact keyword matches each contribute a
// fixed weight, plus a small recency bonus for records that matched on
// content. There is no similarity model; every score is explainable
// from the record and the query alone.
package search

import (
	"sort"
	"strings"
	"time"

	"github.com/engramkit/engram/pkg/mem"
)

// Scoring weights. Tag and keyword hits outweigh raw text occurrences
// because they are curated or extracted signal. The recency bonus is
// capped small so it nudges ties without overriding relevance.
const (
	textOccurrenceWeight = 5
	tagMatchWeight       = 8
	keywordMatchWeight   = 6

	recencyMaxBonus  = 5.0
	recencyDecayDays = 30.0
)

// DefaultLimit is the result cap used when the caller does not specify one.
const DefaultLimit = 10

// Hit pairs a record with its relevance score for one query.
type Hit struct {
	Record mem.MemoryRecord `json:"record"`
	Score  float64          `json:"score"`
}

// Score computes the relevance of a record for a query at the given
// time. An empty query scores 0. The recency bonus applies only when
// at least one token contributed, so fresh records never match a query
// they share nothing with.
func Score(record mem.MemoryRecord, query string, now time.Time) float64 {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return 0
	}

	text := strings.ToLower(record.Text)

	score := 0.0
	matched := false
	for _, token := range tokens {
		if n := strings.Count(text, token); n > 0 {
			score += float64(n * textOccurrenceWeight)
			matched = true
		}
		if record.HasTag(token) {
			score += tagMatchWeight
			matched = true
		}
		if hasKeyword(record, token) {
			score += keywordMatchWeight
			matched = true
		}
	}

	if matched {
		score += recencyBonus(record, now)
	}
	return score
}

// Search scores every live record, drops the ones that did not match,
// and returns the top hits in descending score order. Ties keep the
// records' original order, so earlier insertions rank first. limit is
// clamped to a minimum of 1.
func Search(records []mem.MemoryRecord, query string, limit int, now time.Time) []Hit {
	if limit < 1 {
		limit = 1
	}

	hits := make([]Hit, 0)
	for _, record := range records {
		if record.Deleted() {
			continue
		}
		score := Score(record, query, now)
		if score <= 0 {
			continue
		}
		hits = append(hits, Hit{Record: record, Score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// recencyBonus decays linearly from 5 for a just-updated record to 0
// at 150 days. Falls back to createdAt when updatedAt is missing, as
// in hand-edited store files.
func recencyBonus(record mem.MemoryRecord, now time.Time) float64 {
	ts := record.UpdatedAt
	if ts.IsZero() {
		ts = record.CreatedAt
	}
	if ts.IsZero() {
		return 0
	}

	ageDays := now.Sub(ts).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	penalty := ageDays / recencyDecayDays
	if penalty > recencyMaxBonus {
		penalty = recencyMaxBonus
	}
	return recencyMaxBonus - penalty
}

func hasKeyword(record mem.MemoryRecord, token string) bool {
	for _, kw := range record.Keywords {
		if kw == token {
			return true
		}
	}
	return false
}
