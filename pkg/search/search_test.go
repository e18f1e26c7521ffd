package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramkit/engram/pkg/mem"
)

// A fixed clock keeps every score in these tests exact.
var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testRecord(id, text string, tags []string, updated time.Time) mem.MemoryRecord {
	return mem.MemoryRecord{
		ID:        id,
		Text:      text,
		Tags:      mem.NormalizeTags(tags),
		Keywords:  mem.ExtractKeywords(text),
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

// stale is old enough that the recency bonus has fully decayed.
var stale = testNow.Add(-200 * 24 * time.Hour)

func TestScore(t *testing.T) {
	t.Run("empty query scores zero", func(t *testing.T) {
		record := testRecord("1", "redis runs on port 6379", nil, testNow)
		assert.Equal(t, 0.0, Score(record, "", testNow))
		assert.Equal(t, 0.0, Score(record, "   \t", testNow))
	})

	t.Run("text occurrence and keyword hit", func(t *testing.T) {
		record := testRecord("1", "redis runs on port 6379", nil, stale)
		// One occurrence in the text (5) plus an exact keyword match (6).
		assert.Equal(t, 11.0, Score(record, "redis", testNow))
	})

	t.Run("tag match adds its weight", func(t *testing.T) {
		without := testRecord("1", "redis runs on port 6379", nil, stale)
		with := testRecord("2", "redis runs on port 6379", []string{"redis"}, stale)

		assert.Equal(t, 19.0, Score(with, "redis", testNow))
		assert.Greater(t, Score(with, "redis", testNow), Score(without, "redis", testNow))
	})

	t.Run("occurrences are counted", func(t *testing.T) {
		record := testRecord("1", "go go go gadget", nil, stale)
		// "go" is too short to be a keyword, so only the three text hits count.
		assert.Equal(t, 15.0, Score(record, "go", testNow))
	})

	t.Run("substring occurrences count as text hits", func(t *testing.T) {
		record := testRecord("1", "dark dark", nil, stale)
		assert.Equal(t, 10.0, Score(record, "dar", testNow))
	})

	t.Run("tokens accumulate", func(t *testing.T) {
		record := testRecord("1", "I prefer dark mode", nil, stale)
		// Each token: one text occurrence (5) plus a keyword match (6).
		assert.Equal(t, 22.0, Score(record, "dark mode", testNow))
	})

	t.Run("case-insensitive", func(t *testing.T) {
		record := testRecord("1", "Redis Configuration", []string{"Redis"}, stale)
		assert.Equal(t, Score(record, "redis", testNow), Score(record, "REDIS", testNow))
		assert.Greater(t, Score(record, "REDIS", testNow), 0.0)
	})

	t.Run("no match scores zero regardless of recency", func(t *testing.T) {
		record := testRecord("1", "completely unrelated text", nil, testNow)
		assert.Equal(t, 0.0, Score(record, "zebra", testNow))
	})

	t.Run("deterministic", func(t *testing.T) {
		record := testRecord("1", "redis cache warms on startup", []string{"infra"}, stale)
		first := Score(record, "redis cache", testNow)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, Score(record, "redis cache", testNow))
		}
	})
}

func TestScoreRecency(t *testing.T) {
	tests := []struct {
		name    string
		updated time.Time
		want    float64
	}{
		{"just updated gets the full bonus", testNow, 16.0},
		{"thirty days old loses one point", testNow.Add(-30 * 24 * time.Hour), 15.0},
		{"ninety days old", testNow.Add(-90 * 24 * time.Hour), 13.0},
		{"one hundred fifty days old gets nothing", testNow.Add(-150 * 24 * time.Hour), 11.0},
		{"older than the decay window gets nothing", stale, 11.0},
		{"future timestamps clamp to the full bonus", testNow.Add(24 * time.Hour), 16.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := testRecord("1", "redis runs on port 6379", nil, tt.updated)
			assert.Equal(t, tt.want, Score(record, "redis", testNow))
		})
	}

	t.Run("falls back to createdAt", func(t *testing.T) {
		record := mem.MemoryRecord{
			ID:        "1",
			Text:      "redis runs on port 6379",
			Tags:      []string{},
			Keywords:  mem.ExtractKeywords("redis runs on port 6379"),
			CreatedAt: testNow,
		}
		assert.Equal(t, 16.0, Score(record, "redis", testNow))
	})

	t.Run("no timestamps means no bonus", func(t *testing.T) {
		record := mem.MemoryRecord{
			ID:       "1",
			Text:     "redis runs on port 6379",
			Tags:     []string{},
			Keywords: mem.ExtractKeywords("redis runs on port 6379"),
		}
		assert.Equal(t, 11.0, Score(record, "redis", testNow))
	})
}

func TestSearch(t *testing.T) {
	records := []mem.MemoryRecord{
		testRecord("a", "notes about postgres tuning", []string{"db"}, stale),
		testRecord("b", "redis redis redis", nil, stale),
		testRecord("c", "a single redis mention", nil, stale),
	}

	t.Run("ranks by score descending", func(t *testing.T) {
		hits := Search(records, "redis", 10, testNow)
		require.Len(t, hits, 2)
		assert.Equal(t, "b", hits[0].Record.ID)
		assert.Equal(t, "c", hits[1].Record.ID)
		assert.Greater(t, hits[0].Score, hits[1].Score)
	})

	t.Run("non-matching records are excluded", func(t *testing.T) {
		hits := Search(records, "redis", 10, testNow)
		for _, hit := range hits {
			assert.NotEqual(t, "a", hit.Record.ID)
		}
	})

	t.Run("empty query returns no hits", func(t *testing.T) {
		hits := Search(records, "", 10, testNow)
		assert.Empty(t, hits)
		assert.NotNil(t, hits)
	})

	t.Run("limit truncates", func(t *testing.T) {
		hits := Search(records, "redis", 1, testNow)
		require.Len(t, hits, 1)
		assert.Equal(t, "b", hits[0].Record.ID)
	})

	t.Run("limit clamps to one", func(t *testing.T) {
		hits := Search(records, "redis", 0, testNow)
		assert.Len(t, hits, 1)
	})
}

func TestSearchExcludesTombstones(t *testing.T) {
	deletedAt := stale
	records := []mem.MemoryRecord{
		testRecord("live", "redis configuration", nil, stale),
		{
			ID:        "dead",
			Text:      "redis configuration",
			Tags:      []string{},
			Keywords:  mem.ExtractKeywords("redis configuration"),
			CreatedAt: stale,
			UpdatedAt: stale,
			DeletedAt: &deletedAt,
		},
	}

	hits := Search(records, "redis", 10, testNow)
	require.Len(t, hits, 1)
	assert.Equal(t, "live", hits[0].Record.ID)
}

func TestSearchTieBreak(t *testing.T) {
	// Identical content and timestamps produce identical scores; the
	// earlier record keeps its place.
	records := []mem.MemoryRecord{
		testRecord("first", "identical redis note", nil, stale),
		testRecord("second", "identical redis note", nil, stale),
	}

	hits := Search(records, "redis", 10, testNow)
	require.Len(t, hits, 2)
	assert.Equal(t, hits[0].Score, hits[1].Score)
	assert.Equal(t, "first", hits[0].Record.ID)
	assert.Equal(t, "second", hits[1].Record.ID)
}

func TestSearchContentOutranksRecency(t *testing.T) {
	records := []mem.MemoryRecord{
		testRecord("fresh", "one redis mention today", nil, testNow),
		testRecord("strong", "redis redis redis redis", nil, stale),
	}

	hits := Search(records, "redis", 10, testNow)
	require.Len(t, hits, 2)
	assert.Equal(t, "strong", hits[0].Record.ID, "four text hits beat one hit plus the recency bonus")
}
