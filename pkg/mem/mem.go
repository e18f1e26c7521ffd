// Package mem defines the memory record model and the store contract
// consumed by the search, compression, and front-end layers.
package mem

import (
	"context"
	"strings"
	"time"
)

// MemoryRecord represents a single stored memory.
//
// JSON field names are the on-disk contract: the store file is a single
// pretty-printed JSON array of these objects and nothing else.
type MemoryRecord struct {
	// ID is a unique identifier encoding creation time plus a random
	// suffix, so ids sort roughly by creation order
	ID string `json:"id"`

	// Text is the memory content; never empty, never mutated
	Text string `json:"text"`

	// Tags is a normalized set: trimmed, lower-cased, de-duplicated
	Tags []string `json:"tags"`

	// Keywords are derived from Text at creation time and never
	// recomputed on read
	Keywords []string `json:"keywords"`

	// CreatedAt is set once at creation
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is set at creation and bumped on soft-delete
	UpdatedAt time.Time `json:"updatedAt"`

	// DeletedAt marks the record as a tombstone when present; tombstones
	// are excluded from search and compression but kept in storage
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Deleted reports whether the record is a tombstone.
func (r MemoryRecord) Deleted() bool {
	return r.DeletedAt != nil
}

// HasTag reports whether the record carries the tag, comparing
// case-insensitively against the normalized tag set.
func (r MemoryRecord) HasTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NormalizeTags trims, lower-cases, and de-duplicates tags, dropping
// empties. First-seen order is preserved. The result is never nil so the
// persisted form is always a JSON array.
func NormalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))

	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		normalized = append(normalized, t)
	}

	return normalized
}

// DeleteResult reports the outcome of a soft delete.
type DeleteResult struct {
	// Found is true when a record with the id exists, tombstoned or not
	Found bool `json:"found"`

	// Record is the record after the operation, nil when not found
	Record *MemoryRecord `json:"record,omitempty"`
}

// PurgeCriteria selects records for hard deletion. Exactly one field
// must be set.
type PurgeCriteria struct {
	// ID matches a single record by exact id
	ID string

	// Tag matches records carrying the tag
	Tag string

	// Substring matches records whose text contains it, case-insensitively
	Substring string
}

// Valid reports whether exactly one criterion is set.
func (c PurgeCriteria) Valid() bool {
	n := 0
	if c.ID != "" {
		n++
	}
	if c.Tag != "" {
		n++
	}
	if c.Substring != "" {
		n++
	}
	return n == 1
}

// PurgeResult reports which records a purge removed, or would remove
// when DryRun is set.
type PurgeResult struct {
	// Count is the number of matching records
	Count int `json:"count"`

	// IDs lists the matching record ids
	IDs []string `json:"ids"`

	// DryRun is true when the store was left untouched
	DryRun bool `json:"dryRun"`
}

// Store is the persistence contract. Implementations own the store file
// and its lock; no other component performs file I/O.
type Store interface {
	// Load returns the current collection, tombstones included. Readers
	// do not lock; they see whatever is committed.
	Load(ctx context.Context) ([]MemoryRecord, error)

	// Add validates the text, derives keywords, assigns id and
	// timestamps, and persists the new record.
	Add(ctx context.Context, text string, tags []string) (MemoryRecord, error)

	// SoftDelete tombstones a record by id. Deleting an already
	// tombstoned record is a no-op that still reports Found.
	SoftDelete(ctx context.Context, id string) (DeleteResult, error)

	// Purge hard-deletes records matching exactly one criterion. With
	// dryRun the matching set is reported and nothing is written.
	Purge(ctx context.Context, criteria PurgeCriteria, dryRun bool) (PurgeResult, error)

	// Export returns the canonical serialized form of the whole
	// collection, tombstones included.
	Export(ctx context.Context) ([]byte, error)

	// Path returns the resolved store file path.
	Path() string
}
