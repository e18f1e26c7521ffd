// Package mock provides an in-memory implementation of the mem.Store
// interface used for testing and development.
package mock

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/engramkit/engram/pkg/errors"
	"github.com/engramkit/engram/pkg/log"
	"github.com/engramkit/engram/pkg/mem"
)

// MockStore keeps the collection in a slice so insertion order is
// preserved, matching the on-disk adapter's behavior.
type MockStore struct {
	records []mem.MemoryRecord

	// shouldError makes every method fail, for testing error paths.
	shouldError bool

	mutex sync.RWMutex
}

// NewMockStore creates a new instance of the MockStore.
func NewMockStore() *MockStore {
	store := &MockStore{
		records: make([]mem.MemoryRecord, 0),
	}

	log.Debug("Initialized mock memory store adapter")
	return store
}

// Seed replaces the collection with the given records. Useful for
// tests that need full control over ids and timestamps.
func (m *MockStore) Seed(records ...mem.MemoryRecord) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.records = make([]mem.MemoryRecord, len(records))
	copy(m.records, records)
}

// SetShouldError configures whether the store returns errors.
func (m *MockStore) SetShouldError(shouldErr bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.shouldError = shouldErr
}

// Load implements the mem.Store interface.
func (m *MockStore) Load(ctx context.Context) ([]mem.MemoryRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.shouldError {
		return nil, errors.New("mock store error")
	}

	records := make([]mem.MemoryRecord, len(m.records))
	copy(records, m.records)
	return records, nil
}

// Add implements the mem.Store interface.
func (m *MockStore) Add(ctx context.Context, text string, tags []string) (mem.MemoryRecord, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return mem.MemoryRecord{}, errors.ErrEmptyMemory
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.shouldError {
		return mem.MemoryRecord{}, errors.New("mock store error")
	}

	now := time.Now().UTC()
	record := mem.MemoryRecord{
		ID:        uuid.New().String(),
		Text:      trimmed,
		Tags:      mem.NormalizeTags(tags),
		Keywords:  mem.ExtractKeywords(trimmed),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.records = append(m.records, record)

	log.DebugContext(ctx, "Stored memory in mock store", "id", record.ID)
	return record, nil
}

// SoftDelete implements the mem.Store interface. Tombstoning an
// already deleted record reports it found and keeps the original
// deletion time.
func (m *MockStore) SoftDelete(ctx context.Context, id string) (mem.DeleteResult, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.shouldError {
		return mem.DeleteResult{}, errors.New("mock store error")
	}

	for i := range m.records {
		if m.records[i].ID != id {
			continue
		}
		if m.records[i].DeletedAt == nil {
			now := time.Now().UTC()
			m.records[i].DeletedAt = &now
			m.records[i].UpdatedAt = now
		}
		rec := m.records[i]
		return mem.DeleteResult{Found: true, Record: &rec}, nil
	}
	return mem.DeleteResult{}, nil
}

// Purge implements the mem.Store interface.
func (m *MockStore) Purge(ctx context.Context, criteria mem.PurgeCriteria, dryRun bool) (mem.PurgeResult, error) {
	if !criteria.Valid() {
		return mem.PurgeResult{}, errors.ErrInvalidCriteria
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.shouldError {
		return mem.PurgeResult{}, errors.New("mock store error")
	}

	ids := make([]string, 0)
	kept := make([]mem.MemoryRecord, 0, len(m.records))
	for _, r := range m.records {
		if matchesCriteria(r, criteria) {
			ids = append(ids, r.ID)
			continue
		}
		kept = append(kept, r)
	}

	if dryRun {
		return mem.PurgeResult{Count: len(ids), IDs: ids, DryRun: true}, nil
	}

	m.records = kept
	return mem.PurgeResult{Count: len(ids), IDs: ids}, nil
}

// Export implements the mem.Store interface.
func (m *MockStore) Export(ctx context.Context) ([]byte, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.shouldError {
		return nil, errors.New("mock store error")
	}

	data, err := json.MarshalIndent(m.records, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Path implements the mem.Store interface.
func (m *MockStore) Path() string {
	return "mock://memories"
}

func matchesCriteria(r mem.MemoryRecord, c mem.PurgeCriteria) bool {
	switch {
	case c.ID != "":
		return r.ID == c.ID
	case c.Tag != "":
		return r.HasTag(c.Tag)
	default:
		return strings.Contains(strings.ToLower(r.Text), strings.ToLower(c.Substring))
	}
}
