// Package jsonfile persists the memory collection as a single
// pretty-printed JSON array on disk. It is the only component that
// opens the store file or its lock marker: mutations serialize through
// an exclusive-create lock and commit via an atomic rename, readers
// see whatever is currently committed without locking.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/engramkit/engram/pkg/errors"
	"github.com/engramkit/engram/pkg/log"
	"github.com/engramkit/engram/pkg/mem"
)

// Environment overrides honored when no explicit path is given.
const (
	EnvStorePath = "ENGRAM_STORE_PATH"
	EnvLockPath  = "ENGRAM_LOCK_PATH"
)

// Store implements mem.Store over a JSON array file.
type Store struct {
	path        string
	lockPath    string
	lockTimeout time.Duration

	// owner identifies this writer in the lock marker, diagnostic only
	owner   string
	entropy *rand.Rand
}

// Option configures a Store.
type Option func(*Store)

// WithLockPath overrides the lock marker location.
func WithLockPath(path string) Option {
	return func(s *Store) {
		s.lockPath = path
	}
}

// WithLockTimeout overrides how long mutations wait for the lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// New creates a Store for the given path. An empty path falls back to
// the ENGRAM_STORE_PATH environment variable and then to
// ~/.engram/memories.json. The store file itself is created lazily on
// the first mutation.
func New(path string, opts ...Option) (*Store, error) {
	resolved, err := ResolveStorePath(path)
	if err != nil {
		return nil, err
	}

	s := &Store{
		path:        resolved,
		lockTimeout: DefaultLockTimeout,
		owner:       uuid.New().String(),
		entropy:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.lockPath == "" {
		s.lockPath = resolveLockPath(resolved)
	}

	log.Debug("Initialized jsonfile store",
		"path", s.path,
		"lock_path", s.lockPath,
		"lock_timeout", s.lockTimeout,
	)

	return s, nil
}

// ResolveStorePath resolves the store file location: an explicit path
// wins, then ENGRAM_STORE_PATH, then ~/.engram/memories.json.
func ResolveStorePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if env := os.Getenv(EnvStorePath); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".engram", "memories.json"), nil
}

// resolveLockPath resolves the lock marker location: ENGRAM_LOCK_PATH
// wins, then the store path with a ".lock" suffix.
func resolveLockPath(storePath string) string {
	if env := os.Getenv(EnvLockPath); env != "" {
		return env
	}
	return storePath + ".lock"
}

// Path returns the resolved store file path.
func (s *Store) Path() string {
	return s.path
}

// LockPath returns the resolved lock marker path.
func (s *Store) LockPath() string {
	return s.lockPath
}

// Load implements mem.Store. Readers do not take the lock: a concurrent
// writer can commit between read and use, so callers reload per logical
// operation instead of caching.
func (s *Store) Load(ctx context.Context) ([]mem.MemoryRecord, error) {
	records, err := s.readCollection()
	if err != nil {
		return nil, err
	}

	log.DebugContext(ctx, "Loaded store", "path", s.path, "records", len(records))
	return records, nil
}

// Add implements mem.Store.
func (s *Store) Add(ctx context.Context, text string, tags []string) (mem.MemoryRecord, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return mem.MemoryRecord{}, errors.ErrEmptyMemory
	}

	var record mem.MemoryRecord
	err := s.mutate(ctx, func(records []mem.MemoryRecord) ([]mem.MemoryRecord, bool, error) {
		now := time.Now().UTC()
		record = mem.MemoryRecord{
			ID:        s.newID(now),
			Text:      trimmed,
			Tags:      mem.NormalizeTags(tags),
			Keywords:  mem.ExtractKeywords(trimmed),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return append(records, record), true, nil
	})
	if err != nil {
		return mem.MemoryRecord{}, err
	}

	log.DebugContext(ctx, "Stored memory",
		"id", record.ID,
		"tags", record.Tags,
		"keywords", len(record.Keywords),
	)
	return record, nil
}

// SoftDelete implements mem.Store. Tombstoning an already tombstoned
// record reports Found without touching the first DeletedAt.
func (s *Store) SoftDelete(ctx context.Context, id string) (mem.DeleteResult, error) {
	var result mem.DeleteResult
	err := s.mutate(ctx, func(records []mem.MemoryRecord) ([]mem.MemoryRecord, bool, error) {
		for i := range records {
			if records[i].ID != id {
				continue
			}

			changed := false
			if records[i].DeletedAt == nil {
				now := time.Now().UTC()
				records[i].DeletedAt = &now
				records[i].UpdatedAt = now
				changed = true
			}

			rec := records[i]
			result = mem.DeleteResult{Found: true, Record: &rec}
			return records, changed, nil
		}
		return records, false, nil
	})
	if err != nil {
		return mem.DeleteResult{}, err
	}

	log.DebugContext(ctx, "Soft-deleted memory", "id", id, "found", result.Found)
	return result, nil
}

// Purge implements mem.Store. Criteria are validated before any file
// I/O; a dry run reads without locking and mutates nothing.
func (s *Store) Purge(ctx context.Context, criteria mem.PurgeCriteria, dryRun bool) (mem.PurgeResult, error) {
	if !criteria.Valid() {
		return mem.PurgeResult{}, errors.ErrInvalidCriteria
	}

	if dryRun {
		records, err := s.readCollection()
		if err != nil {
			return mem.PurgeResult{}, err
		}
		ids := matchIDs(records, criteria)
		return mem.PurgeResult{Count: len(ids), IDs: ids, DryRun: true}, nil
	}

	var result mem.PurgeResult
	err := s.mutate(ctx, func(records []mem.MemoryRecord) ([]mem.MemoryRecord, bool, error) {
		ids := matchIDs(records, criteria)
		result = mem.PurgeResult{Count: len(ids), IDs: ids}
		if len(ids) == 0 {
			return records, false, nil
		}

		kept := make([]mem.MemoryRecord, 0, len(records)-len(ids))
		for _, r := range records {
			if !matchesCriteria(r, criteria) {
				kept = append(kept, r)
			}
		}
		return kept, true, nil
	})
	if err != nil {
		return mem.PurgeResult{}, err
	}

	log.DebugContext(ctx, "Purged memories", "count", result.Count)
	return result, nil
}

// Export implements mem.Store, returning the canonical serialized form
// of the collection, tombstones included.
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	records, err := s.readCollection()
	if err != nil {
		return nil, err
	}
	return marshalRecords(records)
}

// mutate runs the full mutation protocol: take the lock, re-read the
// collection fresh, apply fn, commit atomically. The lock is released
// on every path. fn reports whether anything changed; an unchanged
// collection is not rewritten.
func (s *Store) mutate(ctx context.Context, fn func([]mem.MemoryRecord) ([]mem.MemoryRecord, bool, error)) error {
	if err := s.acquireLock(ctx); err != nil {
		return err
	}
	defer s.releaseLock()

	records, err := s.readCollection()
	if err != nil {
		return err
	}

	updated, changed, err := fn(records)
	if err != nil || !changed {
		return err
	}

	return s.writeCollection(updated)
}

// readCollection parses the store file. A missing or empty file is an
// empty collection; anything that is not a JSON array is malformed.
func (s *Store) readCollection() ([]mem.MemoryRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []mem.MemoryRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store file %s: %w", s.path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []mem.MemoryRecord{}, nil
	}
	if trimmed[0] != '[' {
		return nil, errors.Wrap(errors.ErrMalformedStore, "parsing %s", s.path)
	}

	var records []mem.MemoryRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, errors.Wrap(errors.ErrMalformedStore, "parsing %s (%v)", s.path, err)
	}
	if records == nil {
		records = []mem.MemoryRecord{}
	}
	return records, nil
}

// writeCollection commits the collection with a temp file in the target
// directory and an atomic rename, so readers never observe a partial
// write.
func (s *Store) writeCollection(records []mem.MemoryRecord) error {
	data, err := marshalRecords(records)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".memories-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("committing store file %s: %w", s.path, err)
	}
	return nil
}

// marshalRecords renders the canonical persisted form: a pretty-printed
// JSON array with a trailing newline.
func marshalRecords(records []mem.MemoryRecord) ([]byte, error) {
	if records == nil {
		records = []mem.MemoryRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling records: %w", err)
	}
	return append(data, '\n'), nil
}

// newID returns a ULID: millisecond timestamp plus random suffix, so
// ids sort roughly by creation time. Called under the store lock.
func (s *Store) newID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), s.entropy).String()
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

func matchIDs(records []mem.MemoryRecord, c mem.PurgeCriteria) []string {
	ids := make([]string, 0)
	for _, r := range records {
		if matchesCriteria(r, c) {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
