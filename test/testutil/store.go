// Package testutil provides shared helpers for the integration and
// command-line tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/engramkit/engram/pkg/mem"
)

// TempStorePath returns a store file path inside a fresh temp directory.
func TempStorePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "memories.json")
}

// SeedStoreFile writes records to path in the canonical store format,
// for tests that need full control over ids and timestamps.
func SeedStoreFile(t *testing.T, path string, records ...mem.MemoryRecord) {
	t.Helper()

	data, err := json.MarshalIndent(records, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, append(data, '\n'), 0o644))
}

// Record builds an active record whose timestamps sit age in the past.
func Record(id, text string, tags []string, age time.Duration) mem.MemoryRecord {
	ts := time.Now().UTC().Add(-age)
	return mem.MemoryRecord{
		ID:        id,
		Text:      text,
		Tags:      mem.NormalizeTags(tags),
		Keywords:  mem.ExtractKeywords(text),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}
