package jsonfile

import (
	"context"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/engramkit/engram/pkg/errors"
	"github.com/engramkit/engram/pkg/log"
)

// DefaultLockTimeout bounds how long a mutation waits for the lock.
const DefaultLockTimeout = 2500 * time.Millisecond

// Retry backoff bounds. Each failed attempt sleeps a random duration in
// [backoffMin, backoffMax) so contending writers do not retry in step.
const (
	backoffMin = 10 * time.Millisecond
	backoffMax = 40 * time.Millisecond
)

// acquireLock takes the exclusive lock by creating the marker file.
// The marker's mere existence means "locked"; its contents identify the
// writer for debugging and are never parsed. Fails with ErrLockTimeout
// once the timeout passes.
func (s *Store) acquireLock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}

	deadline := time.Now().Add(s.lockTimeout)
	for {
		f, err := os.OpenFile(s.lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			fmt.Fprintf(f, "pid=%d owner=%s acquired=%s\n",
				os.Getpid(), s.owner, time.Now().UTC().Format(time.RFC3339))
			f.Close()
			return nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("creating lock marker %s: %w", s.lockPath, err)
		}

		if time.Now().After(deadline) {
			return errors.Wrap(errors.ErrLockTimeout, "acquiring %s after %s", s.lockPath, s.lockTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockBackoff()):
		}
	}
}

// releaseLock removes the marker. Safe to call when the marker is
// already gone.
func (s *Store) releaseLock() {
	if err := os.Remove(s.lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("Failed to remove lock marker", "path", s.lockPath, "error", err)
	}
}

func lockBackoff() time.Duration {
	return backoffMin + time.Duration(rand.Int63n(int64(backoffMax-backoffMin)))
}
