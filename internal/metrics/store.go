package metrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	snapshotFileName = "metrics.json"
	lockFileName     = ".metrics.lock"
)

// Store persists counter snapshots to a JSON file shared between hook
// processes. A file lock serializes concurrent hook invocations.
type Store struct {
	dir  string
	lock *flock.Flock
}

// NewStore creates a store rooted at dir. The directory is created on first
// write if it does not exist.
func NewStore(dir string) *Store {
	return &Store{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, lockFileName)),
	}
}

// snapshotPath returns the path of the snapshot file.
func (s *Store) snapshotPath() string {
	return filepath.Join(s.dir, snapshotFileName)
}

// Merge adds the given snapshot's counters into the persisted snapshot.
func (s *Store) Merge(snapshot Snapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire metrics lock: %w", err)
	}
	defer s.lock.Unlock()

	persisted, err := s.read()
	if err != nil {
		return err
	}

	persisted.Add(snapshot)

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(s.snapshotPath(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

// Load returns the persisted snapshot, or a zero snapshot if none exists.
func (s *Store) Load() (Snapshot, error) {
	if _, err := os.Stat(s.dir); errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err := s.lock.RLock(); err != nil {
		return Snapshot{}, fmt.Errorf("failed to acquire metrics lock: %w", err)
	}
	defer s.lock.Unlock()

	return s.read()
}

// Reset removes the persisted snapshot file.
func (s *Store) Reset() error {
	if _, err := os.Stat(s.dir); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire metrics lock: %w", err)
	}
	defer s.lock.Unlock()

	if err := os.Remove(s.snapshotPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove metrics file: %w", err)
	}
	return nil
}

// read loads the snapshot file without locking; callers hold the lock.
func (s *Store) read() (Snapshot, error) {
	data, err := os.ReadFile(s.snapshotPath())
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read metrics file: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse metrics file: %w", err)
	}
	return snapshot, nil
}
