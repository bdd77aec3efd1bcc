package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SnapshotStore loads and saves the single JSON snapshot document.
//
// Persistence failures are never fatal to the game: Load falls back to an
// empty snapshot when the file is absent, empty, or corrupt, and Save errors
// are expected to be logged by the caller rather than propagated to clients.
type SnapshotStore struct {
	path string

	mu sync.Mutex
}

func NewSnapshotStore(path string) (*SnapshotStore, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot path must be set")
	}

	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}

	return &SnapshotStore{path: path}, nil
}

// Load reads the snapshot file. A missing or empty file yields a default
// snapshot. A file that fails to parse is preserved under a timestamped
// name before defaults are returned, so bad data is never silently lost.
func (s *SnapshotStore) Load() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("reading snapshot file", "path", s.path, "error", err)
		}
		return DefaultSnapshot()
	}
	if len(data) == 0 {
		return DefaultSnapshot()
	}

	var snap Snapshot
	err = json.Unmarshal(data, &snap)
	if err != nil {
		s.preserveCorrupt(err)
		return DefaultSnapshot()
	}

	if err := snap.Validate(); err != nil {
		slog.Warn("validating snapshot", "path", s.path, "error", err)
		return DefaultSnapshot()
	}

	return &snap
}

// Save writes the full snapshot document. The previous file is copied to a
// .backup sibling first; backup failures are logged but do not block the save.
func (s *SnapshotStore) Save(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}

	if prev, err := os.ReadFile(s.path); err == nil {
		if err := os.WriteFile(s.backupPath(), prev, 0644); err != nil {
			slog.Warn("writing snapshot backup", "path", s.backupPath(), "error", err)
		}
	}

	return atomicWrite(s.path, data, 0644)
}

// BackupPath returns the path the previous snapshot is copied to on save.
func (s *SnapshotStore) BackupPath() string {
	return s.backupPath()
}

func (s *SnapshotStore) backupPath() string {
	return s.path + ".backup"
}

// preserveCorrupt renames an unparseable snapshot file out of the way under a
// timestamped name so the next save does not overwrite the evidence.
func (s *SnapshotStore) preserveCorrupt(cause error) {
	corruptPath := fmt.Sprintf("%s.%s.corrupt", s.path, time.Now().UTC().Format("20060102T150405"))
	if err := os.Rename(s.path, corruptPath); err != nil {
		slog.Error("preserving corrupt snapshot", "path", s.path, "error", err)
		return
	}
	slog.Warn("snapshot file failed to parse, starting from defaults",
		"path", s.path, "preserved", corruptPath, "error", cause)
}

// atomicWrite writes data to a temp file then renames it to the target path.
// This prevents partial or empty files if the process is interrupted.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		if removeErr := os.Remove(tmp); removeErr != nil {
			slog.Warn("failed to remove temp file after rename failure", "path", tmp, "error", removeErr)
		}
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
