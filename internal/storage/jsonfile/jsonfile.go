// Package jsonfile implements storage.Store over a single JSON file with
// backup-then-atomic-replace save semantics.
//
// Save protocol: (1) best-effort copy of the current primary to
// parties.json.backup, (2) full serialization to parties.json.tmp,
// (3) atomic rename of the temp file onto the primary. The primary is never
// written in place, so a failed save leaves the last committed state
// intact. Load falls back to the backup when the primary is unreadable or
// corrupt.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sylvanite/partyhub/internal/party"
	"github.com/sylvanite/partyhub/internal/storage"
)

const (
	backupSuffix = ".backup"
	tempSuffix   = ".tmp"
)

var _ storage.Store = (*Store)(nil)

// Store is a file-backed storage.Store.
type Store struct {
	path string
}

// New creates a store writing to path, creating parent directories as
// needed.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{path: path}, nil
}

func (s *Store) Close() error { return nil }

// Save writes the full snapshot set using the backup/tmp/rename protocol.
func (s *Store) Save(ctx context.Context, snapshots []party.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Step 1: keep the last committed state around. Failure here is logged
	// but never fails the save.
	if _, err := os.Stat(s.path); err == nil {
		if err := copyFile(s.path, s.path+backupSuffix); err != nil {
			slog.Warn("Could not create backup before save", "path", s.path, "error", err)
		}
	}

	// Step 2: write the new serialization to a temp file.
	tmpPath := s.path + tempSuffix
	data, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal party data: %w", err)
	}
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	// Step 3: atomic replace. If this fails nothing has been committed.
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}

// Load reads every readable snapshot from the primary file, falling back to
// the backup on read or parse failure. A record that individually fails to
// decode is skipped with a warning.
func (s *Store) Load(ctx context.Context) ([]party.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshots, err := loadFile(s.path)
	if err == nil {
		return snapshots, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	slog.Warn("Primary data file unreadable, trying backup", "path", s.path, "error", err)
	snapshots, backupErr := loadFile(s.path + backupSuffix)
	if backupErr != nil {
		if errors.Is(backupErr, os.ErrNotExist) {
			return nil, fmt.Errorf("load party data: %w", err)
		}
		return nil, fmt.Errorf("load party data (backup also failed: %v): %w", backupErr, err)
	}
	slog.Warn("Recovered party data from backup", "count", len(snapshots))
	return snapshots, nil
}

func loadFile(path string) ([]party.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Decode records one by one so a single malformed entry does not abort
	// the whole load.
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	snapshots := make([]party.Snapshot, 0, len(raw))
	for i, msg := range raw {
		var snap party.Snapshot
		if err := json.Unmarshal(msg, &snap); err != nil {
			slog.Warn("Skipping malformed party record", "index", i, "error", err)
			continue
		}
		if snap.ID == uuid.Nil || snap.Leader == uuid.Nil {
			slog.Warn("Skipping party record with missing identity", "index", i)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
