// Package jsonfile persists index snapshots as a single JSON document.
//
// The file holds {"documents": [...], "records": [...]} where each record is
// {doc_id, chunk_text, vector, offset_start, offset_end} plus chunk_id and
// metadata. Writes go to a temporary file that is renamed over the target,
// so a crash never leaves a truncated snapshot.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.IndexSnapshotStore = (*Store)(nil)

// FileName is the snapshot file name inside the data directory.
const FileName = "index.json"

// Store is a JSON file snapshot store.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store writing to dataDir/index.json.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docchat", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{path: filepath.Join(dataDir, FileName)}, nil
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// Save writes the snapshot atomically.
func (s *Store) Save(_ context.Context, snapshot domain.IndexSnapshot) error {
	if snapshot.Documents == nil {
		snapshot.Documents = []domain.Document{}
	}
	if snapshot.Entries == nil {
		snapshot.Entries = []domain.IndexEntry{}
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".index-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("chmod snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot. A missing file loads as an empty snapshot.
func (s *Store) Load(_ context.Context) (domain.IndexSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snapshot domain.IndexSnapshot
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return snapshot, nil
	}
	if err != nil {
		return snapshot, fmt.Errorf("read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return snapshot, fmt.Errorf("%w: corrupt snapshot %s: %w", domain.ErrInvalidInput, s.path, err)
	}
	return snapshot, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
