// Package bolt persists conversation transcripts in a BoltDB file.
// Each session is one JSON value in the "transcripts" bucket, keyed by session ID.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure TranscriptStore implements the interface.
var _ driven.TranscriptStore = (*TranscriptStore)(nil)

// FileName is the database file name inside the data directory.
const FileName = "transcripts.bolt"

var bucketTranscripts = []byte("transcripts")

// TranscriptStore is a BoltDB-backed transcript store.
type TranscriptStore struct {
	db   *bolt.DB
	path string
}

// NewTranscriptStore opens (or creates) dataDir/transcripts.bolt.
func NewTranscriptStore(dataDir string) (*TranscriptStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docchat", "data")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, FileName)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening transcript store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucketTranscripts)
		return e
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating transcripts bucket: %w", err)
	}

	return &TranscriptStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *TranscriptStore) Path() string {
	return s.path
}

// Save stores or replaces a transcript.
func (s *TranscriptStore) Save(_ context.Context, record domain.TranscriptRecord) error {
	if record.SessionID == "" {
		return fmt.Errorf("%w: transcript without session id", domain.ErrInvalidInput)
	}
	enc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTranscripts).Put([]byte(record.SessionID), enc)
	})
}

// Get returns a transcript by session ID.
func (s *TranscriptStore) Get(_ context.Context, sessionID string) (*domain.TranscriptRecord, error) {
	var rec *domain.TranscriptRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketTranscripts).Get([]byte(sessionID))
		if v == nil {
			return domain.Errorf(domain.KindNotFound, "transcript %q not found", sessionID)
		}
		var r domain.TranscriptRecord
		if e := json.Unmarshal(v, &r); e != nil {
			return fmt.Errorf("unmarshal transcript %s: %w", sessionID, e)
		}
		rec = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes a transcript.
func (s *TranscriptStore) Delete(_ context.Context, sessionID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTranscripts).Delete([]byte(sessionID))
	})
}

// List returns stored session IDs in key order.
func (s *TranscriptStore) List(_ context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTranscripts).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

// Close closes the database.
func (s *TranscriptStore) Close() error {
	return s.db.Close()
}
