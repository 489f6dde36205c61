package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// TranscriptStore persists conversations by session ID.
type TranscriptStore interface {
	// Save stores or replaces a transcript.
	Save(ctx context.Context, record domain.TranscriptRecord) error

	// Get returns a transcript. Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, sessionID string) (*domain.TranscriptRecord, error)

	// Delete removes a transcript. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns stored session IDs.
	List(ctx context.Context) ([]string, error)

	// Close releases resources.
	Close() error
}
