package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// VectorIndex stores index entries and answers similarity queries.
// Implementations must be safe for concurrent use: an entry is visible to
// Search only once it is fully stored.
type VectorIndex interface {
	// Insert appends an entry. It fails with domain.ErrDimensionMismatch
	// when the vector length differs from the index dimension.
	Insert(ctx context.Context, entry domain.IndexEntry) error

	// InsertBatch appends entries atomically: either all are stored or none.
	InsertBatch(ctx context.Context, entries []domain.IndexEntry) error

	// Search returns up to k entries most similar to query, sorted by
	// descending similarity with ties in insertion order.
	// An empty index yields an empty result, not an error.
	Search(ctx context.Context, query []float32, k int, filter domain.SearchFilter) ([]domain.VectorHit, error)

	// Len returns the number of entries.
	Len() int

	// Dimensions returns the vector dimension, or 0 when empty.
	Dimensions() int

	// Entries returns a copy of all entries in insertion order.
	Entries() []domain.IndexEntry

	// Restore replaces the contents with entries.
	Restore(ctx context.Context, entries []domain.IndexEntry) error

	// Reset removes every entry.
	Reset()
}

// IndexSnapshotStore persists the corpus between runs.
type IndexSnapshotStore interface {
	// Save replaces the stored snapshot.
	Save(ctx context.Context, snapshot domain.IndexSnapshot) error

	// Load returns the stored snapshot. A missing snapshot loads as empty.
	Load(ctx context.Context) (domain.IndexSnapshot, error)

	// Close releases resources.
	Close() error
}
