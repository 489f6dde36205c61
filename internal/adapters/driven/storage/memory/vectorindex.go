package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an append-only in-memory vector index with exact search.
// Search is a linear scan; writers hold the lock for the whole mutation so
// readers never observe a partially stored entry.
type VectorIndex struct {
	mu      sync.RWMutex
	entries []domain.IndexEntry
	dim     int
}

// NewVectorIndex creates an empty vector index.
// The dimension is fixed by the first inserted vector.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{}
}

// Insert appends an entry.
func (v *VectorIndex) Insert(ctx context.Context, entry domain.IndexEntry) error {
	return v.InsertBatch(ctx, []domain.IndexEntry{entry})
}

// InsertBatch appends entries. Either all entries are stored or none.
func (v *VectorIndex) InsertBatch(_ context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	dim, err := checkDimensions(v.dim, entries)
	if err != nil {
		return err
	}

	stored := make([]domain.IndexEntry, len(entries))
	for i := range entries {
		stored[i] = entries[i].Clone()
	}
	v.entries = append(v.entries, stored...)
	v.dim = dim
	return nil
}

// Search returns the k entries most similar to query.
// Results are ordered by descending similarity; ties keep insertion order.
func (v *VectorIndex) Search(
	_ context.Context,
	query []float32,
	k int,
	filter domain.SearchFilter,
) ([]domain.VectorHit, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if len(v.entries) == 0 || k <= 0 {
		return []domain.VectorHit{}, nil
	}
	if len(query) != v.dim {
		return nil, domain.Errorf(domain.KindDimensionMismatch,
			"query vector has %d dimensions, index has %d", len(query), v.dim)
	}

	hits := make([]domain.VectorHit, 0, len(v.entries))
	for i := range v.entries {
		if !filter.Matches(v.entries[i]) {
			continue
		}
		hits = append(hits, domain.VectorHit{
			Entry:      v.entries[i],
			Similarity: cosineSimilarity(query, v.entries[i].Vector),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	for i := range hits {
		hits[i].Entry = hits[i].Entry.Clone()
	}

	if len(hits) > 0 {
		logger.Debug("vector search: %d candidates, top similarity %.4f", len(v.entries), hits[0].Similarity)
	}
	return hits, nil
}

// Len returns the number of entries.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

// Dimensions returns the vector dimension, or 0 when empty.
func (v *VectorIndex) Dimensions() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dim
}

// Entries returns a copy of all entries in insertion order.
func (v *VectorIndex) Entries() []domain.IndexEntry {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]domain.IndexEntry, len(v.entries))
	for i := range v.entries {
		out[i] = v.entries[i].Clone()
	}
	return out
}

// Restore replaces the index contents with entries.
// On error the existing contents are kept.
func (v *VectorIndex) Restore(_ context.Context, entries []domain.IndexEntry) error {
	dim, err := checkDimensions(0, entries)
	if err != nil {
		return err
	}

	stored := make([]domain.IndexEntry, len(entries))
	for i := range entries {
		stored[i] = entries[i].Clone()
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = stored
	v.dim = dim
	return nil
}

// Reset removes every entry.
func (v *VectorIndex) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = nil
	v.dim = 0
}

// checkDimensions validates that every vector has the same non-zero length,
// equal to dim when dim is set. It returns the resulting index dimension.
func checkDimensions(dim int, entries []domain.IndexEntry) (int, error) {
	for i := range entries {
		n := len(entries[i].Vector)
		if n == 0 {
			return 0, domain.Errorf(domain.KindInvalidInput, "entry %d has an empty vector", i)
		}
		if dim == 0 {
			dim = n
			continue
		}
		if n != dim {
			return 0, domain.Errorf(domain.KindDimensionMismatch,
				"entry %d has %d dimensions, index has %d", i, n, dim)
		}
	}
	return dim, nil
}
