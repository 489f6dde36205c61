package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.RetrievalService = (*Retriever)(nil)

// Retriever embeds queries and looks them up in the vector index.
type Retriever struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	defaultK int
	timeout  time.Duration
}

// NewRetriever creates a retriever.
// The embedder may be nil, in which case every query fails with
// domain.ErrEmbeddingUnavailable.
func NewRetriever(
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	settings domain.RetrievalSettings,
) *Retriever {
	k := settings.TopK
	if k <= 0 {
		k = domain.DefaultTopK
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		defaultK: k,
		timeout:  settings.EmbedTimeout,
	}
}

// Retrieve returns up to k chunks most similar to query.
func (r *Retriever) Retrieve(
	ctx context.Context, query string, k int, filter domain.SearchFilter,
) ([]domain.RetrievedChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = r.defaultK
	}

	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := r.index.Search(ctx, vec, k, filter)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	chunks := make([]domain.RetrievedChunk, len(hits))
	for i, h := range hits {
		chunks[i] = domain.RetrievedChunk{
			ChunkID:    h.Entry.ChunkID,
			DocumentID: h.Entry.DocumentID,
			Source:     h.Entry.Metadata[domain.MetaFilename],
			Text:       h.Entry.Text,
			Similarity: h.Similarity,
			Metadata:   h.Entry.Metadata,
		}
	}
	if len(chunks) > 0 {
		logger.Debug("Retrieved %d/%d chunks, top similarity %.4f", len(chunks), k, chunks[0].Similarity)
	} else {
		logger.Debug("Retrieved no chunks (index size %d)", r.index.Len())
	}
	return chunks, nil
}

// embedQuery embeds the query within the configured timeout.
// Every failure is reported as domain.ErrEmbeddingUnavailable.
func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r.embedder == nil {
		return nil, domain.NewError(domain.KindEmbeddingUnavailable, "no embedding provider configured", nil)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return nil, err
		}
		return nil, domain.NewError(domain.KindEmbeddingUnavailable, "embed query", err)
	}
	return vec, nil
}
