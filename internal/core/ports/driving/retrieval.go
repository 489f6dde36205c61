package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// RetrievalService finds the chunks most relevant to a query.
type RetrievalService interface {
	// Retrieve embeds query and returns up to k chunks, most similar first.
	// A k of zero or less uses the configured default.
	Retrieve(ctx context.Context, query string, k int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error)
}
