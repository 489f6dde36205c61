package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// IngestService turns uploaded files into indexed chunks.
type IngestService interface {
	// Upload normalises, chunks, embeds and indexes a document.
	// Nothing is indexed if any step fails.
	Upload(ctx context.Context, raw *domain.RawDocument) (*UploadResult, error)

	// Status reports the state of the corpus.
	Status(ctx context.Context) (*CorpusStatus, error)

	// Documents lists ingested documents in upload order.
	Documents(ctx context.Context) ([]domain.Document, error)

	// Reset clears the corpus and its snapshot.
	Reset(ctx context.Context) error
}

// UploadResult describes a successful upload.
type UploadResult struct {
	Document    domain.Document
	ChunksCount int
	Duration    time.Duration
}

// CorpusStatus summarises the index.
type CorpusStatus struct {
	DocumentsCount   int
	ChunksCount      int
	Dimensions       int
	ChatReady        bool
	SupportedFormats []domain.Format
	EmbeddingModel   string
	LLMModel         string
}
