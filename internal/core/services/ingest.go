package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// Chunker splits a document into chunks.
type Chunker interface {
	Chunk(doc *domain.Document) ([]domain.Chunk, error)
}

// IngestService turns uploaded files into indexed chunks.
//
// An upload is normalised, chunked and embedded before anything touches
// the index. Embedding requests run in parallel batches and the vectors
// are put back in chunk order. The entries of one document are inserted
// in a single batch, so a failed upload leaves the index unchanged.
type IngestService struct {
	registry  driven.NormaliserRegistry
	chunker   Chunker
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	snapshots driven.IndexSnapshotStore

	batchSize   int
	concurrency int
	chatModel   string

	// mu serialises index writes with the document list and snapshot.
	mu   sync.Mutex
	docs []domain.Document
}

// NewIngestService creates an ingest service.
// The snapshot store is optional (can be nil).
func NewIngestService(
	registry driven.NormaliserRegistry,
	chunker Chunker,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	snapshots driven.IndexSnapshotStore,
	settings domain.IngestSettings,
) *IngestService {
	batch := settings.BatchSize
	if batch <= 0 {
		batch = 32
	}
	workers := settings.Concurrency
	if workers <= 0 {
		workers = 1
	}
	return &IngestService{
		registry:    registry,
		chunker:     chunker,
		embedder:    embedder,
		index:       index,
		snapshots:   snapshots,
		batchSize:   batch,
		concurrency: workers,
	}
}

// SetChatModel records the model answering questions, reported by Status.
// An empty name means chat is not available.
func (s *IngestService) SetChatModel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatModel = name
}

// Upload normalises, chunks, embeds and indexes a document.
func (s *IngestService) Upload(ctx context.Context, raw *domain.RawDocument) (*driving.UploadResult, error) {
	logger.Section("Document Upload")
	start := time.Now()

	if err := s.prepare(raw); err != nil {
		return nil, err
	}
	logger.Debug("File: %s, format: %s, %d bytes", raw.Filename, raw.Format, len(raw.Content))

	doc, err := s.registry.Normalise(ctx, raw)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, domain.NewError(domain.KindInvalidInput, "no text content found in the document", nil)
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]string)
	}
	sum := sha256.Sum256(raw.Content)
	doc.Metadata[domain.MetaChecksum] = hex.EncodeToString(sum[:])

	chunks, err := s.chunker.Chunk(doc)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", raw.Filename, err)
	}
	logger.Debug("Document %s split into %d chunks", doc.ID, len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.IndexEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = domain.IndexEntry{
			ChunkID:     c.ID,
			DocumentID:  doc.ID,
			Text:        c.Content,
			Vector:      vectors[i],
			OffsetStart: c.Start,
			OffsetEnd:   c.End,
			Metadata: map[string]string{
				domain.MetaFilename: doc.Filename,
				domain.MetaFormat:   doc.Format.String(),
				domain.MetaPosition: strconv.Itoa(c.Position),
				domain.MetaTitle:    doc.Title,
			},
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.InsertBatch(ctx, entries); err != nil {
		return nil, fmt.Errorf("index %s: %w", raw.Filename, err)
	}
	s.docs = append(s.docs, *doc)
	s.saveSnapshot(ctx)

	elapsed := time.Since(start)
	logger.Info("Indexed %s: %d chunks in %s", doc.Filename, len(chunks), elapsed.Round(time.Millisecond))
	return &driving.UploadResult{
		Document:    *doc,
		ChunksCount: len(chunks),
		Duration:    elapsed,
	}, nil
}

// prepare validates raw and resolves its format from the filename when unset.
func (s *IngestService) prepare(raw *domain.RawDocument) error {
	if raw == nil || len(raw.Content) == 0 {
		return domain.NewError(domain.KindInvalidInput, "no file content provided", nil)
	}
	if raw.Format == "" {
		f, ok := domain.FormatFromFilename(raw.Filename)
		if !ok {
			return domain.Errorf(domain.KindUnsupportedFormat,
				"cannot determine format of %q, supported formats: %s", raw.Filename, formatList(s.registry.Formats()))
		}
		raw.Format = f
	}
	return nil
}

// embedAll embeds texts in batches on a bounded number of workers.
// The result is in the same order as texts.
func (s *IngestService) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if s.embedder == nil {
		return nil, domain.NewError(domain.KindEmbeddingUnavailable, "no embedding provider configured", nil)
	}

	vectors := make([][]float32, len(texts))
	type batch struct{ start, end int }
	batches := make(chan batch)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	workers := min(s.concurrency, (len(texts)+s.batchSize-1)/s.batchSize)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range batches {
				got, err := s.embedder.EmbedBatch(ctx, texts[b.start:b.end])
				if err != nil {
					fail(err)
					continue
				}
				if len(got) != b.end-b.start {
					fail(domain.Errorf(domain.KindEmbeddingUnavailable,
						"provider returned %d vectors for %d texts", len(got), b.end-b.start))
					continue
				}
				copy(vectors[b.start:b.end], got)
			}
		}()
	}

feed:
	for start := 0; start < len(texts); start += s.batchSize {
		select {
		case batches <- batch{start: start, end: min(start+s.batchSize, len(texts))}:
		case <-ctx.Done():
			break feed
		}
	}
	close(batches)
	wg.Wait()

	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		if errors.Is(firstErr, domain.ErrEmbeddingUnavailable) {
			return nil, firstErr
		}
		return nil, domain.NewError(domain.KindEmbeddingUnavailable, "embed chunks", firstErr)
	}
	logger.Debug("Embedded %d chunks in %d batches", len(texts), (len(texts)+s.batchSize-1)/s.batchSize)
	return vectors, nil
}

// Restore loads the persisted corpus into the index.
func (s *IngestService) Restore(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}
	snap, err := s.snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.index.Restore(ctx, snap.Entries); err != nil {
		return fmt.Errorf("restore index: %w", err)
	}
	s.docs = append([]domain.Document(nil), snap.Documents...)
	if len(snap.Entries) > 0 {
		logger.Info("Restored %d documents, %d chunks", len(snap.Documents), len(snap.Entries))
	}
	return nil
}

// Status reports the state of the corpus.
func (s *IngestService) Status(_ context.Context) (*driving.CorpusStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunks := s.index.Len()
	status := &driving.CorpusStatus{
		DocumentsCount:   len(s.docs),
		ChunksCount:      chunks,
		Dimensions:       s.index.Dimensions(),
		ChatReady:        chunks > 0 && s.chatModel != "",
		SupportedFormats: s.registry.Formats(),
		LLMModel:         s.chatModel,
	}
	if s.embedder != nil {
		status.EmbeddingModel = s.embedder.ModelName()
	}
	return status, nil
}

// Documents lists ingested documents in upload order.
func (s *IngestService) Documents(_ context.Context) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Document(nil), s.docs...), nil
}

// Reset clears the corpus and its snapshot.
func (s *IngestService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index.Reset()
	s.docs = nil
	if s.snapshots != nil {
		if err := s.snapshots.Save(ctx, domain.IndexSnapshot{}); err != nil {
			return fmt.Errorf("clear snapshot: %w", err)
		}
	}
	logger.Info("Corpus cleared")
	return nil
}

// saveSnapshot persists the corpus. The caller holds s.mu.
func (s *IngestService) saveSnapshot(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	snap := domain.IndexSnapshot{
		Documents: append([]domain.Document(nil), s.docs...),
		Entries:   s.index.Entries(),
	}
	if err := s.snapshots.Save(ctx, snap); err != nil {
		logger.Warn("Saving index snapshot: %v", err)
	}
}

func formatList(formats []domain.Format) string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.String()
	}
	return strings.Join(names, ", ")
}
