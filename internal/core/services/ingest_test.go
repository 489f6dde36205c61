package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/postprocessors"
)

type ingestFixture struct {
	svc       *IngestService
	embedder  *mockEmbeddingService
	index     *memory.VectorIndex
	snapshots *mockSnapshotStore
}

func newIngestFixture(t *testing.T, settings domain.IngestSettings) *ingestFixture {
	t.Helper()
	chunker, err := postprocessors.NewChunker(domain.ChunkingSettings{Size: 4, Overlap: 2})
	require.NoError(t, err)

	f := &ingestFixture{
		embedder: &mockEmbeddingService{vectors: map[string][]float32{
			"ABCD": {1, 0, 0, 0},
			"CDEF": {0, 1, 0, 0},
			"EFGH": {0, 0, 1, 0},
			"GHIJ": {0, 0, 0, 1},
		}, fallback: []float32{1, 1, 1, 1}},
		index:     memory.NewVectorIndex(),
		snapshots: &mockSnapshotStore{},
	}
	registry := NewNormaliserRegistry(&mockNormaliser{formats: []domain.Format{domain.FormatText, domain.FormatMarkdown}})
	f.svc = NewIngestService(registry, chunker, f.embedder, f.index, f.snapshots, settings)
	return f
}

func textUpload(name, content string) *domain.RawDocument {
	return &domain.RawDocument{Filename: name, Content: []byte(content)}
}

func TestIngestService_UploadIndexesChunksInOrder(t *testing.T) {
	tests := []struct {
		name     string
		settings domain.IngestSettings
		batches  int
	}{
		{"single batch", domain.IngestSettings{BatchSize: 32, Concurrency: 1}, 1},
		{"one chunk per batch", domain.IngestSettings{BatchSize: 1, Concurrency: 1}, 4},
		{"parallel batches", domain.IngestSettings{BatchSize: 1, Concurrency: 3}, 4},
		{"uneven batches", domain.IngestSettings{BatchSize: 3, Concurrency: 2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIngestFixture(t, tt.settings)

			result, err := f.svc.Upload(context.Background(), textUpload("letters.txt", "ABCDEFGHIJ"))

			require.NoError(t, err)
			assert.Equal(t, 4, result.ChunksCount)
			assert.Equal(t, "doc-letters", result.Document.ID)
			assert.Len(t, f.embedder.batches, tt.batches)

			entries := f.index.Entries()
			require.Len(t, entries, 4)
			for i, want := range []string{"ABCD", "CDEF", "EFGH", "GHIJ"} {
				assert.Equal(t, want, entries[i].Text)
				assert.Equal(t, f.embedder.vectors[want], entries[i].Vector, "vector of %s", want)
				assert.Equal(t, "doc-letters", entries[i].DocumentID)
				assert.Equal(t, "letters.txt", entries[i].Metadata[domain.MetaFilename])
				assert.Equal(t, "txt", entries[i].Metadata[domain.MetaFormat])
			}
			assert.Equal(t, "0", entries[0].Metadata[domain.MetaPosition])
			assert.Equal(t, "3", entries[3].Metadata[domain.MetaPosition])
			assert.Equal(t, 2, entries[1].OffsetStart)
			assert.Equal(t, 6, entries[1].OffsetEnd)
		})
	}
}

func TestIngestService_UploadRecordsChecksum(t *testing.T) {
	f := newIngestFixture(t, domain.IngestSettings{})

	result, err := f.svc.Upload(context.Background(), textUpload("letters.txt", "ABCDEFGHIJ"))

	require.NoError(t, err)
	sum := sha256.Sum256([]byte("ABCDEFGHIJ"))
	assert.Equal(t, hex.EncodeToString(sum[:]), result.Document.Metadata[domain.MetaChecksum])
}

func TestIngestService_UploadAccumulates(t *testing.T) {
	f := newIngestFixture(t, domain.IngestSettings{})
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, textUpload("a.txt", "ABCDEFGHIJ"))
	require.NoError(t, err)
	_, err = f.svc.Upload(ctx, textUpload("b.md", "ABCD"))
	require.NoError(t, err)

	status, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.DocumentsCount)
	assert.Equal(t, 5, status.ChunksCount)
	assert.Equal(t, 4, status.Dimensions)

	docs, err := f.svc.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.txt", docs[0].Filename)
	assert.Equal(t, "b.md", docs[1].Filename)
}

func TestIngestService_UploadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		raw  *domain.RawDocument
		want error
	}{
		{"nil", nil, domain.ErrInvalidInput},
		{"empty", textUpload("a.txt", ""), domain.ErrInvalidInput},
		{"whitespace only", textUpload("a.txt", "  \n\t "), domain.ErrInvalidInput},
		{"unknown extension", textUpload("a.exe", "ABCD"), domain.ErrUnsupportedFormat},
		{"no extension", textUpload("README", "ABCD"), domain.ErrUnsupportedFormat},
		{"format without normaliser", &domain.RawDocument{
			Filename: "a.pdf", Format: domain.FormatPDF, Content: []byte("ABCD"),
		}, domain.ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIngestFixture(t, domain.IngestSettings{})

			_, err := f.svc.Upload(context.Background(), tt.raw)

			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, f.index.Len())
			assert.Zero(t, f.embedder.calls)
		})
	}
}

func TestIngestService_UnsupportedFormatListsSupported(t *testing.T) {
	f := newIngestFixture(t, domain.IngestSettings{})

	_, err := f.svc.Upload(context.Background(), textUpload("a.exe", "ABCD"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "txt, md")
}

func TestIngestService_EmbeddingFailureLeavesIndexUnchanged(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"provider error", errors.New("connection refused")},
		{"typed error", domain.NewError(domain.KindEmbeddingUnavailable, "rate limited", nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIngestFixture(t, domain.IngestSettings{BatchSize: 1, Concurrency: 2})
			_, err := f.svc.Upload(context.Background(), textUpload("a.txt", "ABCD"))
			require.NoError(t, err)
			saves := f.snapshots.saves

			f.embedder.embedErr = tt.err
			_, err = f.svc.Upload(context.Background(), textUpload("b.txt", "ABCDEFGHIJ"))

			assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
			assert.Equal(t, 1, f.index.Len())
			docs, _ := f.svc.Documents(context.Background())
			assert.Len(t, docs, 1)
			assert.Equal(t, saves, f.snapshots.saves)
		})
	}
}

func TestIngestService_NoEmbedder(t *testing.T) {
	chunker, err := postprocessors.NewChunker(domain.ChunkingSettings{})
	require.NoError(t, err)
	registry := NewNormaliserRegistry(&mockNormaliser{formats: []domain.Format{domain.FormatText}})
	svc := NewIngestService(registry, chunker, nil, memory.NewVectorIndex(), nil, domain.IngestSettings{})

	_, err = svc.Upload(context.Background(), textUpload("a.txt", "hello"))

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestIngestService_DimensionMismatch(t *testing.T) {
	f := newIngestFixture(t, domain.IngestSettings{})
	ctx := context.Background()
	_, err := f.svc.Upload(ctx, textUpload("a.txt", "ABCD"))
	require.NoError(t, err)

	f.embedder.vectors = nil
	f.embedder.fallback = []float32{1, 0, 0}
	_, err = f.svc.Upload(ctx, textUpload("b.txt", "something else"))

	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 1, f.index.Len())
}

func TestIngestService_SnapshotAndRestore(t *testing.T) {
	f := newIngestFixture(t, domain.IngestSettings{})
	ctx := context.Background()
	_, err := f.svc.Upload(ctx, textUpload("letters.txt", "ABCDEFGHIJ"))
	require.NoError(t, err)

	require.Equal(t, 1, f.snapshots.saves)
	assert.Len(t, f.snapshots.snapshot.Documents, 1)
	assert.Len(t, f.snapshots.snapshot.Entries, 4)

	chunker, err := postprocessors.NewChunker(domain.ChunkingSettings{})
	require.NoError(t, err)
	index := memory.NewVectorIndex()
	restored := NewIngestService(NewNormaliserRegistry(), chunker, f.embedder, index, f.snapshots, domain.IngestSettings{})
	require.NoError(t, restored.Restore(ctx))

	status, err := restored.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.DocumentsCount)
	assert.Equal(t, 4, status.ChunksCount)
	assert.Equal(t, f.index.Entries(), index.Entries())
}

func TestIngestService_RestoreErrors(t *testing.T) {
	f := newIngestFixture(t, domain.IngestSettings{})
	f.snapshots.loadErr = errors.New("corrupt file")

	err := f.svc.Restore(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt file")
}

func TestIngestService_SnapshotSaveFailureKeepsUpload(t *testing.T) {
	f := newIngestFixture(t, domain.IngestSettings{})
	f.snapshots.saveErr = errors.New("read-only filesystem")

	_, err := f.svc.Upload(context.Background(), textUpload("a.txt", "ABCD"))

	require.NoError(t, err)
	assert.Equal(t, 1, f.index.Len())
}

func TestIngestService_Reset(t *testing.T) {
	f := newIngestFixture(t, domain.IngestSettings{})
	ctx := context.Background()
	_, err := f.svc.Upload(ctx, textUpload("a.txt", "ABCDEFGHIJ"))
	require.NoError(t, err)

	require.NoError(t, f.svc.Reset(ctx))

	status, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.DocumentsCount)
	assert.Zero(t, status.ChunksCount)
	assert.Zero(t, status.Dimensions)
	assert.Empty(t, f.snapshots.snapshot.Entries)

	// A new embedding dimension is accepted after a reset.
	f.embedder.vectors = nil
	f.embedder.fallback = []float32{0.5, 0.5}
	_, err = f.svc.Upload(ctx, textUpload("b.txt", "fresh start"))
	assert.NoError(t, err)
}

func TestIngestService_StatusChatReady(t *testing.T) {
	f := newIngestFixture(t, domain.IngestSettings{})
	ctx := context.Background()
	f.svc.SetChatModel("llama3")

	status, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.ChatReady, "empty corpus")
	assert.Equal(t, "mock-embed", status.EmbeddingModel)
	assert.Equal(t, "llama3", status.LLMModel)
	assert.Equal(t, []domain.Format{domain.FormatText, domain.FormatMarkdown}, status.SupportedFormats)

	_, err = f.svc.Upload(ctx, textUpload("a.txt", "ABCD"))
	require.NoError(t, err)
	status, err = f.svc.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.ChatReady)

	f.svc.SetChatModel("")
	status, err = f.svc.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.ChatReady, "no chat model")
}
