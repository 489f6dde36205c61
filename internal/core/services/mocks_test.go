package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Texts found in vectors embed to their entry; everything else embeds to fallback.
type mockEmbeddingService struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	embedErr error
	calls    int
	batches  [][]string
}

func (m *mockEmbeddingService) vectorFor(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	if m.fallback != nil {
		return m.fallback
	}
	return []float32{1, 0}
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.batches = append(m.batches, append([]string(nil), texts...))
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectorFor(t)
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int              { return len(m.vectorFor("")) }
func (m *mockEmbeddingService) ModelName() string            { return "mock-embed" }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                 { return nil }

// mockLLMService implements driven.LLMService for testing.
type mockLLMService struct {
	reply    string
	chatErr  error
	calls    int
	messages []driven.ChatMessage
	opts     driven.ChatOptions
}

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.calls++
	m.messages = messages
	m.opts = opts
	if m.chatErr != nil {
		return "", m.chatErr
	}
	return m.reply, nil
}

func (m *mockLLMService) ModelName() string            { return "mock-llm" }
func (m *mockLLMService) Ping(_ context.Context) error { return nil }
func (m *mockLLMService) Close() error                 { return nil }

// body returns the user prompt of the last call.
func (m *mockLLMService) body() string {
	for _, msg := range m.messages {
		if msg.Role == driven.ChatRoleUser {
			return msg.Content
		}
	}
	return ""
}

// mockTool implements driven.Tool for testing.
type mockTool struct {
	name   string
	output string
	err    error
	args   []map[string]string
}

func (m *mockTool) Name() string        { return m.name }
func (m *mockTool) Description() string { return "mock " + m.name }

func (m *mockTool) Invoke(_ context.Context, args map[string]string) (string, error) {
	m.args = append(m.args, args)
	if m.err != nil {
		return "", m.err
	}
	return m.output, nil
}

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("prompt not found")
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// mockTranscriptStore implements driven.TranscriptStore for testing.
type mockTranscriptStore struct {
	mu      sync.Mutex
	records map[string]domain.TranscriptRecord
	saveErr error
	saves   int
}

func newMockTranscriptStore() *mockTranscriptStore {
	return &mockTranscriptStore{records: make(map[string]domain.TranscriptRecord)}
}

func (m *mockTranscriptStore) Save(_ context.Context, record domain.TranscriptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records[record.SessionID] = record
	return nil
}

func (m *mockTranscriptStore) Get(_ context.Context, sessionID string) (*domain.TranscriptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (m *mockTranscriptStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, sessionID)
	return nil
}

func (m *mockTranscriptStore) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockTranscriptStore) Close() error { return nil }

// mockSnapshotStore implements driven.IndexSnapshotStore for testing.
type mockSnapshotStore struct {
	snapshot domain.IndexSnapshot
	saveErr  error
	loadErr  error
	saves    int
}

func (m *mockSnapshotStore) Save(_ context.Context, snapshot domain.IndexSnapshot) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snapshot = snapshot
	return nil
}

func (m *mockSnapshotStore) Load(_ context.Context) (domain.IndexSnapshot, error) {
	if m.loadErr != nil {
		return domain.IndexSnapshot{}, m.loadErr
	}
	return m.snapshot, nil
}

func (m *mockSnapshotStore) Close() error { return nil }

// mockNormaliser implements driven.Normaliser for testing.
// Content is passed through as text.
type mockNormaliser struct {
	formats []domain.Format
	err     error
}

func (m *mockNormaliser) Formats() []domain.Format { return m.formats }

func (m *mockNormaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Document{
		ID:       "doc-" + strings.TrimSuffix(raw.Filename, "."+raw.Format.String()),
		Filename: raw.Filename,
		Title:    raw.Filename,
		Format:   raw.Format,
		Content:  string(raw.Content),
	}, nil
}

// mockRetriever implements driving.RetrievalService for testing.
type mockRetriever struct {
	chunks []domain.RetrievedChunk
	err    error
	k      int
	calls  int
}

func (m *mockRetriever) Retrieve(
	_ context.Context, _ string, k int, _ domain.SearchFilter,
) ([]domain.RetrievedChunk, error) {
	m.calls++
	m.k = k
	if m.err != nil {
		return nil, m.err
	}
	return m.chunks, nil
}
