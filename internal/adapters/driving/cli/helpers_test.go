package cli

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/connectors/filesystem"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/core/services"
)

type mockIngestService struct {
	mu        sync.Mutex
	uploaded  []string
	docs      []domain.Document
	status    *driving.CorpusStatus
	uploadErr error
	resets    int
}

func (m *mockIngestService) Upload(_ context.Context, raw *domain.RawDocument) (*driving.UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	m.uploaded = append(m.uploaded, raw.Filename)
	doc := domain.Document{
		ID:       raw.Filename,
		Filename: raw.Filename,
		Format:   raw.Format,
		Content:  string(raw.Content),
		Metadata: map[string]string{domain.MetaChecksum: filesystem.Checksum(raw.Content)},
	}
	m.docs = append(m.docs, doc)
	return &driving.UploadResult{Document: doc, ChunksCount: 2}, nil
}

func (m *mockIngestService) Status(_ context.Context) (*driving.CorpusStatus, error) {
	if m.status != nil {
		return m.status, nil
	}
	return &driving.CorpusStatus{SupportedFormats: domain.AllFormats()}, nil
}

func (m *mockIngestService) Documents(_ context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Document(nil), m.docs...), nil
}

func (m *mockIngestService) Reset(_ context.Context) error {
	m.resets++
	m.docs = nil
	return nil
}

func (m *mockIngestService) Uploaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.uploaded...)
}

type mockChatService struct {
	sent    []string
	replies []domain.TurnResult
	sendErr error
	resets  []string
}

func (m *mockChatService) Send(_ context.Context, sessionID, message string) (*driving.ChatResult, error) {
	m.sent = append(m.sent, sessionID+"|"+message)
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	if sessionID == "" {
		sessionID = "session-1"
	}
	turn := domain.TurnResult{Reply: domain.AssistantMessage{Content: "reply to " + message}}
	if len(m.replies) > 0 {
		turn = m.replies[0]
		m.replies = m.replies[1:]
	}
	return &driving.ChatResult{SessionID: sessionID, TurnResult: turn}, nil
}

func (m *mockChatService) State(_ context.Context, _ string) (*domain.ConversationState, error) {
	return nil, domain.ErrNotFound
}

func (m *mockChatService) Reset(_ context.Context, sessionID string) error {
	if sessionID == "missing" {
		return domain.ErrNotFound
	}
	m.resets = append(m.resets, sessionID)
	return nil
}

type mockRetrievalService struct {
	query   string
	k       int
	filter  domain.SearchFilter
	results []domain.RetrievedChunk
	err     error
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context, query string, k int, filter domain.SearchFilter,
) ([]domain.RetrievedChunk, error) {
	m.query, m.k, m.filter = query, k, filter
	return m.results, m.err
}

type mockSuggestionService struct {
	prompts []string
	err     error
}

func (m *mockSuggestionService) Suggestions(_ context.Context) ([]string, error) {
	return m.prompts, m.err
}

var errMock = errors.New("mock failure")

// testServices are the mocks installed by setupTestServices.
type testServices struct {
	ingest      *mockIngestService
	chat        *mockChatService
	retrieval   *mockRetrievalService
	suggestions *mockSuggestionService
	settings    *services.SettingsService
}

// setupTestServices installs mocks and resets flag state. Call the returned
// function to restore the previous services.
func setupTestServices() (*testServices, func()) {
	oldIngest, oldChat, oldRetrieval := ingestService, chatService, retrievalService
	oldSuggestions, oldSettings, oldLoader := suggestionService, settingsService, loader

	settings := services.NewSettingsService(memory.NewConfigStore(), nil)
	settings.SetEnvLookup(func(string) string { return "" })

	ts := &testServices{
		ingest:      &mockIngestService{},
		chat:        &mockChatService{},
		retrieval:   &mockRetrievalService{},
		suggestions: &mockSuggestionService{prompts: []string{"What is this about?"}},
		settings:    settings,
	}
	ingestService = ts.ingest
	chatService = ts.chat
	retrievalService = ts.retrieval
	suggestionService = ts.suggestions
	settingsService = ts.settings
	resetLoader(nil)
	resetFlags()

	return ts, func() {
		ingestService, chatService, retrievalService = oldIngest, oldChat, oldRetrieval
		suggestionService, settingsService = oldSuggestions, oldSettings
		resetLoader(oldLoader)
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}
}

// clearServices removes every service so commands report them missing.
func clearServices() func() {
	_, cleanup := setupTestServices()
	ingestService = nil
	chatService = nil
	retrievalService = nil
	suggestionService = nil
	settingsService = nil
	return cleanup
}

func resetLoader(l Loader) {
	loader = l
	loadOnce = sync.Once{}
	loadErr = nil
	closeFuncs = nil
}

func resetFlags() {
	searchLimit = domain.DefaultTopK
	searchDocument = ""
	searchJSON = false
	statusJSON = false
	resetSession = ""
	resetCorpus = false
	chatSession = ""
	chatMessage = ""
	ingestWatch = false
	serveAddr = ""
	serveWatch = ""
	versionJSON = false
	mcpPort = 0
	mcpAddr = ""
	verbose = false
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
