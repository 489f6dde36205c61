package httpapi

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// mockIngestService implements driving.IngestService for testing.
type mockIngestService struct {
	uploaded  *domain.RawDocument
	result    *driving.UploadResult
	uploadErr error
	status    *driving.CorpusStatus
	resets    int
}

func (m *mockIngestService) Upload(_ context.Context, raw *domain.RawDocument) (*driving.UploadResult, error) {
	m.uploaded = raw
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	if m.result != nil {
		return m.result, nil
	}
	return &driving.UploadResult{
		Document:    domain.Document{ID: "doc-1", Filename: raw.Filename, Format: raw.Format},
		ChunksCount: 4,
	}, nil
}

func (m *mockIngestService) Status(_ context.Context) (*driving.CorpusStatus, error) {
	if m.status != nil {
		return m.status, nil
	}
	return &driving.CorpusStatus{SupportedFormats: domain.AllFormats()}, nil
}

func (m *mockIngestService) Documents(_ context.Context) ([]domain.Document, error) {
	return nil, nil
}

func (m *mockIngestService) Reset(_ context.Context) error {
	m.resets++
	return nil
}

// mockChatService implements driving.ChatService for testing.
type mockChatService struct {
	sessionID string
	message   string
	result    domain.TurnResult
	sendErr   error
	resetIDs  []string
}

func (m *mockChatService) Send(_ context.Context, sessionID, message string) (*driving.ChatResult, error) {
	m.sessionID = sessionID
	m.message = message
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	if sessionID == "" {
		sessionID = "new-session"
	}
	return &driving.ChatResult{SessionID: sessionID, TurnResult: m.result}, nil
}

func (m *mockChatService) State(_ context.Context, sessionID string) (*domain.ConversationState, error) {
	return domain.NewConversationState(sessionID), nil
}

func (m *mockChatService) Reset(_ context.Context, sessionID string) error {
	m.resetIDs = append(m.resetIDs, sessionID)
	return nil
}

// mockSuggestionService implements driving.SuggestionService for testing.
type mockSuggestionService struct {
	prompts []string
}

func (m *mockSuggestionService) Suggestions(_ context.Context) ([]string, error) {
	return m.prompts, nil
}
