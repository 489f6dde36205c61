package mcp

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	chunks []domain.RetrievedChunk
	err    error

	query  string
	k      int
	filter domain.SearchFilter
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	query string,
	k int,
	filter domain.SearchFilter,
) ([]domain.RetrievedChunk, error) {
	m.query, m.k, m.filter = query, k, filter
	return m.chunks, m.err
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	result    domain.TurnResult
	err       error
	sessionID string
	message   string
}

func (m *mockChatService) Send(_ context.Context, sessionID, message string) (*driving.ChatResult, error) {
	m.sessionID, m.message = sessionID, message
	if m.err != nil {
		return nil, m.err
	}
	if sessionID == "" {
		sessionID = "session-1"
	}
	return &driving.ChatResult{SessionID: sessionID, TurnResult: m.result}, nil
}

func (m *mockChatService) State(_ context.Context, sessionID string) (*domain.ConversationState, error) {
	return domain.NewConversationState(sessionID), nil
}

func (m *mockChatService) Reset(_ context.Context, _ string) error {
	return nil
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	status *driving.CorpusStatus
	docs   []domain.Document
	err    error
}

func (m *mockIngestService) Upload(_ context.Context, _ *domain.RawDocument) (*driving.UploadResult, error) {
	return nil, m.err
}

func (m *mockIngestService) Status(_ context.Context) (*driving.CorpusStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.status != nil {
		return m.status, nil
	}
	return &driving.CorpusStatus{}, nil
}

func (m *mockIngestService) Documents(_ context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockIngestService) Reset(_ context.Context) error {
	return m.err
}
