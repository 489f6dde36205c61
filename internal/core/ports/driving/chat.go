package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ChatService runs conversations keyed by session ID.
type ChatService interface {
	// Send advances the conversation for sessionID by one user message.
	// An empty sessionID starts a new session; the ID used is returned.
	Send(ctx context.Context, sessionID, message string) (*ChatResult, error)

	// State returns a copy of a session's conversation.
	// Returns domain.ErrNotFound for unknown sessions.
	State(ctx context.Context, sessionID string) (*domain.ConversationState, error)

	// Reset discards a session's conversation.
	Reset(ctx context.Context, sessionID string) error
}

// ChatResult is the outcome of one Send.
type ChatResult struct {
	SessionID string
	domain.TurnResult
}
