package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// session guards one conversation so its turns never interleave.
type session struct {
	mu    sync.Mutex
	state *domain.ConversationState
	// dead is set by Reset once the session has left the map.
	dead bool
}

// ChatService runs conversations keyed by session ID.
// Turns of one session are serialised; different sessions run concurrently.
type ChatService struct {
	agent       ConversationAgent
	transcripts driven.TranscriptStore

	mu       sync.Mutex
	sessions map[string]*session
	newID    func() string
}

// NewChatService creates a chat service.
// The transcript store is optional (can be nil).
func NewChatService(agent ConversationAgent, transcripts driven.TranscriptStore) *ChatService {
	return &ChatService{
		agent:       agent,
		transcripts: transcripts,
		sessions:    make(map[string]*session),
		newID:       func() string { return uuid.New().String() },
	}
}

// Send advances a conversation by one message.
func (s *ChatService) Send(ctx context.Context, sessionID, message string) (*driving.ChatResult, error) {
	if sessionID == "" {
		sessionID = s.newID()
		logger.Debug("Starting session %s", sessionID)
	}

	sess := s.acquire(sessionID)
	defer sess.mu.Unlock()

	if sess.state == nil {
		state, err := s.load(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		sess.state = state
	}

	result, err := s.agent.Turn(ctx, sess.state, message)
	if err != nil {
		return nil, err
	}
	s.persist(ctx, sess.state)

	return &driving.ChatResult{SessionID: sessionID, TurnResult: *result}, nil
}

// State returns a copy of a session's conversation.
func (s *ChatService) State(ctx context.Context, sessionID string) (*domain.ConversationState, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if ok {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		if sess.state != nil {
			return sess.state.Clone(), nil
		}
	}

	if s.transcripts != nil {
		rec, err := s.transcripts.Get(ctx, sessionID)
		if err == nil {
			return rec.State()
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("load session %s: %w", sessionID, err)
		}
	}
	return nil, domain.Errorf(domain.KindNotFound, "session %s not found", sessionID)
}

// Reset discards a session. Resetting an unknown session is not an error.
func (s *ChatService) Reset(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	// Wait for an in-flight turn so it cannot persist after the reset.
	if ok {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		sess.dead = true
		sess.state = nil
	}

	if s.transcripts != nil {
		if err := s.transcripts.Delete(ctx, sessionID); err != nil {
			return fmt.Errorf("delete transcript %s: %w", sessionID, err)
		}
	}
	logger.Info("Session %s reset", sessionID)
	return nil
}

// Sessions returns the IDs of the sessions held in memory.
func (s *ChatService) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// session returns the in-memory entry for id, creating it if needed.
func (s *ChatService) session(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{}
		s.sessions[id] = sess
	}
	return sess
}

// acquire returns the live session for id with its lock held. A session
// reset while the caller waited is skipped in favour of a fresh entry.
func (s *ChatService) acquire(id string) *session {
	for {
		sess := s.session(id)
		sess.mu.Lock()
		if !sess.dead {
			return sess
		}
		sess.mu.Unlock()
	}
}

// load restores a session from the transcript store or starts a new one.
func (s *ChatService) load(ctx context.Context, id string) (*domain.ConversationState, error) {
	if s.transcripts == nil {
		return domain.NewConversationState(id), nil
	}
	rec, err := s.transcripts.Get(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.NewConversationState(id), nil
	case err != nil:
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	state, err := rec.State()
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", id, err)
	}
	logger.Debug("Restored session %s with %d messages (%s)", id, len(state.Messages), state.Status)
	return state, nil
}

// persist saves the conversation. Failures are logged, not returned.
func (s *ChatService) persist(ctx context.Context, state *domain.ConversationState) {
	if s.transcripts == nil {
		return
	}
	if err := s.transcripts.Save(ctx, domain.NewTranscriptRecord(state)); err != nil {
		logger.Warn("Saving transcript for session %s: %v", state.SessionID, err)
	}
}
