package domain

import (
	"fmt"
	"time"
)

// ConversationStatus is the state of the conversation state machine.
type ConversationStatus string

// Conversation states. ENDED is terminal.
const (
	ConversationActive ConversationStatus = "ACTIVE"
	ConversationEnded  ConversationStatus = "ENDED"
)

// ConversationState is the message log of one chat session.
// It is mutated only by the agent, one turn at a time.
type ConversationState struct {
	SessionID string
	Messages  []Message

	// ToolsThisTurn holds the names of tools invoked in the most recent turn.
	ToolsThisTurn []string

	Status    ConversationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewConversationState creates an ACTIVE conversation.
func NewConversationState(sessionID string) *ConversationState {
	now := time.Now()
	return &ConversationState{
		SessionID: sessionID,
		Status:    ConversationActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Ended reports whether the conversation is in its terminal state.
func (s *ConversationState) Ended() bool {
	return s.Status == ConversationEnded
}

// End moves the conversation to ENDED. There is no way back.
func (s *ConversationState) End() {
	s.Status = ConversationEnded
	s.UpdatedAt = time.Now()
}

// Append adds messages to the log.
func (s *ConversationState) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
	s.UpdatedAt = time.Now()
}

// Clone returns a copy whose message slice can be read without the session lock.
func (s *ConversationState) Clone() *ConversationState {
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.ToolsThisTurn = append([]string(nil), s.ToolsThisTurn...)
	return &out
}

// TurnResult is the outcome of one agent turn.
type TurnResult struct {
	Reply             AssistantMessage
	ToolsUsed         []string
	ConversationEnded bool

	// ContextUsed is the number of retrieved chunks that made it into the prompt.
	ContextUsed int

	// Degraded is set when documents could not be searched and the reply
	// says so instead of answering.
	Degraded bool
}

// MessageRecord is the serialisable form of a Message.
type MessageRecord struct {
	Role            Role             `json:"role"`
	Content         string           `json:"content,omitempty"`
	ToolInvocations []ToolInvocation `json:"tool_invocations,omitempty"`
	At              time.Time        `json:"at"`
}

// TranscriptRecord is the serialisable form of a ConversationState.
type TranscriptRecord struct {
	SessionID string             `json:"session_id"`
	Status    ConversationStatus `json:"status"`
	Messages  []MessageRecord    `json:"messages"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// NewTranscriptRecord converts a conversation into its record form.
func NewTranscriptRecord(s *ConversationState) TranscriptRecord {
	rec := TranscriptRecord{
		SessionID: s.SessionID,
		Status:    s.Status,
		Messages:  make([]MessageRecord, 0, len(s.Messages)),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	for _, m := range s.Messages {
		r := MessageRecord{Role: m.Role(), At: m.Time()}
		switch v := m.(type) {
		case UserMessage:
			r.Content = v.Content
		case AssistantMessage:
			r.Content = v.Content
			r.ToolInvocations = v.ToolInvocations
		case ToolMessage:
			r.ToolInvocations = []ToolInvocation{v.Invocation}
		}
		rec.Messages = append(rec.Messages, r)
	}
	return rec
}

// State rebuilds the conversation from its record form.
func (r TranscriptRecord) State() (*ConversationState, error) {
	s := &ConversationState{
		SessionID: r.SessionID,
		Status:    r.Status,
		Messages:  make([]Message, 0, len(r.Messages)),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if s.Status == "" {
		s.Status = ConversationActive
	}
	for i, m := range r.Messages {
		switch m.Role {
		case RoleUser:
			s.Messages = append(s.Messages, UserMessage{Content: m.Content, At: m.At})
		case RoleAssistant:
			s.Messages = append(s.Messages, AssistantMessage{
				Content:         m.Content,
				ToolInvocations: m.ToolInvocations,
				At:              m.At,
			})
		case RoleTool:
			if len(m.ToolInvocations) != 1 {
				return nil, Errorf(KindInvalidInput, "message %d: tool record needs one invocation", i)
			}
			s.Messages = append(s.Messages, ToolMessage{Invocation: m.ToolInvocations[0], At: m.At})
		default:
			return nil, NewError(KindInvalidInput, fmt.Sprintf("message %d: unknown role %q", i, m.Role), nil)
		}
	}
	return s, nil
}
