// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewChat is the conversation view.
	ViewChat ViewType = iota
	// ViewDocuments lists uploaded documents.
	ViewDocuments
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewChat:
		return "chat"
	case ViewDocuments:
		return "documents"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// MessageSubmitted is sent when the user submits a chat message.
type MessageSubmitted struct {
	Text string
}

// ReplyReceived carries the outcome of a chat turn.
type ReplyReceived struct {
	Result *driving.ChatResult
	Err    error
}

// SessionReset signals the conversation was discarded.
type SessionReset struct {
	SessionID string
	Err       error
}

// StatusLoaded carries the corpus status.
type StatusLoaded struct {
	Status *driving.CorpusStatus
	Err    error
}

// SuggestionsLoaded carries suggested opening questions.
type SuggestionsLoaded struct {
	Prompts []string
	Err     error
}

// DocumentsLoaded carries the uploaded documents.
type DocumentsLoaded struct {
	Documents []domain.Document
	Err       error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
