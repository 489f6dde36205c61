// Package tui provides an interactive terminal chat interface for docchat.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces used by the TUI.
type Ports struct {
	// Chat runs conversation turns. Required.
	Chat driving.ChatService

	// Ingest reports corpus status and lists documents. Optional.
	Ingest driving.IngestService

	// Suggestions provides starter questions. Optional.
	Suggestions driving.SuggestionService

	// SessionID resumes an existing conversation when set.
	SessionID string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
