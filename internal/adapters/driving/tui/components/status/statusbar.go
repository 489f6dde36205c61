// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
)

// State represents the current conversation state for display.
type State string

const (
	StateReady    State = "ready"
	StateThinking State = "thinking"
	StateError    State = "error"
	StateEnded    State = "ended"
)

// shortSessionLen is how much of a session ID is shown.
const shortSessionLen = 8

// Bar displays session and corpus status with keybinding hints.
type Bar struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	state     State
	message   string
	sessionID string
	documents int
	chunks    int
	width     int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	var parts []string
	switch s.state {
	case StateThinking:
		parts = append(parts, s.styles.Muted.Render("Thinking..."))
	case StateError:
		if s.message != "" {
			parts = append(parts, s.styles.Error.Render("Error: "+s.message))
		} else {
			parts = append(parts, s.styles.Error.Render("Error"))
		}
	case StateEnded:
		parts = append(parts, s.styles.Warning.Render("Conversation ended"))
	case StateReady:
		parts = append(parts, s.styles.Muted.Render("Ready"))
	}

	parts = append(parts, s.styles.Muted.Render(fmt.Sprintf("%d docs, %d chunks", s.documents, s.chunks)))
	if s.sessionID != "" {
		id := s.sessionID
		if len(id) > shortSessionLen {
			id = id[:shortSessionLen]
		}
		parts = append(parts, s.styles.Muted.Render("session "+id))
	}
	return strings.Join(parts, s.styles.Muted.Render(" · "))
}

func (s *Bar) renderRight() string {
	var bindings []key.Binding
	if s.state == StateEnded {
		bindings = s.keymap.EndedHelp()
	} else {
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets the error message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetSession sets the displayed session ID.
func (s *Bar) SetSession(id string) {
	s.sessionID = id
}

// Session returns the displayed session ID.
func (s *Bar) Session() string {
	return s.sessionID
}

// SetCorpus sets the document and chunk counts.
func (s *Bar) SetCorpus(documents, chunks int) {
	s.documents = documents
	s.chunks = chunks
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets the state and message, keeping corpus counts.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.sessionID = ""
}
