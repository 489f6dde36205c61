// Package input provides text input components for the TUI.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
)

const (
	placeholder         = "Ask about your documents..."
	disabledPlaceholder = "Conversation ended. Press ctrl+r to start a new one."
)

// ChatInput wraps a bubbles textinput for composing chat messages.
type ChatInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int
	disabled  bool
}

// NewChatInput creates a new chat input component.
func NewChatInput(s *styles.Styles) *ChatInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 60

	return &ChatInput{
		textinput: ti,
		styles:    s,
		width:     60,
	}
}

// Init initialises the input.
func (c *ChatInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages. Keys are ignored while disabled.
func (c *ChatInput) Update(msg tea.Msg) (*ChatInput, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok && c.disabled {
		return c, nil
	}
	var cmd tea.Cmd
	c.textinput, cmd = c.textinput.Update(msg)
	return c, cmd
}

// View renders the input.
func (c *ChatInput) View() string {
	label := c.styles.UserLabel.Render("> ")
	if c.disabled {
		label = c.styles.Muted.Render("> ")
	}
	field := c.styles.InputField.Render(c.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Value returns the current input value.
func (c *ChatInput) Value() string {
	return c.textinput.Value()
}

// Submit returns the trimmed value and clears the input.
// The second result is false when there is nothing to send.
func (c *ChatInput) Submit() (string, bool) {
	if c.disabled {
		return "", false
	}
	text := strings.TrimSpace(c.textinput.Value())
	if text == "" {
		return "", false
	}
	c.textinput.Reset()
	return text, true
}

// SetValue sets the input value and moves the cursor to the end.
func (c *ChatInput) SetValue(value string) {
	c.textinput.SetValue(value)
	c.textinput.CursorEnd()
}

// SetDisabled blocks or allows typing.
func (c *ChatInput) SetDisabled(disabled bool) {
	c.disabled = disabled
	if disabled {
		c.textinput.Reset()
		c.textinput.Placeholder = disabledPlaceholder
		c.textinput.Blur()
		return
	}
	c.textinput.Placeholder = placeholder
	c.textinput.Focus()
}

// Disabled reports whether typing is blocked.
func (c *ChatInput) Disabled() bool {
	return c.disabled
}

// Focused returns whether the input is focused.
func (c *ChatInput) Focused() bool {
	return c.textinput.Focused()
}

// SetWidth sets the width of the input.
func (c *ChatInput) SetWidth(width int) {
	c.width = width
	// Account for label, border and padding
	inputWidth := width - 8
	if inputWidth < 20 {
		inputWidth = 20
	}
	c.textinput.Width = inputWidth
}

// Width returns the current width.
func (c *ChatInput) Width() int {
	return c.width
}
