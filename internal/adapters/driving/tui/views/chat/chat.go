// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Entry roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleError     = "error"
)

// Rows used by everything except the transcript: title, blank line,
// input box (3), status bar.
const chromeHeight = 6

// Entry is one rendered line of the transcript.
type Entry struct {
	Role     string
	Text     string
	Tools    []string
	Degraded bool
}

// Services are the ports the chat view calls. Ingest and Suggestions can be nil.
type Services struct {
	Chat        driving.ChatService
	Ingest      driving.IngestService
	Suggestions driving.SuggestionService
}

// View is the conversation view.
type View struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	services Services
	ctx      context.Context

	viewport viewport.Model
	spinner  spinner.Model
	input    *input.ChatInput
	bar      *status.Bar

	sessionID   string
	entries     []Entry
	suggestions []string
	suggestIdx  int
	busy        bool
	ended       bool

	width  int
	height int
}

// NewView creates a chat view. sessionID resumes an existing conversation
// when not empty.
func NewView(s *styles.Styles, km *keymap.KeyMap, services Services, sessionID string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.Spinner

	v := &View{
		styles:    s,
		keymap:    km,
		services:  services,
		ctx:       context.Background(),
		viewport:  viewport.New(80, 18),
		spinner:   sp,
		input:     input.NewChatInput(s),
		bar:       status.NewBar(s, km),
		sessionID: sessionID,
		width:     80,
		height:    24,
	}
	v.bar.SetSession(sessionID)
	v.refresh()
	return v
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the corpus status, suggestions and any resumed conversation.
func (v *View) Init() tea.Cmd {
	cmds := []tea.Cmd{v.input.Init(), v.loadStatus(), v.loadSuggestions()}
	if v.sessionID != "" {
		cmds = append(cmds, v.loadHistory())
	}
	return tea.Batch(cmds...)
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd = v.handleKey(msg)

	case messages.ReplyReceived:
		cmd = v.handleReply(msg)

	case messages.SessionReset:
		if msg.Err != nil {
			v.showError(msg.Err)
			break
		}
		v.sessionID = ""
		v.entries = nil
		v.ended = false
		v.input.SetDisabled(false)
		v.bar.Clear()

	case historyLoaded:
		v.handleHistory(msg)

	case messages.StatusLoaded:
		if msg.Err == nil && msg.Status != nil {
			v.bar.SetCorpus(msg.Status.DocumentsCount, msg.Status.ChunksCount)
		}

	case messages.SuggestionsLoaded:
		if msg.Err == nil {
			v.suggestions = msg.Prompts
			v.suggestIdx = 0
		}

	case spinner.TickMsg:
		if v.busy {
			v.spinner, cmd = v.spinner.Update(msg)
		}

	default:
		v.input, cmd = v.input.Update(msg)
	}

	v.refresh()
	return v, cmd
}

func (v *View) handleKey(msg tea.KeyMsg) tea.Cmd {
	keyStr := msg.String()

	switch {
	case keymap.Matches(keyStr, v.keymap.Reset):
		if v.busy {
			return nil
		}
		return v.resetSession()

	case keymap.Matches(keyStr, v.keymap.Suggest):
		if len(v.suggestions) > 0 && !v.ended {
			v.input.SetValue(v.suggestions[v.suggestIdx%len(v.suggestions)])
			v.suggestIdx++
		}
		return nil

	case keymap.Matches(keyStr, v.keymap.ScrollUp), keymap.Matches(keyStr, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return cmd

	case keymap.Matches(keyStr, v.keymap.Send):
		if v.busy {
			return nil
		}
		text, ok := v.input.Submit()
		if !ok {
			return nil
		}
		v.entries = append(v.entries, Entry{Role: RoleUser, Text: text})
		v.busy = true
		v.bar.SetState(status.StateThinking)
		return tea.Batch(v.send(text), v.spinner.Tick)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return cmd
}

func (v *View) handleReply(msg messages.ReplyReceived) tea.Cmd {
	v.busy = false
	if msg.Err != nil {
		if errors.Is(msg.Err, domain.ErrConversationEnded) {
			v.end()
		}
		v.showError(msg.Err)
		return nil
	}

	v.sessionID = msg.Result.SessionID
	v.bar.SetSession(v.sessionID)
	v.entries = append(v.entries, Entry{
		Role:     RoleAssistant,
		Text:     msg.Result.Reply.Content,
		Tools:    msg.Result.ToolsUsed,
		Degraded: msg.Result.Degraded,
	})
	if msg.Result.ConversationEnded {
		v.end()
	} else {
		v.bar.SetState(status.StateReady)
	}
	return v.loadStatus()
}

func (v *View) handleHistory(msg historyLoaded) {
	if msg.err != nil {
		// A session that was never persisted simply starts empty.
		if !errors.Is(msg.err, domain.ErrNotFound) {
			v.showError(msg.err)
		}
		return
	}
	v.entries = msg.entries
	if msg.ended {
		v.end()
	}
}

func (v *View) end() {
	v.ended = true
	v.input.SetDisabled(true)
	v.bar.SetState(status.StateEnded)
}

func (v *View) showError(err error) {
	v.entries = append(v.entries, Entry{Role: RoleError, Text: err.Error()})
	if !v.ended {
		v.bar.SetState(status.StateError)
		v.bar.SetMessage(err.Error())
	}
}

// Commands.

type historyLoaded struct {
	entries []Entry
	ended   bool
	err     error
}

func (v *View) send(text string) tea.Cmd {
	chat, ctx, sessionID := v.services.Chat, v.ctx, v.sessionID
	return func() tea.Msg {
		if chat == nil {
			return messages.ReplyReceived{Err: errors.New("chat service not available")}
		}
		result, err := chat.Send(ctx, sessionID, text)
		return messages.ReplyReceived{Result: result, Err: err}
	}
}

func (v *View) resetSession() tea.Cmd {
	chat, ctx, sessionID := v.services.Chat, v.ctx, v.sessionID
	return func() tea.Msg {
		if chat == nil || sessionID == "" {
			return messages.SessionReset{SessionID: sessionID}
		}
		return messages.SessionReset{SessionID: sessionID, Err: chat.Reset(ctx, sessionID)}
	}
}

func (v *View) loadStatus() tea.Cmd {
	ingest, ctx := v.services.Ingest, v.ctx
	if ingest == nil {
		return nil
	}
	return func() tea.Msg {
		st, err := ingest.Status(ctx)
		return messages.StatusLoaded{Status: st, Err: err}
	}
}

func (v *View) loadSuggestions() tea.Cmd {
	svc, ctx := v.services.Suggestions, v.ctx
	if svc == nil {
		return nil
	}
	return func() tea.Msg {
		prompts, err := svc.Suggestions(ctx)
		return messages.SuggestionsLoaded{Prompts: prompts, Err: err}
	}
}

func (v *View) loadHistory() tea.Cmd {
	chat, ctx, sessionID := v.services.Chat, v.ctx, v.sessionID
	return func() tea.Msg {
		if chat == nil {
			return historyLoaded{err: errors.New("chat service not available")}
		}
		state, err := chat.State(ctx, sessionID)
		if err != nil {
			return historyLoaded{err: err}
		}
		return historyLoaded{entries: entriesFrom(state), ended: state.Ended()}
	}
}

// entriesFrom converts a stored conversation into transcript entries.
func entriesFrom(state *domain.ConversationState) []Entry {
	var entries []Entry
	for _, m := range state.Messages {
		switch msg := m.(type) {
		case domain.UserMessage:
			entries = append(entries, Entry{Role: RoleUser, Text: msg.Content})
		case domain.AssistantMessage:
			entries = append(entries, Entry{Role: RoleAssistant, Text: msg.Content, Tools: msg.ToolNames()})
		}
	}
	return entries
}

// Rendering.

// refresh re-renders the transcript into the viewport.
func (v *View) refresh() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.entries) == 0 {
		return v.renderWelcome()
	}

	textWidth := v.width - 4
	if textWidth < 20 {
		textWidth = 20
	}
	wrap := lipgloss.NewStyle().Width(textWidth)

	blocks := make([]string, 0, len(v.entries))
	for _, e := range v.entries {
		var b strings.Builder
		switch e.Role {
		case RoleUser:
			b.WriteString(v.styles.UserLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(v.styles.Normal.Render(wrap.Render(e.Text)))
		case RoleAssistant:
			b.WriteString(v.styles.AssistantLabel.Render("docchat"))
			b.WriteString("\n")
			b.WriteString(v.styles.Normal.Render(wrap.Render(e.Text)))
			if len(e.Tools) > 0 {
				b.WriteString("\n")
				b.WriteString(v.styles.ToolBadge.Render("tools: " + strings.Join(e.Tools, ", ")))
			}
			if e.Degraded {
				b.WriteString("\n")
				b.WriteString(v.styles.Warning.Render("document search unavailable"))
			}
		case RoleError:
			b.WriteString(v.styles.Error.Render(wrap.Render("Error: " + e.Text)))
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

func (v *View) renderWelcome() string {
	var b strings.Builder
	b.WriteString(v.styles.Muted.Render("Ask a question about your uploaded documents."))
	if len(v.suggestions) == 0 {
		return b.String()
	}
	b.WriteString("\n\n")
	b.WriteString(v.styles.Subtitle.Render("Try asking"))
	for i, p := range v.suggestions {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  %d. %s", i+1, p)))
	}
	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("Press tab to use a suggestion."))
	return b.String()
}

// View renders the chat view.
func (v *View) View() string {
	title := v.styles.Title.Render("docchat")
	if v.busy {
		title += "  " + v.spinner.View() + v.styles.Muted.Render(" thinking")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		v.viewport.View(),
		v.input.View(),
		v.bar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height

	vpHeight := height - chromeHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	v.viewport.Width = width
	v.viewport.Height = vpHeight
	v.input.SetWidth(width)
	v.bar.SetWidth(width)
	v.refresh()
}

// Accessors.

// SessionID returns the current session ID, empty before the first reply.
func (v *View) SessionID() string {
	return v.sessionID
}

// Entries returns the transcript.
func (v *View) Entries() []Entry {
	return v.entries
}

// Suggestions returns the loaded suggested questions.
func (v *View) Suggestions() []string {
	return v.suggestions
}

// Busy reports whether a turn is in flight.
func (v *View) Busy() bool {
	return v.busy
}

// Ended reports whether the conversation has ended.
func (v *View) Ended() bool {
	return v.ended
}

// Input exposes the input component.
func (v *View) Input() *input.ChatInput {
	return v.input
}

// Bar exposes the status bar.
func (v *View) Bar() *status.Bar {
	return v.bar
}
