package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

func newTestApp(t *testing.T, ports *Ports) *App {
	t.Helper()
	if ports == nil {
		ports = &Ports{Chat: &MockChatService{}}
	}
	app, err := NewApp(ports)
	require.NoError(t, err)
	app.SetDimensions(80, 24)
	return app
}

// collect runs cmd and any batched commands, returning the produced messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func typeText(app *App, text string) {
	for _, r := range text {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestNewApp_Success(t *testing.T) {
	app, err := NewApp(&Ports{Chat: &MockChatService{}})

	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, messages.ViewChat, app.CurrentView())
	assert.False(t, app.Ready())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{Ingest: &MockIngestService{}})

	assert.ErrorIs(t, err, ErrMissingChatService)
	assert.Nil(t, app)
}

func TestApp_WithContext(t *testing.T) {
	app := newTestApp(t, nil)

	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	assert.Equal(t, app, app.WithContext(ctx))
}

func TestApp_Init(t *testing.T) {
	app := newTestApp(t, nil)

	assert.NotNil(t, app.Init())
}

func TestApp_Update_WindowSize(t *testing.T) {
	app, err := NewApp(&Ports{Chat: &MockChatService{}})
	require.NoError(t, err)

	model, cmd := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.Equal(t, app, model)
	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
}

func TestApp_View_BeforeReady(t *testing.T) {
	app, err := NewApp(&Ports{Chat: &MockChatService{}})
	require.NoError(t, err)

	assert.Equal(t, "Initialising...", app.View())
}

func TestApp_Quit(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
	}{
		{name: "ctrl+c", key: tea.KeyMsg{Type: tea.KeyCtrlC}},
		{name: "esc from chat", key: tea.KeyMsg{Type: tea.KeyEsc}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, nil)

			_, cmd := app.Update(tt.key)

			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestApp_QuitMessage(t *testing.T) {
	app := newTestApp(t, nil)

	_, cmd := app.Update(messages.Quit{})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_HelpToggle(t *testing.T) {
	app := newTestApp(t, nil)

	app.Update(tea.KeyMsg{Type: tea.KeyF1})
	assert.Equal(t, messages.ViewHelp, app.CurrentView())
	assert.Contains(t, app.View(), "Start a new conversation")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewChat, app.CurrentView())
}

func TestApp_DocumentsView(t *testing.T) {
	ingest := &MockIngestService{
		DocumentsFunc: func(_ context.Context) ([]domain.Document, error) {
			return []domain.Document{
				{ID: "d1", Filename: "notes.md", Format: domain.FormatMarkdown, Content: "hello"},
			}, nil
		},
	}
	app := newTestApp(t, &Ports{Chat: &MockChatService{}, Ingest: ingest})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	require.Equal(t, messages.ViewDocuments, app.CurrentView())
	for _, msg := range collect(cmd) {
		app.Update(msg)
	}

	assert.Equal(t, 1, app.Documents().List().Count())
	assert.Contains(t, app.View(), "notes.md")

	// esc asks to go back to chat.
	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	for _, msg := range collect(cmd) {
		app.Update(msg)
	}
	assert.Equal(t, messages.ViewChat, app.CurrentView())
}

func TestApp_SendMessage(t *testing.T) {
	var gotSession, gotMessage string
	chat := &MockChatService{
		SendFunc: func(_ context.Context, sessionID, message string) (*driving.ChatResult, error) {
			gotSession, gotMessage = sessionID, message
			return &driving.ChatResult{
				SessionID: "session-1",
				TurnResult: domain.TurnResult{
					Reply:     domain.AssistantMessage{Content: "The report covers Q3."},
					ToolsUsed: []string{"wikipedia"},
				},
			}, nil
		},
	}
	app := newTestApp(t, &Ports{Chat: chat})

	typeText(app, "what is in the report?")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, app.Chat().Busy())

	for _, msg := range collect(cmd) {
		app.Update(msg)
	}

	assert.Empty(t, gotSession)
	assert.Equal(t, "what is in the report?", gotMessage)
	assert.False(t, app.Chat().Busy())
	assert.Equal(t, "session-1", app.Chat().SessionID())

	entries := app.Chat().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "The report covers Q3.", entries[1].Text)
	assert.Equal(t, []string{"wikipedia"}, entries[1].Tools)
	assert.Contains(t, app.View(), "tools: wikipedia")
}

func TestApp_ReplyErrorIsRecorded(t *testing.T) {
	app := newTestApp(t, nil)

	app.Update(messages.ReplyReceived{Err: errors.New("llm down")})

	assert.EqualError(t, app.Err(), "llm down")
}

func TestApp_ErrorOccurred(t *testing.T) {
	app := newTestApp(t, nil)

	app.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.EqualError(t, app.Err(), "boom")
}
