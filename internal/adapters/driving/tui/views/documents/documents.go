// Package documents provides the documents list view component for the TUI.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// View is the documents list view.
type View struct {
	styles *styles.Styles
	ingest driving.IngestService
	ctx    context.Context

	list    *list.DocumentList
	width   int
	height  int
	loading bool
	err     error
}

// NewView creates a new documents view. ingest can be nil.
func NewView(s *styles.Styles, ingest driving.IngestService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		ingest: ingest,
		ctx:    context.Background(),
		list:   list.NewDocumentList(s),
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the document list.
func (v *View) Init() tea.Cmd {
	v.loading = true
	v.err = nil
	ingest, ctx := v.ingest, v.ctx
	return func() tea.Msg {
		if ingest == nil {
			return messages.DocumentsLoaded{Err: errors.New("ingest service not available")}
		}
		docs, err := ingest.Documents(ctx)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewChat} }
		}
		v.list, _ = v.list.Update(msg)
		return v, nil

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.list.SetDocuments(msg.Documents)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}
	return v, nil
}

// View renders the documents list.
func (v *View) View() string {
	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Uploaded documents"))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %v", v.err)))
	default:
		b.WriteString(v.list.View())
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("↑/↓ navigate · esc back to chat"))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.list.SetDimensions(width, height-4)
}

// List exposes the underlying list component.
func (v *View) List() *list.DocumentList {
	return v.list
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}

// Loading reports whether a load is in flight.
func (v *View) Loading() bool {
	return v.loading
}
