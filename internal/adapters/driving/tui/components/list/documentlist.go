// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

// DocumentList displays uploaded documents in a navigable list.
type DocumentList struct {
	documents []domain.Document
	selected  int
	styles    *styles.Styles
	width     int
	height    int
}

// NewDocumentList creates a new document list component.
func NewDocumentList(s *styles.Styles) *DocumentList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &DocumentList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Update handles list navigation messages.
func (l *DocumentList) Update(msg tea.Msg) (*DocumentList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the list.
func (l *DocumentList) View() string {
	if len(l.documents) == 0 {
		return l.styles.Muted.Render("No documents uploaded yet. Use 'docchat ingest PATH' or POST /upload.")
	}

	lines := make([]string, 0, len(l.documents)*2+2)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Documents (%d)", len(l.documents))), "")

	// Each document takes two lines.
	visible := (l.height - 4) / 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := start + visible
	if end > len(l.documents) {
		end = len(l.documents)
	}

	for i := start; i < end; i++ {
		lines = append(lines, l.renderDocument(i, &l.documents[i]))
	}
	return strings.Join(lines, "\n")
}

func (l *DocumentList) renderDocument(index int, doc *domain.Document) string {
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	name := doc.Filename
	if doc.Title != "" && doc.Title != doc.Filename {
		name = doc.Title + " (" + doc.Filename + ")"
	}
	name = truncate(name, l.width-12)
	format := strings.ToUpper(doc.Format.String())

	var titleLine string
	if index == l.selected {
		titleLine = l.styles.Selected.Render(fmt.Sprintf("%s%s  %s", indicator, name, format))
	} else {
		titleLine = l.styles.Normal.Render(indicator+name+"  ") + l.styles.Muted.Render(format)
	}

	preview := strings.Join(strings.Fields(doc.Content), " ")
	preview = truncate(preview, l.width-6)
	return titleLine + "\n" + l.styles.Muted.Render("    "+preview)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if n < 10 {
		n = 10
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// SetDocuments updates the list and resets the selection.
func (l *DocumentList) SetDocuments(docs []domain.Document) {
	l.documents = docs
	l.selected = 0
}

// Documents returns the listed documents.
func (l *DocumentList) Documents() []domain.Document {
	return l.documents
}

// Selected returns the index of the selected document.
func (l *DocumentList) Selected() int {
	return l.selected
}

// SelectedDocument returns the selected document, or nil if the list is empty.
func (l *DocumentList) SelectedDocument() *domain.Document {
	if l.selected < 0 || l.selected >= len(l.documents) {
		return nil
	}
	return &l.documents[l.selected]
}

// MoveUp moves selection up.
func (l *DocumentList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *DocumentList) MoveDown() {
	if l.selected < len(l.documents)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *DocumentList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of documents.
func (l *DocumentList) Count() int {
	return len(l.documents)
}
