// Package html extracts readable text from HTML documents.
package html

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Formats returns the formats this normaliser handles.
func (n *Normaliser) Formats() []domain.Format {
	return []domain.Format{domain.FormatHTML}
}

// Normalise converts an HTML document to a normalised document.
// The Content field contains the visible text with tags stripped.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	title, content, err := extract(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidInput, "parse html", err)
	}
	return normalisers.NewDocument(raw, title, content), nil
}

// skipped elements contribute no text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Iframe:   true,
}

// block elements start a new line.
var block = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Hr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Ul: true, atom.Ol: true, atom.Tr: true, atom.Table: true,
	atom.Blockquote: true, atom.Pre: true, atom.Section: true, atom.Article: true,
	atom.Header: true, atom.Footer: true, atom.Nav: true, atom.Main: true, atom.Aside: true,
	atom.Dt: true, atom.Dd: true, atom.Figcaption: true,
}

// extract walks the token stream and returns the document title and text.
func extract(r io.Reader) (string, string, error) {
	z := html.NewTokenizer(r)

	var (
		text    strings.Builder
		title   strings.Builder
		depth   int // nesting inside skipped elements
		inTitle bool
		inHead  bool
	)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return "", "", err
			}
			return collapseSpaces(title.String()), normalisers.CleanText(text.String()), nil

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case a == atom.Title:
				inTitle = tt == html.StartTagToken
			case a == atom.Head:
				inHead = tt == html.StartTagToken
			case skipped[a] && tt == html.StartTagToken:
				depth++
			case block[a]:
				text.WriteByte('\n')
			case a == atom.Td || a == atom.Th:
				text.WriteByte(' ')
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case a == atom.Title:
				inTitle = false
			case a == atom.Head:
				inHead = false
			case skipped[a] && depth > 0:
				depth--
			case block[a]:
				text.WriteByte('\n')
			}

		case html.TextToken:
			data := string(z.Text())
			switch {
			case inTitle:
				title.WriteString(data)
			case depth > 0 || inHead:
			default:
				text.WriteString(collapseInline(data))
			}
		}
	}
}

// collapseInline squeezes runs of whitespace inside a text node.
func collapseInline(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			return " "
		}
		return ""
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}
