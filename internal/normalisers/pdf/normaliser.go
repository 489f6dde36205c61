// Package pdf extracts text from PDF documents.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
	"github.com/custodia-labs/docchat/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles PDF documents.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Formats returns the formats this normaliser handles.
func (n *Normaliser) Formats() []domain.Format {
	return []domain.Format{domain.FormatPDF}
}

// Normalise converts a PDF document to a normalised document.
// Scanned PDFs without a text layer produce empty content.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	title, content, err := extract(raw.Content)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidInput, "read pdf", err)
	}
	return normalisers.NewDocument(raw, title, content), nil
}

// extract returns the document title and text. The parser panics on some
// malformed files; that is reported as an error.
func extract(data []byte) (title, text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", "", err
	}

	title = strings.TrimSpace(r.Trailer().Key("Info").Key("Title").Text())

	text, err = plainText(r)
	if err != nil {
		logger.Debug("pdf: whole-document extraction failed, reading pages: %v", err)
		text = pageText(r)
	}
	return title, normalisers.CleanText(text), nil
}

func plainText(r *pdf.Reader) (string, error) {
	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// pageText extracts page by page, skipping pages that fail.
func pageText(r *pdf.Reader) string {
	var b strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		s, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Debug("pdf: skipping page %d: %v", i, err)
			continue
		}
		b.WriteString(s)
		b.WriteByte('\n')
	}
	return b.String()
}
