package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Format identifies a document file format.
type Format string

// Supported document formats.
const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatRTF      Format = "rtf"
)

// formatMIMETypes maps formats to their canonical MIME type.
var formatMIMETypes = map[Format]string{
	FormatText:     "text/plain",
	FormatMarkdown: "text/markdown",
	FormatHTML:     "text/html",
	FormatPDF:      "application/pdf",
	FormatDOCX:     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FormatRTF:      "application/rtf",
}

// formatAliases maps extensions and MIME types to formats.
var formatAliases = map[string]Format{
	"txt":           FormatText,
	"text":          FormatText,
	"text/plain":    FormatText,
	"md":            FormatMarkdown,
	"markdown":      FormatMarkdown,
	"text/markdown": FormatMarkdown,
	"html":          FormatHTML,
	"htm":           FormatHTML,
	"text/html":     FormatHTML,
	"pdf":           FormatPDF,
	"docx":          FormatDOCX,
	"rtf":           FormatRTF,
	"text/rtf":      FormatRTF,
}

func init() {
	for f, mime := range formatMIMETypes {
		formatAliases[mime] = f
	}
}

// ParseFormat resolves an extension (with or without a dot), a format name
// or a MIME type to a Format.
func ParseFormat(s string) (Format, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimPrefix(key, ".")
	if i := strings.IndexByte(key, ';'); i >= 0 {
		key = strings.TrimSpace(key[:i])
	}
	f, ok := formatAliases[key]
	return f, ok
}

// FormatFromFilename resolves a format from a file extension.
func FormatFromFilename(name string) (Format, bool) {
	ext := filepath.Ext(name)
	if ext == "" {
		return "", false
	}
	return ParseFormat(ext)
}

// MIMEType returns the canonical MIME type of the format.
func (f Format) MIMEType() string {
	if mime, ok := formatMIMETypes[f]; ok {
		return mime
	}
	return "application/octet-stream"
}

// String returns the string representation.
func (f Format) String() string {
	return string(f)
}

// AllFormats returns every supported format in display order.
func AllFormats() []Format {
	return []Format{FormatPDF, FormatDOCX, FormatText, FormatRTF, FormatMarkdown, FormatHTML}
}

// RawDocument is an uploaded file before text extraction.
type RawDocument struct {
	// Filename is the original file name.
	Filename string

	// Format is the resolved document format.
	Format Format

	// Content is the raw file bytes.
	Content []byte

	// Metadata holds origin details supplied by the caller.
	Metadata map[string]string
}

// Document is the extracted text of an uploaded file.
// Documents are immutable once created.
type Document struct {
	ID        string            `json:"id"`
	Filename  string            `json:"filename"`
	Title     string            `json:"title"`
	Format    Format            `json:"format"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Chunk is a contiguous character range of a document.
// Start and End are character (rune) offsets into Document.Content,
// End exclusive.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
	Position   int    `json:"position"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int {
	return c.End - c.Start
}
