package normalisers

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// NewDocument builds a Document carrying raw's origin details and the
// extracted content. An empty title falls back to raw.Metadata["title"]
// and then to the filename.
func NewDocument(raw *domain.RawDocument, title, content string) *domain.Document {
	if title == "" {
		title = raw.Metadata[domain.MetaTitle]
	}
	if title == "" {
		title = TitleFromFilename(raw.Filename)
	}

	metadata := make(map[string]string, len(raw.Metadata)+2)
	for k, v := range raw.Metadata {
		metadata[k] = v
	}
	metadata[domain.MetaFormat] = raw.Format.String()
	if raw.Filename != "" {
		metadata[domain.MetaFilename] = raw.Filename
	}

	return &domain.Document{
		ID:        uuid.New().String(),
		Filename:  raw.Filename,
		Title:     title,
		Format:    raw.Format,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}

// TitleFromFilename derives a human-readable title from a file name.
func TitleFromFilename(name string) string {
	filename := filepath.Base(name)
	if filename == "." || filename == string(filepath.Separator) {
		return ""
	}

	// Remove the extension for a cleaner title
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}

	// Replace underscores and dashes with spaces
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// CleanText normalises line endings and trims every line, collapsing runs
// of blank lines to one.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
