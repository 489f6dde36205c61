// Package chunker splits document text into overlapping fixed-size windows.
//
// The split is purely positional: a window of size characters advances by
// size-overlap until it reaches the end of the text. Boundaries may fall
// mid-word. Offsets are measured in runes.
package chunker

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// Chunker splits document content into fixed-size chunks.
type Chunker struct {
	size    int
	overlap int
	newID   func() string
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		c.size = size
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// WithIDFunc replaces the chunk ID generator.
func WithIDFunc(fn func() string) Option {
	return func(c *Chunker) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// New creates a chunker with the given options.
// Parameters are validated by Validate and on every Chunk call.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		size:    DefaultChunkSize,
		overlap: DefaultChunkOverlap,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Validate reports whether the parameters satisfy 0 <= overlap < size.
func (c *Chunker) Validate() error {
	if c.size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidInput, c.size)
	}
	if c.overlap < 0 || c.overlap >= c.size {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrInvalidInput, c.size, c.overlap)
	}
	return nil
}

// Chunk splits doc.Content into ordered chunks.
// Empty content yields no chunks and no error.
func (c *Chunker) Chunk(doc *domain.Document) ([]domain.Chunk, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}

	spans := Spans(len([]rune(doc.Content)), c.size, c.overlap)
	if len(spans) == 0 {
		return nil, nil
	}

	runes := []rune(doc.Content)
	chunks := make([]domain.Chunk, 0, len(spans))
	for i, sp := range spans {
		chunks = append(chunks, domain.Chunk{
			ID:         c.newID(),
			DocumentID: doc.ID,
			Content:    string(runes[sp[0]:sp[1]]),
			Position:   i,
			Start:      sp[0],
			End:        sp[1],
		})
	}
	return chunks, nil
}

// Spans returns the [start, end) windows for a text of n characters.
// The caller guarantees 0 <= overlap < size.
func Spans(n, size, overlap int) [][2]int {
	if n == 0 {
		return nil
	}
	step := size - overlap
	spans := make([][2]int, 0, n/step+1)
	for start := 0; ; start += step {
		end := min(start+size, n)
		spans = append(spans, [2]int{start, end})
		if end == n {
			break
		}
	}
	return spans
}
