package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func contents(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

// reassemble joins chunks, dropping the region each one shares with its predecessor.
func reassemble(chunks []domain.Chunk) string {
	var b strings.Builder
	prevEnd := 0
	for _, c := range chunks {
		runes := []rune(c.Content)
		skip := prevEnd - c.Start
		if skip < 0 {
			skip = 0
		}
		b.WriteString(string(runes[skip:]))
		prevEnd = c.End
	}
	return b.String()
}

func TestNew_Defaults(t *testing.T) {
	c := New()
	assert.Equal(t, 1000, c.Size())
	assert.Equal(t, 200, c.Overlap())
	assert.NoError(t, c.Validate())
}

func TestChunk_Scenario(t *testing.T) {
	c := New(WithChunkSize(4), WithOverlap(2))
	chunks, err := c.Chunk(&domain.Document{ID: "doc-1", Content: "ABCDEFGHIJ"})
	require.NoError(t, err)

	assert.Equal(t, []string{"ABCD", "CDEF", "EFGH", "GHIJ"}, contents(chunks))
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Position)
		assert.Equal(t, "doc-1", ch.DocumentID)
		assert.Equal(t, i*2, ch.Start)
		assert.Equal(t, i*2+4, ch.End)
		assert.NotEmpty(t, ch.ID)
	}
}

func TestChunk_EmptyContent(t *testing.T) {
	chunks, err := New().Chunk(&domain.Document{ID: "empty"})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunk_ShortFinalChunk(t *testing.T) {
	c := New(WithChunkSize(4), WithOverlap(1))
	chunks, err := c.Chunk(&domain.Document{Content: "ABCDEFGHIJ"})
	require.NoError(t, err)

	// starts 0, 3, 6; the third window reaches the end
	assert.Equal(t, []string{"ABCD", "DEFG", "GHIJ"}, contents(chunks))

	c = New(WithChunkSize(4), WithOverlap(0))
	chunks, err = c.Chunk(&domain.Document{Content: "ABCDEFGHIJ"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ABCD", "EFGH", "IJ"}, contents(chunks))
}

func TestChunk_TextShorterThanSize(t *testing.T) {
	chunks, err := New().Chunk(&domain.Document{Content: "short"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 5, chunks[0].End)
}

func TestChunk_RuneOffsets(t *testing.T) {
	c := New(WithChunkSize(3), WithOverlap(1))
	text := "héllo wörld"
	chunks, err := c.Chunk(&domain.Document{Content: text})
	require.NoError(t, err)

	runes := []rune(text)
	for _, ch := range chunks {
		assert.Equal(t, string(runes[ch.Start:ch.End]), ch.Content)
	}
	assert.Equal(t, text, reassemble(chunks))
}

func TestChunk_Reconstruction(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)

	cases := []struct{ size, overlap int }{
		{1, 0}, {2, 1}, {4, 2}, {7, 3}, {10, 9}, {100, 0}, {1000, 200}, {5000, 10},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d/%d", tc.size, tc.overlap), func(t *testing.T) {
			chunks, err := New(WithChunkSize(tc.size), WithOverlap(tc.overlap)).
				Chunk(&domain.Document{Content: text})
			require.NoError(t, err)
			assert.Equal(t, text, reassemble(chunks))

			for i := 1; i < len(chunks); i++ {
				// consecutive chunks share exactly overlap characters
				assert.Equal(t, tc.overlap, chunks[i-1].End-chunks[i].Start)
			}
			for i := 0; i < len(chunks)-1; i++ {
				assert.Equal(t, tc.size, chunks[i].Len())
			}
		})
	}
}

func TestChunk_InvalidParameters(t *testing.T) {
	cases := map[string][]Option{
		"overlap equals size":  {WithChunkSize(4), WithOverlap(4)},
		"overlap exceeds size": {WithChunkSize(4), WithOverlap(6)},
		"negative overlap":     {WithOverlap(-1)},
		"zero size":            {WithChunkSize(0)},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(opts...).Chunk(&domain.Document{Content: "ABCDEFGHIJ"})
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestChunk_NilDocument(t *testing.T) {
	_, err := New().Chunk(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWithIDFunc(t *testing.T) {
	n := 0
	c := New(WithChunkSize(4), WithOverlap(2), WithIDFunc(func() string {
		n++
		return fmt.Sprintf("chunk-%d", n)
	}))
	chunks, err := c.Chunk(&domain.Document{Content: "ABCDEFGHIJ"})
	require.NoError(t, err)
	assert.Equal(t, "chunk-1", chunks[0].ID)
	assert.Equal(t, "chunk-4", chunks[3].ID)
}
