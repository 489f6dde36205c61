// Package postprocessors builds the document post-processing stages
// applied between normalisation and embedding.
package postprocessors

import (
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/postprocessors/chunker"
)

// NewChunker creates a chunker from settings.
// Zero values fall back to the defaults; invalid combinations are rejected.
func NewChunker(s domain.ChunkingSettings) (*chunker.Chunker, error) {
	var opts []chunker.Option
	if s.Size != 0 {
		opts = append(opts, chunker.WithChunkSize(s.Size))
	}
	if s.Overlap != 0 || s.Size != 0 {
		opts = append(opts, chunker.WithOverlap(s.Overlap))
	}

	c := chunker.New(opts...)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
