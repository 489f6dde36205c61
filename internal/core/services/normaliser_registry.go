package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure NormaliserRegistry implements the interface.
var _ driven.NormaliserRegistry = (*NormaliserRegistry)(nil)

// NormaliserRegistry maps document formats to normalisers.
type NormaliserRegistry struct {
	mu       sync.RWMutex
	byFormat map[domain.Format]driven.Normaliser
}

// NewNormaliserRegistry creates a registry holding the given normalisers.
func NewNormaliserRegistry(normalisers ...driven.Normaliser) *NormaliserRegistry {
	r := &NormaliserRegistry{
		byFormat: make(map[domain.Format]driven.Normaliser),
	}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser for every format it handles.
// A later registration replaces an earlier one for the same format.
func (r *NormaliserRegistry) Register(n driven.Normaliser) {
	if n == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range n.Formats() {
		r.byFormat[f] = n
	}
}

// Normalise extracts text from raw using the normaliser for its format.
func (r *NormaliserRegistry) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}

	r.mu.RLock()
	n, ok := r.byFormat[raw.Format]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.Errorf(domain.KindUnsupportedFormat,
			"unsupported document format %q for %s", raw.Format, raw.Filename)
	}

	logger.Debug("Normalising %s as %s (%d bytes)", raw.Filename, raw.Format, len(raw.Content))
	doc, err := n.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", raw.Filename, err)
	}
	return doc, nil
}

// Formats returns the registered formats in display order.
func (r *NormaliserRegistry) Formats() []domain.Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formats := make([]domain.Format, 0, len(r.byFormat))
	for _, f := range domain.AllFormats() {
		if _, ok := r.byFormat[f]; ok {
			formats = append(formats, f)
		}
	}
	return formats
}
