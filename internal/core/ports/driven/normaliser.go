package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Normaliser extracts plain text from one or more document formats.
type Normaliser interface {
	// Formats returns the formats this normaliser handles.
	Formats() []domain.Format

	// Normalise converts a raw document into a Document with Content populated.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)
}

// NormaliserRegistry selects a normaliser by format.
type NormaliserRegistry interface {
	// Register adds a normaliser. Later registrations win for a shared format.
	Register(n Normaliser)

	// Normalise dispatches to the normaliser registered for raw.Format.
	// Returns domain.ErrUnsupportedFormat when none is registered.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)

	// Formats returns the registered formats.
	Formats() []domain.Format
}
