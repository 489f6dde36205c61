// Package resilient wraps an embedding service with rate limiting and
// bounded exponential backoff. It sits at the ingestion boundary where bulk
// inserts can wait out transient provider failures.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure Embedder implements the interface.
var _ driven.EmbeddingService = (*Embedder)(nil)

// Default retry settings.
const (
	DefaultMaxAttempts = 4
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 8 * time.Second
)

// Config configures an Embedder.
type Config struct {
	// MaxAttempts is the total number of tries per call (default: 4).
	MaxAttempts int

	// BaseDelay is the wait after the first failure; it doubles per retry (default: 500ms).
	BaseDelay time.Duration

	// MaxDelay caps a single wait (default: 8s).
	MaxDelay time.Duration

	// RequestsPerSecond limits calls to the provider. Zero disables limiting.
	RequestsPerSecond float64

	// Burst is the token bucket size (default: 1).
	Burst int
}

// Embedder wraps an EmbeddingService.
// Backoff is applied through the shared limiter, so concurrent callers all
// pause while the provider recovers.
type Embedder struct {
	inner   driven.EmbeddingService
	limiter *RateLimiter
	cfg     Config
}

// New wraps inner.
func New(inner driven.EmbeddingService, cfg Config) *Embedder {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	return &Embedder{
		inner:   inner,
		limiter: NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		cfg:     cfg,
	}
}

// Embed embeds one text with retries.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := e.do(ctx, func(ctx context.Context) error {
		v, err := e.inner.Embed(ctx, text)
		out = v
		return err
	})
	return out, err
}

// EmbedBatch embeds texts with retries. A retry resends the whole batch.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := e.do(ctx, func(ctx context.Context) error {
		v, err := e.inner.EmbedBatch(ctx, texts)
		if err == nil && len(v) != len(texts) {
			err = fmt.Errorf("%w: provider returned %d vectors for %d texts",
				domain.ErrEmbeddingUnavailable, len(v), len(texts))
		}
		out = v
		return err
	})
	return out, err
}

// do runs fn until it succeeds, fails permanently, or attempts run out.
// Every returned error is ErrEmbeddingUnavailable.
func (e *Embedder) do(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if err := e.limiter.Wait(ctx); err != nil {
			return unavailable(lastErr, err)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(ctx, lastErr) || attempt == e.cfg.MaxAttempts {
			break
		}

		delay := e.backoff(attempt)
		logger.Warn("embedding attempt %d/%d failed, retrying in %s: %v", attempt, e.cfg.MaxAttempts, delay, lastErr)
		e.limiter.Cooldown(delay)
	}
	return unavailable(lastErr, nil)
}

// backoff returns the wait after the given failed attempt.
func (e *Embedder) backoff(attempt int) time.Duration {
	d := e.cfg.BaseDelay << (attempt - 1)
	if d <= 0 || d > e.cfg.MaxDelay {
		d = e.cfg.MaxDelay
	}
	return d
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return errors.Is(err, domain.ErrEmbeddingUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

func unavailable(last, cause error) error {
	switch {
	case last != nil && errors.Is(last, domain.ErrEmbeddingUnavailable):
		return last
	case last == nil && cause != nil:
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, cause)
	default:
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, last)
	}
}

// Dimensions returns the wrapped service's dimension.
func (e *Embedder) Dimensions() int { return e.inner.Dimensions() }

// ModelName returns the wrapped service's model.
func (e *Embedder) ModelName() string { return e.inner.ModelName() }

// Ping pings the wrapped service once.
func (e *Embedder) Ping(ctx context.Context) error { return e.inner.Ping(ctx) }

// Close closes the wrapped service.
func (e *Embedder) Close() error { return e.inner.Close() }
