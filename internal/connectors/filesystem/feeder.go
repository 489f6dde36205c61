package filesystem

import (
	"context"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Outcome is the result of feeding one file.
type Outcome struct {
	File    File
	Result  *driving.UploadResult
	Skipped bool
	Err     error
}

// Feeder uploads files through the ingestion service, skipping content
// that has already been ingested.
type Feeder struct {
	ingest driving.IngestService

	mu   sync.Mutex
	seen map[string]bool
}

// NewFeeder creates a feeder for ingest.
func NewFeeder(ingest driving.IngestService) *Feeder {
	return &Feeder{
		ingest: ingest,
		seen:   make(map[string]bool),
	}
}

// Prime records the checksums of documents already in the corpus.
func (f *Feeder) Prime(ctx context.Context) error {
	docs, err := f.ingest.Documents(ctx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, doc := range docs {
		if sum := doc.Metadata[domain.MetaChecksum]; sum != "" {
			f.seen[sum] = true
		}
	}
	return nil
}

// Feed uploads one file unless its content was seen before.
func (f *Feeder) Feed(ctx context.Context, file File) Outcome {
	sum := file.Checksum
	if sum == "" {
		sum = Checksum(file.Content)
	}

	f.mu.Lock()
	if f.seen[sum] {
		f.mu.Unlock()
		logger.Debug("Skipping %s: already ingested", file.Path)
		return Outcome{File: file, Skipped: true}
	}
	f.seen[sum] = true
	f.mu.Unlock()

	result, err := f.ingest.Upload(ctx, file.RawDocument())
	if err != nil {
		f.mu.Lock()
		delete(f.seen, sum)
		f.mu.Unlock()
		return Outcome{File: file, Err: err}
	}
	logger.Debug("Ingested %s: %d chunks", file.Path, result.ChunksCount)
	return Outcome{File: file, Result: result}
}

// FeedAll uploads files in order. A failing file does not stop the rest.
func (f *Feeder) FeedAll(ctx context.Context, files []File) []Outcome {
	outcomes := make([]Outcome, 0, len(files))
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		outcomes = append(outcomes, f.Feed(ctx, file))
	}
	return outcomes
}

// Run feeds files from a watch channel until it closes or ctx is done.
// report is called for every outcome and can be nil.
func (f *Feeder) Run(ctx context.Context, files <-chan File, report func(Outcome)) {
	for {
		select {
		case <-ctx.Done():
			return
		case file, ok := <-files:
			if !ok {
				return
			}
			outcome := f.Feed(ctx, file)
			if outcome.Err != nil {
				logger.Warn("Ingesting %s: %v", file.Path, outcome.Err)
			}
			if report != nil {
				report(outcome)
			}
		}
	}
}
