package filesystem

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// mockIngest implements driving.IngestService for testing.
type mockIngest struct {
	mu       sync.Mutex
	uploaded []string
	docs     []domain.Document
	failOn   string
	docsErr  error
}

func (m *mockIngest) Upload(_ context.Context, raw *domain.RawDocument) (*driving.UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if raw.Filename == m.failOn {
		return nil, domain.Errorf(domain.KindUnsupportedFormat, "cannot read %s", raw.Filename)
	}
	m.uploaded = append(m.uploaded, raw.Filename)
	return &driving.UploadResult{
		Document:    domain.Document{ID: "doc-" + raw.Filename, Filename: raw.Filename},
		ChunksCount: 2,
	}, nil
}

func (m *mockIngest) Status(_ context.Context) (*driving.CorpusStatus, error) {
	return &driving.CorpusStatus{}, nil
}

func (m *mockIngest) Documents(_ context.Context) ([]domain.Document, error) {
	return m.docs, m.docsErr
}

func (m *mockIngest) Reset(_ context.Context) error { return nil }

func (m *mockIngest) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.uploaded...)
}

func fileWith(name, content string) File {
	return File{
		Path:     filepath.Join("/docs", name),
		Format:   domain.FormatText,
		Content:  []byte(content),
		Checksum: Checksum([]byte(content)),
	}
}

func TestFeeder_Feed(t *testing.T) {
	t.Run("uploads new content", func(t *testing.T) {
		ingest := &mockIngest{}
		f := NewFeeder(ingest)

		out := f.Feed(context.Background(), fileWith("a.txt", "alpha"))
		require.NoError(t, out.Err)
		assert.False(t, out.Skipped)
		assert.Equal(t, "doc-a.txt", out.Result.Document.ID)
		assert.Equal(t, []string{"a.txt"}, ingest.names())
	})

	t.Run("skips identical content", func(t *testing.T) {
		ingest := &mockIngest{}
		f := NewFeeder(ingest)

		f.Feed(context.Background(), fileWith("a.txt", "alpha"))
		out := f.Feed(context.Background(), fileWith("copy.txt", "alpha"))

		assert.True(t, out.Skipped)
		assert.Equal(t, []string{"a.txt"}, ingest.names())
	})

	t.Run("computes missing checksum", func(t *testing.T) {
		ingest := &mockIngest{}
		f := NewFeeder(ingest)

		file := fileWith("a.txt", "alpha")
		file.Checksum = ""
		f.Feed(context.Background(), file)
		out := f.Feed(context.Background(), fileWith("b.txt", "alpha"))
		assert.True(t, out.Skipped)
	})

	t.Run("failed upload can be retried", func(t *testing.T) {
		ingest := &mockIngest{failOn: "a.txt"}
		f := NewFeeder(ingest)

		out := f.Feed(context.Background(), fileWith("a.txt", "alpha"))
		assert.ErrorIs(t, out.Err, domain.ErrUnsupportedFormat)

		ingest.failOn = ""
		out = f.Feed(context.Background(), fileWith("a.txt", "alpha"))
		assert.NoError(t, out.Err)
		assert.False(t, out.Skipped)
	})
}

func TestFeeder_Prime(t *testing.T) {
	t.Run("skips documents already in the corpus", func(t *testing.T) {
		ingest := &mockIngest{docs: []domain.Document{
			{ID: "d1", Metadata: map[string]string{domain.MetaChecksum: Checksum([]byte("alpha"))}},
			{ID: "d2"},
		}}
		f := NewFeeder(ingest)
		require.NoError(t, f.Prime(context.Background()))

		out := f.Feed(context.Background(), fileWith("a.txt", "alpha"))
		assert.True(t, out.Skipped)
		out = f.Feed(context.Background(), fileWith("b.txt", "bravo"))
		assert.False(t, out.Skipped)
	})

	t.Run("propagates errors", func(t *testing.T) {
		f := NewFeeder(&mockIngest{docsErr: errors.New("boom")})
		assert.EqualError(t, f.Prime(context.Background()), "boom")
	})
}

func TestFeeder_FeedAll(t *testing.T) {
	t.Run("continues past failures", func(t *testing.T) {
		ingest := &mockIngest{failOn: "b.txt"}
		f := NewFeeder(ingest)

		outcomes := f.FeedAll(context.Background(), []File{
			fileWith("a.txt", "alpha"),
			fileWith("b.txt", "bravo"),
			fileWith("c.txt", "charlie"),
			fileWith("d.txt", "alpha"),
		})

		require.Len(t, outcomes, 4)
		assert.NoError(t, outcomes[0].Err)
		assert.Error(t, outcomes[1].Err)
		assert.NoError(t, outcomes[2].Err)
		assert.True(t, outcomes[3].Skipped)
		assert.Equal(t, []string{"a.txt", "c.txt"}, ingest.names())
	})

	t.Run("stops when cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		outcomes := NewFeeder(&mockIngest{}).FeedAll(ctx, []File{fileWith("a.txt", "alpha")})
		assert.Empty(t, outcomes)
	})
}

func TestFeeder_Run(t *testing.T) {
	t.Run("feeds until the channel closes", func(t *testing.T) {
		ingest := &mockIngest{}
		f := NewFeeder(ingest)

		files := make(chan File, 3)
		files <- fileWith("a.txt", "alpha")
		files <- fileWith("b.txt", "bravo")
		files <- fileWith("a2.txt", "alpha")
		close(files)

		var outcomes []Outcome
		f.Run(context.Background(), files, func(o Outcome) { outcomes = append(outcomes, o) })

		require.Len(t, outcomes, 3)
		assert.True(t, outcomes[2].Skipped)
		assert.Equal(t, []string{"a.txt", "b.txt"}, ingest.names())
	})

	t.Run("stops on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			NewFeeder(&mockIngest{}).Run(ctx, make(chan File), nil)
			close(done)
		}()
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run did not return")
		}
	})

	t.Run("watch to corpus", func(t *testing.T) {
		dir := t.TempDir()
		c := New(dir, WithDebounce(20*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		files, err := c.Watch(ctx)
		require.NoError(t, err)

		ingest := &mockIngest{}
		results := make(chan Outcome, 10)
		go NewFeeder(ingest).Run(ctx, files, func(o Outcome) { results <- o })

		writeFile(t, filepath.Join(dir, "live.txt"), "live update")

		select {
		case o := <-results:
			require.NoError(t, o.Err)
			assert.Equal(t, "doc-live.txt", o.Result.Document.ID)
		case <-time.After(waitTimeout):
			t.Fatal("timeout waiting for ingestion")
		}
	})
}
