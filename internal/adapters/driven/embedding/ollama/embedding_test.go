package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// numberServer embeds "n" as [n, 1] after a delay that shrinks with n,
// so later inputs complete first.
func numberServer(t *testing.T, inFlight, peak *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := atomic.AddInt32(inFlight, 1)
		defer atomic.AddInt32(inFlight, -1)
		for {
			p := atomic.LoadInt32(peak)
			if cur <= p || atomic.CompareAndSwapInt32(peak, p, cur) {
				break
			}
		}

		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		n, err := strconv.Atoi(req.Prompt)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		time.Sleep(time.Duration(10-n) * 2 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float64{float64(n), 1}})
	}))
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, 768, svc.Dimensions())

	svc = NewEmbeddingService(Config{Model: "mxbai-embed-large"})
	assert.Equal(t, 1024, svc.Dimensions())
}

func TestEmbedBatch_PreservesOrderUnderParallelism(t *testing.T) {
	var inFlight, peak int32
	srv := numberServer(t, &inFlight, &peak)
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL, Concurrency: 3, Dimensions: 2})
	texts := make([]string, 10)
	for i := range texts {
		texts[i] = strconv.Itoa(i)
	}

	vecs, err := svc.EmbedBatch(context.Background(), texts)

	require.NoError(t, err)
	require.Len(t, vecs, 10)
	for i, v := range vecs {
		assert.Equal(t, []float32{float32(i), 1}, v)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestEmbedBatch_FailsAsAWhole(t *testing.T) {
	var inFlight, peak int32
	srv := numberServer(t, &inFlight, &peak)
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL})

	_, err := svc.EmbedBatch(context.Background(), []string{"1", "not-a-number", "3"})
	assert.Error(t, err)
}

func TestEmbed_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewEmbeddingService(Config{BaseURL: srv.URL}).Embed(context.Background(), "x")

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	assert.NoError(t, NewEmbeddingService(Config{BaseURL: srv.URL}).Ping(context.Background()))
}
