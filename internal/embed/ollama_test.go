package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOllama serves /api/tags and /api/embed with canned 4-dim vectors.
func fakeOllama(t *testing.T, failFirstN int32) *httptest.Server {
	t.Helper()
	var calls int32

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(ollamaModelListResponse{
				Models: []ollamaModelInfo{{Name: "nomic-embed-text:latest"}},
			})
		case "/api/embed":
			if atomic.AddInt32(&calls, 1) <= failFirstN {
				http.Error(w, "model loading", http.StatusInternalServerError)
				return
			}
			var req ollamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			resp := ollamaEmbedResponse{Embeddings: make([][]float32, len(req.Input))}
			for i := range req.Input {
				resp.Embeddings[i] = []float32{1, 0, 0, 0}
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestOllamaEmbedder_ResolvesModelAndDimensions(t *testing.T) {
	srv := fakeOllama(t, 0)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "nomic-embed-text:latest", e.ModelName())
	assert.Equal(t, 4, e.Dimensions())
	assert.True(t, e.Available(context.Background()))
}

func TestOllamaEmbedder_EmbedBatchSplitsBatches(t *testing.T) {
	srv := fakeOllama(t, 0)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:      srv.URL,
		BatchSize: 2,
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Len(t, vecs, 5)
	for _, v := range vecs {
		assert.Len(t, v, 4)
	}
}

func TestOllamaEmbedder_RetriesTransientFailures(t *testing.T) {
	srv := fakeOllama(t, 1)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            srv.URL,
		Dimensions:      4,
		SkipHealthCheck: true,
		MaxRetries:      3,
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	vecs, err := e.EmbedBatch(context.Background(), []string{"retry me"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
}

func TestOllamaEmbedder_UnreachableHostFails(t *testing.T) {
	_, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host: "http://127.0.0.1:1",
	})
	assert.Error(t, err)
}
