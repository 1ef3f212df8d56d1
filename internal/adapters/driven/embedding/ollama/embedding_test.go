package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, req embedRequest)) *EmbeddingService {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/embed":
			assert.Equal(t, http.MethodPost, r.Method)
			var req embedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			handler(w, req)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return NewEmbeddingService(Config{BaseURL: srv.URL + "/"})
}

func TestEmbeddingService_EmbedBatch(t *testing.T) {
	svc := newTestServer(t, func(w http.ResponseWriter, req embedRequest) {
		assert.Equal(t, DefaultModel, req.Model)
		out := embedResponse{}
		for i := range req.Input {
			out.Embeddings = append(out.Embeddings, []float32{float32(i), 1, 0})
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	assert.Equal(t, 0, svc.Dimensions())

	vectors, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1, 0}, {1, 1, 0}}, vectors)
	assert.Equal(t, 3, svc.Dimensions())

	v, err := svc.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0}, v)

	empty, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEmbeddingService_FailsClosed(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "server error", body: `model not found`, code: http.StatusNotFound},
		{name: "wrong count", body: `{"embeddings":[[1,2]]}`, code: http.StatusOK},
		{name: "ragged vectors", body: `{"embeddings":[[1,2],[1]]}`, code: http.StatusOK},
		{name: "legacy shape", body: `{"embedding":[1,2]}`, code: http.StatusOK},
		{name: "not json", body: `<html>`, code: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestServer(t, func(w http.ResponseWriter, _ embedRequest) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
			assert.ErrorIs(t, err, domain.ErrCollaboratorUnavailable)
		})
	}
}

func TestEmbeddingService_Ping(t *testing.T) {
	svc := newTestServer(t, nil)
	assert.NoError(t, svc.Ping(context.Background()))

	down := NewEmbeddingService(Config{BaseURL: "http://127.0.0.1:1"})
	assert.ErrorIs(t, down.Ping(context.Background()), domain.ErrCollaboratorUnavailable)
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	assert.Equal(t, DefaultBaseURL, svc.baseURL)
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultTimeout, svc.client.Timeout)
	assert.NoError(t, svc.Close())
}
