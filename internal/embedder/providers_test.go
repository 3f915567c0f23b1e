package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func embeddingsServer(t *testing.T, wantKey string, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/embeddings", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer "+wantKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid key"}`))
			return
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Reverse order to check index handling
		data := make([]map[string]interface{}, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			v := make([]float32, dim)
			v[0] = float32(i + 1)
			data = append(data, map[string]interface{}{"index": i, "embedding": v})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"model": req.Model, "data": data})
	}))
}

func TestRESTProviders(t *testing.T) {
	ctx := context.Background()

	constructors := map[string]func(RESTOptions) *RESTProvider{
		ProviderOpenAI: NewOpenAIProvider,
		ProviderJina:   NewJinaProvider,
	}

	for name, newProvider := range constructors {
		t.Run(name, func(t *testing.T) {
			server := embeddingsServer(t, "test-key", 8)
			defer server.Close()

			p := newProvider(RESTOptions{APIKey: "test-key", BaseURL: server.URL + "/", Dimension: 8})
			defer func() { _ = p.Close() }()

			assert.Equal(t, name, p.Provider())
			assert.True(t, p.IsAvailable(ctx))

			resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"one", "two", "three"}})
			require.NoError(t, err)
			require.Len(t, resp.Embeddings, 3)
			for i, emb := range resp.Embeddings {
				assert.Equal(t, float32(i+1), emb.Vector[0], "embedding %d out of order", i)
				assert.Equal(t, 8, emb.Dimension)
				assert.Equal(t, name, emb.Provider)
			}

			single, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "one"})
			require.NoError(t, err)
			assert.Equal(t, p.Model(), single.Model)
		})
	}
}

func TestRESTProviderWithoutKeyUnavailable(t *testing.T) {
	assert.False(t, NewOpenAIProvider(RESTOptions{}).IsAvailable(context.Background()))
	assert.Equal(t, DefaultJinaModel, NewJinaProvider(RESTOptions{}).Model())
	assert.Equal(t, OpenAIDimension, NewOpenAIProvider(RESTOptions{}).Dimension())
}

func TestRESTProviderErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, true},
		{"server error", http.StatusBadGateway, "bad gateway", true},
		{"request timeout", http.StatusRequestTimeout, "", true},
		{"unauthorized", http.StatusUnauthorized, `{"error":"invalid key"}`, false},
		{"bad request", http.StatusBadRequest, `{"error":"input too long"}`, false},
		{"malformed body", http.StatusOK, `{"data":`, false},
		{"count mismatch", http.StatusOK, `{"data":[]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := NewOpenAIProvider(RESTOptions{APIKey: "k", BaseURL: server.URL})
			_, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"x"}})
			require.Error(t, err)
			assert.Equal(t, tt.transient, IsTransient(err))
		})
	}
}

func TestOllamaProvider(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/embeddings":
			var req ollamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "nomic-embed-text", req.Model)
			v := make([]float32, 4)
			v[len(req.Prompt)%4] = 1
			_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: v})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "", 4, time.Second)
	assert.True(t, p.IsAvailable(ctx))
	assert.Equal(t, ProviderOllama, p.Provider())

	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"a", "bb"}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 2)
	assert.Equal(t, float32(1), resp.Embeddings[0].Vector[1])
	assert.Equal(t, float32(1), resp.Embeddings[1].Vector[2])
	assert.NoError(t, p.Close())
}

func TestOllamaProviderUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	p := NewOllamaProvider(url, "", 0, time.Second)
	assert.False(t, p.IsAvailable(context.Background()))

	_, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestGeminiProvider(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-embedding-001:batchEmbedContents"), r.URL.Path)
		var req struct {
			Requests []json.RawMessage `json:"requests"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		embeddings := make([]map[string]interface{}, len(req.Requests))
		for i := range req.Requests {
			embeddings[i] = map[string]interface{}{"values": []float32{float32(i), 1, 0}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embeddings": embeddings})
	}))
	defer server.Close()

	p, err := NewGeminiProvider(ctx, RESTOptions{APIKey: "test-key", BaseURL: server.URL, Dimension: 3})
	require.NoError(t, err)
	assert.True(t, p.IsAvailable(ctx))

	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"a", "b"}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 2)
	assert.Equal(t, []float32{1, 1, 0}, resp.Embeddings[1].Vector)
	assert.Equal(t, ProviderGemini, resp.Provider)
}

func TestGeminiProviderWithoutKey(t *testing.T) {
	p, err := NewGeminiProvider(context.Background(), RESTOptions{})
	require.NoError(t, err)
	assert.False(t, p.IsAvailable(context.Background()))

	_, err = p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
	assert.True(t, errors.Is(err, ErrNoProviderEnabled))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"wrapped deadline", errors.Join(errors.New("call"), context.DeadlineExceeded), true},
		{"http 429", &httpStatusError{StatusCode: 429}, true},
		{"http 503", &httpStatusError{StatusCode: 503}, true},
		{"http 403", &httpStatusError{StatusCode: 403}, false},
		{"http 422", &httpStatusError{StatusCode: 422}, false},
		{"genai 429", genai.APIError{Code: 429}, true},
		{"genai 400", genai.APIError{Code: 400}, false},
		{"empty text", ErrEmptyText, false},
		{"malformed", ErrMalformedResponse, false},
		{"unknown", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
