package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ollamaServer(t *testing.T, tags string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(tags))
		case "/api/embed":
			var req ollamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req.Model != "nomic-embed-text" {
				w.WriteHeader(http.StatusNotFound)
				_ = json.NewEncoder(w).Encode(ollamaError{Error: "model not found"})
				return
			}
			resp := ollamaEmbedResponse{Model: req.Model, PromptEvalCount: 4}
			for i := range req.Input {
				resp.Embeddings = append(resp.Embeddings, []float32{1, float32(i)})
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
}

func TestOllamaProvider_Embed(t *testing.T) {
	server := ollamaServer(t, `{"models":[]}`)
	defer server.Close()

	p, err := NewOllamaProvider(Config{BaseURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", p.Model())
	assert.Equal(t, 0, p.Dimensions())

	res, err := p.Embed(context.Background(), "hide panel")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, res.Vector)
	assert.Equal(t, 2, p.Dimensions(), "dimensions learned from response")
	require.NotNil(t, res.Usage)
	assert.Equal(t, 4, res.Usage.PromptTokens)
}

func TestOllamaProvider_EmbedBatch(t *testing.T) {
	server := ollamaServer(t, `{"models":[]}`)
	defer server.Close()

	p, err := NewOllamaProvider(Config{BaseURL: server.URL, BatchSize: 2})
	require.NoError(t, err)

	res, err := p.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "c", res[2].Text)
}

func TestOllamaProvider_ModelError(t *testing.T) {
	server := ollamaServer(t, `{"models":[]}`)
	defer server.Close()

	p, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "missing"})
	require.NoError(t, err)
	p.call.backoff = time.Millisecond

	_, err = p.Embed(context.Background(), "hide panel")
	require.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Contains(t, err.Error(), "model not found")
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := ollamaServer(t, `{"models":[{"name":"nomic-embed-text:latest","model":"nomic-embed-text:latest"}]}`)
	defer server.Close()

	p, err := NewOllamaProvider(Config{BaseURL: server.URL})
	require.NoError(t, err)
	assert.True(t, p.IsAvailable(context.Background()))

	other, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "mxbai-embed-large"})
	require.NoError(t, err)
	assert.False(t, other.IsAvailable(context.Background()), "model not pulled")
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = NewProvider(Config{Provider: "Ollama"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	p, err = NewProvider(Config{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = NewProvider(Config{Provider: "cohere"})
	assert.Error(t, err)
}
