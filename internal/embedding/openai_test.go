package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/acsense/internal/metrics"
)

func openAIServer(t *testing.T, fail *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			_ = json.NewEncoder(w).Encode(openai.ModelsList{Models: []openai.Model{{ID: "text-embedding-3-small"}}})
			return
		case "/embeddings":
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			return
		}

		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if fail != nil && atomic.AddInt32(fail, -1) >= 0 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := openai.EmbeddingResponse{Model: openai.EmbeddingModel(req.Model)}
		// Reverse order to check results are re-sorted by index
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, openai.Embedding{
				Object:    "embedding",
				Index:     i,
				Embedding: []float32{float32(i), 1, 0},
			})
		}
		resp.Usage.PromptTokens = 3
		resp.Usage.TotalTokens = 3
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestOpenAI(t *testing.T, url string, retries int) *OpenAIProvider {
	t.Helper()
	p, err := NewOpenAIProvider(Config{
		APIKey:     "test-key",
		BaseURL:    url,
		Timeout:    5 * time.Second,
		MaxRetries: retries,
		Metrics:    metrics.New(),
	})
	require.NoError(t, err)
	p.call.backoff = time.Millisecond
	return p
}

func TestOpenAIProvider_Embed(t *testing.T) {
	server := openAIServer(t, nil)
	defer server.Close()

	p := newTestOpenAI(t, server.URL, 0)
	assert.Equal(t, 1536, p.Dimensions())

	res, err := p.Embed(context.Background(), "click save")
	require.NoError(t, err)
	assert.Equal(t, "click save", res.Text)
	assert.Equal(t, "text-embedding-3-small", res.Model)
	assert.Equal(t, []float32{0, 1, 0}, res.Vector)
	require.NotNil(t, res.Usage)
	assert.Equal(t, 3, res.Usage.TotalTokens)
}

func TestOpenAIProvider_EmbedBatch_Order(t *testing.T) {
	server := openAIServer(t, nil)
	defer server.Close()

	p := newTestOpenAI(t, server.URL, 0)
	p.config.BatchSize = 2

	res, err := p.EmbedBatch(context.Background(), []string{"a", "", "b", "c"})
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "a", res[0].Text)
	assert.Equal(t, "b", res[1].Text)
	assert.Equal(t, "c", res[2].Text)
}

func TestOpenAIProvider_EmptyInput(t *testing.T) {
	p := newTestOpenAI(t, "http://127.0.0.1:1", 0)
	_, err := p.Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestOpenAIProvider_RetryThenSuccess(t *testing.T) {
	fail := int32(1)
	server := openAIServer(t, &fail)
	defer server.Close()

	p := newTestOpenAI(t, server.URL, 2)
	res, err := p.Embed(context.Background(), "click save")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Vector)
}

func TestOpenAIProvider_RetriesExhausted(t *testing.T) {
	fail := int32(10)
	server := openAIServer(t, &fail)
	defer server.Close()

	p := newTestOpenAI(t, server.URL, 1)
	_, err := p.Embed(context.Background(), "click save")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmbeddingFailed))
	assert.Equal(t, int32(8), atomic.LoadInt32(&fail), "one attempt plus one retry")
}

func TestOpenAIProvider_IsAvailable(t *testing.T) {
	server := openAIServer(t, nil)
	defer server.Close()

	p := newTestOpenAI(t, server.URL, 0)
	assert.True(t, p.IsAvailable(context.Background()))

	down := newTestOpenAI(t, "http://127.0.0.1:1", 0)
	assert.False(t, down.IsAvailable(context.Background()))
}

func TestNewOpenAIProvider_MissingKey(t *testing.T) {
	_, err := NewOpenAIProvider(Config{})
	assert.Error(t, err)
}
