package embedding

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/acsense/internal/metrics"
	"github.com/ppiankov/acsense/internal/model"
)

var (
	// ErrEmptyInput is returned when asked to embed blank text
	ErrEmptyInput = errors.New("embedding: empty input")

	// ErrEmbeddingFailed wraps provider failures after retries are exhausted
	ErrEmbeddingFailed = errors.New("embedding: request failed")
)

// Provider turns text into dense vectors
type Provider interface {
	// Name returns the provider name
	Name() string

	// Model returns the embedding model identifier used in cache keys
	Model() string

	// Dimensions returns the vector length, 0 until known
	Dimensions() int

	// Embed embeds a single text
	Embed(ctx context.Context, text string) (*Result, error)

	// EmbedBatch embeds many texts. The returned slice may be shorter
	// than the input when some texts fail; match results by Text.
	EmbedBatch(ctx context.Context, texts []string) ([]Result, error)

	// IsAvailable checks if the provider is configured and reachable
	IsAvailable(ctx context.Context) bool
}

// Usage is token accounting reported by the provider
type Usage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Result is one embedded text
type Result struct {
	Text       string    `json:"text"`
	Vector     []float32 `json:"vector"`
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
	Usage      *Usage    `json:"usage,omitempty"`
}

// Config holds embedding provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout per attempt
	Timeout time.Duration

	// MaxRetries after the first attempt
	MaxRetries int

	// RequestsPerSecond caps provider calls, 0 for unlimited
	RequestsPerSecond float64

	// BatchSize is the maximum number of texts per request
	BatchSize int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// ConfigFromModel converts model.EmbeddingConfig to embedding.Config
func ConfigFromModel(c model.EmbeddingConfig) Config {
	return Config{
		Provider:          c.Provider,
		Model:             c.Model,
		APIKey:            c.APIKey,
		BaseURL:           c.BaseURL,
		Timeout:           c.Timeout,
		MaxRetries:        c.MaxRetries,
		RequestsPerSecond: c.RequestsPerSecond,
		BatchSize:         c.BatchSize,
		HTTPProxy:         c.HTTPProxy,
		HTTPSProxy:        c.HTTPSProxy,
	}
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}

func (c Config) batchSize() int {
	if c.BatchSize <= 0 {
		return 256
	}
	return c.BatchSize
}
