package embedding

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ppiankov/acsense/internal/logging"
	"github.com/ppiankov/acsense/internal/util"
)

const defaultOpenAIModel = "text-embedding-3-small"

// Known output sizes; others are learned from the first response
var openAIDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIProvider embeds text with the OpenAI embeddings API
type OpenAIProvider struct {
	client *openai.Client
	config Config
	model  string
	dims   atomic.Int64
	call   *caller
	logger *zap.Logger

	availOnce sync.Once
	available bool
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = util.NewHTTPClient(0, config.HTTPProxy, config.HTTPSProxy)

	modelName := config.Model
	if modelName == "" {
		modelName = defaultOpenAIModel
	}

	p := &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		model:  modelName,
		call:   newCaller("openai", config),
		logger: logging.OrNop(config.Logger),
	}
	p.dims.Store(int64(openAIDimensions[modelName]))
	return p, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Model returns the embedding model
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Dimensions returns the vector length
func (p *OpenAIProvider) Dimensions() int {
	return int(p.dims.Load())
}

// IsAvailable lists models once and remembers the outcome
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	p.availOnce.Do(func() {
		checkCtx, cancel := context.WithTimeout(ctx, p.config.timeout())
		defer cancel()

		if _, err := p.client.ListModels(checkCtx); err != nil {
			// Surfaces API key problems to the user
			p.logger.Warn("OpenAI API check failed", zap.Error(err))
			return
		}
		p.available = true
	})
	return p.available
}

// Embed embeds a single text
func (p *OpenAIProvider) Embed(ctx context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	results, err := p.create(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", ErrEmbeddingFailed)
	}
	return &results[0], nil
}

// EmbedBatch embeds texts in chunks of the configured batch size
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([]Result, error) {
	return embedChunks(ctx, p.logger, texts, p.config.batchSize(), p.create)
}

func (p *OpenAIProvider) create(ctx context.Context, texts []string) ([]Result, error) {
	var resp openai.EmbeddingResponse

	err := p.call.do(ctx, "embed", func(ctx context.Context) error {
		var err error
		resp, err = p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(p.model),
		})
		if err != nil {
			return fmt.Errorf("OpenAI API error: %w", err)
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("no embeddings from OpenAI")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	usage := &Usage{PromptTokens: resp.Usage.PromptTokens, TotalTokens: resp.Usage.TotalTokens}

	results := make([]Result, 0, len(data))
	for _, d := range data {
		if d.Index < 0 || d.Index >= len(texts) || len(d.Embedding) == 0 {
			continue
		}
		p.dims.CompareAndSwap(0, int64(len(d.Embedding)))
		results = append(results, Result{
			Text:       texts[d.Index],
			Vector:     d.Embedding,
			Model:      p.model,
			Dimensions: len(d.Embedding),
			Usage:      usage,
		})
	}
	return results, nil
}
