package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ppiankov/acsense/internal/logging"
	"github.com/ppiankov/acsense/internal/util"
)

const defaultOllamaModel = "nomic-embed-text"

// OllamaProvider embeds text with a local Ollama server
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
	config     Config
	model      string
	dims       atomic.Int64
	call       *caller
	logger     *zap.Logger

	availOnce sync.Once
	available bool
}

// Ollama API structures
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model           string      `json:"model"`
	Embeddings      [][]float32 `json:"embeddings"`
	PromptEvalCount int         `json:"prompt_eval_count,omitempty"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	modelName := config.Model
	if modelName == "" {
		modelName = defaultOllamaModel
	}

	return &OllamaProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: util.NewHTTPClient(0, config.HTTPProxy, config.HTTPSProxy),
		config:     config,
		model:      modelName,
		call:       newCaller("ollama", config),
		logger:     logging.OrNop(config.Logger),
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Model returns the embedding model
func (p *OllamaProvider) Model() string {
	return p.model
}

// Dimensions returns the vector length, learned from the first response
func (p *OllamaProvider) Dimensions() int {
	return int(p.dims.Load())
}

// IsAvailable checks once that Ollama is running and serves the model
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	p.availOnce.Do(func() {
		p.available = p.checkAvailable(ctx)
	})
	return p.available
}

func (p *OllamaProvider) checkAvailable(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	url := fmt.Sprintf("%s/api/tags", p.baseURL)
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, url, nil)
	if err != nil {
		p.logger.Warn("Ollama availability check failed (request creation)", zap.Error(err))
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Warn("Ollama availability check failed",
			zap.String("base_url", p.baseURL), zap.Error(err))
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn("Ollama availability check failed", zap.Int("status", resp.StatusCode))
		return false
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		p.logger.Warn("Ollama availability check failed (decode)", zap.Error(err))
		return false
	}

	for _, m := range tags.Models {
		if m.Name == p.model || m.Name == p.model+":latest" || m.Model == p.model {
			return true
		}
	}

	p.logger.Warn("Ollama model not pulled", zap.String("model", p.model))
	return false
}

// Embed embeds a single text
func (p *OllamaProvider) Embed(ctx context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	results, err := p.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", ErrEmbeddingFailed)
	}
	return &results[0], nil
}

// EmbedBatch embeds texts in chunks of the configured batch size
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([]Result, error) {
	return embedChunks(ctx, p.logger, texts, p.config.batchSize(), p.embed)
}

func (p *OllamaProvider) embed(ctx context.Context, texts []string) ([]Result, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var decoded ollamaEmbedResponse
	err = p.call.do(ctx, "embed", func(ctx context.Context) error {
		url := fmt.Sprintf("%s/api/embed", p.baseURL)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("Ollama API error: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			var apiErr ollamaError
			if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
				return fmt.Errorf("Ollama API error (status %d): %s", resp.StatusCode, apiErr.Error)
			}
			return fmt.Errorf("Ollama API error (status %d)", resp.StatusCode)
		}

		decoded = ollamaEmbedResponse{}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if len(decoded.Embeddings) == 0 {
			return fmt.Errorf("no embeddings from Ollama")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var usage *Usage
	if decoded.PromptEvalCount > 0 {
		usage = &Usage{PromptTokens: decoded.PromptEvalCount, TotalTokens: decoded.PromptEvalCount}
	}

	results := make([]Result, 0, len(decoded.Embeddings))
	for i, vec := range decoded.Embeddings {
		if i >= len(texts) || len(vec) == 0 {
			continue
		}
		p.dims.CompareAndSwap(0, int64(len(vec)))
		results = append(results, Result{
			Text:       texts[i],
			Vector:     vec,
			Model:      p.model,
			Dimensions: len(vec),
			Usage:      usage,
		})
	}
	return results, nil
}
