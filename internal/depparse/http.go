package depparse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ppiankov/acsense/internal/cache"
	"github.com/ppiankov/acsense/internal/util"
)

// HTTPConfig configures an HTTPEngine
type HTTPConfig struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MemoTTL    time.Duration // Zero disables the parse memo
	HTTPProxy  string
	HTTPSProxy string
}

// HTTPEngine parses through a spaCy-compatible JSON service:
// GET <base>/models lists served models, POST <base>/parse returns tokens
// and entities
type HTTPEngine struct {
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	memo       *cache.MemoryCache[*Doc]
	loaded     atomic.Bool
}

type parseRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

type modelsResponse struct {
	Models []string `json:"models"`
}

type apiError struct {
	Error string `json:"error"`
}

// NewHTTPEngine creates an engine. No network call is made until Load.
func NewHTTPEngine(cfg HTTPConfig) *HTTPEngine {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	e := &HTTPEngine{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		timeout:    timeout,
		httpClient: util.NewHTTPClient(0, cfg.HTTPProxy, cfg.HTTPSProxy),
	}
	if cfg.MemoTTL > 0 {
		e.memo = cache.NewMemoryCache[*Doc](cfg.MemoTTL, 2*cfg.MemoTTL)
	}
	return e
}

// Model returns the parser model name
func (e *HTTPEngine) Model() string {
	return e.model
}

// Load checks that the service is up and serves the model
func (e *HTTPEngine) Load(ctx context.Context) error {
	if e.baseURL == "" {
		return fmt.Errorf("depparse: base URL is required")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", e.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("list models: status %d", resp.StatusCode)
	}

	var models modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return fmt.Errorf("decode models: %w", err)
	}

	for _, m := range models.Models {
		if m == e.model {
			e.loaded.Store(true)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrModelNotFound, e.model)
}

// Parse parses text. Results are memoized by model and text.
func (e *HTTPEngine) Parse(ctx context.Context, text string) (*Doc, error) {
	if !e.loaded.Load() {
		return nil, ErrNotLoaded
	}

	key := e.model + ":" + text
	if e.memo != nil {
		if doc, ok := e.memo.Get(key); ok {
			return doc, nil
		}
	}

	body, err := json.Marshal(parseRequest{Text: text, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/parse", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("parse service error (status %d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("parse service error (status %d)", resp.StatusCode)
	}

	var doc Doc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode parse: %w", err)
	}
	if doc.Text == "" {
		doc.Text = text
	}

	if e.memo != nil {
		e.memo.Set(key, &doc, 0)
	}
	return &doc, nil
}

// Close releases the memo and marks the engine unloaded
func (e *HTTPEngine) Close() error {
	e.loaded.Store(false)
	if e.memo != nil {
		e.memo.Clear()
	}
	e.httpClient.CloseIdleConnections()
	return nil
}
