// Package embeddingtest provides a deterministic in-process provider for
// tests that need embeddings without network access.
package embeddingtest

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/ppiankov/acsense/internal/embedding"
)

// Dimensions is the vector length the fake produces
const Dimensions = 64

// Provider hashes words into a bag-of-words vector. Texts sharing words
// get positive similarity; identical texts score 1.
type Provider struct {
	ModelName   string
	Unavailable bool
	Fail        map[string]bool      // Texts that fail to embed
	Vectors     map[string][]float32 // Explicit vectors by exact text

	mu         sync.Mutex
	embedCalls int
	batchCalls int
	embedded   []string
}

// New returns an available fake provider
func New() *Provider {
	return &Provider{
		ModelName: "fake-embed",
		Fail:      map[string]bool{},
		Vectors:   map[string][]float32{},
	}
}

// Name returns the provider name
func (p *Provider) Name() string { return "fake" }

// Model returns the model name
func (p *Provider) Model() string { return p.ModelName }

// Dimensions returns the vector length
func (p *Provider) Dimensions() int { return Dimensions }

// IsAvailable reports the configured availability
func (p *Provider) IsAvailable(ctx context.Context) bool { return !p.Unavailable }

// Embed embeds one text
func (p *Provider) Embed(ctx context.Context, text string) (*embedding.Result, error) {
	p.mu.Lock()
	p.embedCalls++
	p.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return nil, embedding.ErrEmptyInput
	}
	r, err := p.one(text)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// EmbedBatch embeds texts, silently dropping those marked to fail
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([]embedding.Result, error) {
	p.mu.Lock()
	p.batchCalls++
	p.mu.Unlock()

	var out []embedding.Result
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		r, err := p.one(t)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (p *Provider) one(text string) (embedding.Result, error) {
	if p.Unavailable || p.Fail[text] {
		return embedding.Result{}, fmt.Errorf("%w: fake failure for %q", embedding.ErrEmbeddingFailed, text)
	}

	p.mu.Lock()
	p.embedded = append(p.embedded, text)
	p.mu.Unlock()

	vec, ok := p.Vectors[text]
	if !ok {
		vec = Vector(text)
	}
	return embedding.Result{
		Text:       text,
		Vector:     vec,
		Model:      p.ModelName,
		Dimensions: len(vec),
	}, nil
}

// Calls returns how many Embed and EmbedBatch calls were made
func (p *Provider) Calls() (embed, batch int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.embedCalls, p.batchCalls
}

// Embedded returns every text that reached the provider, in order
func (p *Provider) Embedded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.embedded...)
}

// Vector is the deterministic bag-of-words vector for text
func Vector(text string) []float32 {
	vec := make([]float32, Dimensions)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%Dimensions]++
	}
	return vec
}
