// Package patterns holds the canonical pattern set and its precomputed
// embeddings.
package patterns

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ppiankov/acsense/internal/cache"
	"github.com/ppiankov/acsense/internal/embedding"
	"github.com/ppiankov/acsense/internal/logging"
	"github.com/ppiankov/acsense/internal/metrics"
	"github.com/ppiankov/acsense/internal/model"
)

// ErrNoPatterns is returned by Build when no pattern could be embedded
var ErrNoPatterns = errors.New("patterns: no patterns embedded")

// Entry is a pattern with its canonical and synonym embeddings.
// Immutable once built.
type Entry struct {
	PatternID         string
	Canonical         string
	Category          model.Category
	Subcategory       string
	Synonyms          []string
	Embedding         []float32
	SynonymEmbeddings [][]float32
	RegexFallback     string
}

// Vectors returns the canonical embedding followed by synonym embeddings
func (e *Entry) Vectors() [][]float32 {
	out := make([][]float32, 0, 1+len(e.SynonymEmbeddings))
	out = append(out, e.Embedding)
	return append(out, e.SynonymEmbeddings...)
}

// Index maps pattern ids to entries and categories to ids
type Index struct {
	defs     []model.PatternDefinition
	provider embedding.Provider
	cache    *cache.EmbeddingCache
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu         sync.RWMutex
	patterns   map[string]*Entry
	order      []string
	byCategory map[model.Category][]string
	loaded     bool
}

// Option configures an Index
type Option func(*Index)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(ix *Index) { ix.logger = logging.OrNop(l) }
}

// WithMetrics reports the loaded pattern count
func WithMetrics(m *metrics.Metrics) Option {
	return func(ix *Index) { ix.metrics = m }
}

// NewIndex creates an unbuilt index. cache may be nil.
func NewIndex(defs []model.PatternDefinition, provider embedding.Provider, c *cache.EmbeddingCache, opts ...Option) *Index {
	ix := &Index{
		defs:       defs,
		provider:   provider,
		cache:      c,
		logger:     zap.NewNop(),
		patterns:   map[string]*Entry{},
		byCategory: map[model.Category][]string{},
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Build embeds every canonical and synonym text, cache first, and
// replaces the index contents. A pattern whose canonical text cannot be
// embedded is skipped with a warning.
func (ix *Index) Build(ctx context.Context) error {
	if ix.provider == nil {
		return errors.New("patterns: no embedding provider")
	}

	vectors := ix.embedAll(ctx, ix.distinctTexts())

	patterns := make(map[string]*Entry, len(ix.defs))
	order := make([]string, 0, len(ix.defs))
	byCategory := make(map[model.Category][]string)

	for _, def := range ix.defs {
		canonical, ok := vectors[def.Canonical]
		if !ok {
			ix.logger.Warn("failed to embed pattern, skipping",
				zap.String("pattern_id", def.ID))
			continue
		}

		var synVecs [][]float32
		for _, syn := range def.Synonyms {
			if v, ok := vectors[syn]; ok {
				synVecs = append(synVecs, v)
			}
		}

		patterns[def.ID] = &Entry{
			PatternID:         def.ID,
			Canonical:         def.Canonical,
			Category:          def.Category,
			Subcategory:       def.Subcategory,
			Synonyms:          append([]string(nil), def.Synonyms...),
			Embedding:         canonical,
			SynonymEmbeddings: synVecs,
			RegexFallback:     def.RegexFallback,
		}
		order = append(order, def.ID)
		byCategory[def.Category] = append(byCategory[def.Category], def.ID)
	}

	if len(patterns) == 0 {
		return ErrNoPatterns
	}

	ix.mu.Lock()
	ix.patterns = patterns
	ix.order = order
	ix.byCategory = byCategory
	ix.loaded = true
	ix.mu.Unlock()

	ix.metrics.PatternsLoaded(len(patterns))
	ix.logger.Info("pattern index built",
		zap.Int("patterns", len(patterns)),
		zap.Int("definitions", len(ix.defs)))
	return nil
}

func (ix *Index) distinctTexts() []string {
	seen := make(map[string]bool)
	var texts []string
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			texts = append(texts, t)
		}
	}
	for _, def := range ix.defs {
		add(def.Canonical)
		for _, syn := range def.Synonyms {
			add(syn)
		}
	}
	return texts
}

// embedAll returns vectors by text. Cache hits skip the provider and new
// vectors are written back.
func (ix *Index) embedAll(ctx context.Context, texts []string) map[string][]float32 {
	out := make(map[string][]float32, len(texts))
	modelName := ix.provider.Model()

	misses := texts
	if ix.cache != nil {
		var hits map[string]embedding.Result
		hits, misses = ix.cache.GetBatch(texts, modelName)
		for t, r := range hits {
			out[t] = r.Vector
		}
	}

	if len(misses) == 0 {
		return out
	}

	ix.logger.Info("computing pattern embeddings", zap.Int("texts", len(misses)))
	computed, err := ix.provider.EmbedBatch(ctx, misses)
	if err != nil {
		ix.logger.Warn("pattern embedding batch failed", zap.Error(err))
	}

	for _, r := range computed {
		out[r.Text] = r.Vector
	}
	if ix.cache != nil {
		ix.cache.SetBatch(computed, 0)
	}
	return out
}

// ByCategory returns the entries of a category in definition order
func (ix *Index) ByCategory(category model.Category) []*Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ids := ix.byCategory[category]
	out := make([]*Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := ix.patterns[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// All returns every entry in definition order
func (ix *Index) All() []*Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]*Entry, 0, len(ix.order))
	for _, id := range ix.order {
		out = append(out, ix.patterns[id])
	}
	return out
}

// ByID returns one entry
func (ix *Index) ByID(id string) (*Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.patterns[id]
	return e, ok
}

// Categories returns the categories that have at least one entry
func (ix *Index) Categories() []model.Category {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []model.Category
	for _, c := range model.Categories {
		if len(ix.byCategory[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// SearchByText finds the entry whose canonical text or a synonym equals
// text, ignoring case and surrounding space
func (ix *Index) SearchByText(text string) (*Entry, bool) {
	needle := strings.ToLower(strings.TrimSpace(text))

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	for _, id := range ix.order {
		e := ix.patterns[id]
		if strings.ToLower(e.Canonical) == needle {
			return e, true
		}
		for _, syn := range e.Synonyms {
			if strings.ToLower(syn) == needle {
				return e, true
			}
		}
	}
	return nil, false
}

// Count returns the number of built entries
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.patterns)
}

// IsLoaded reports whether Build has succeeded
func (ix *Index) IsLoaded() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.loaded
}

// Provider returns the provider used for pattern embeddings
func (ix *Index) Provider() embedding.Provider {
	return ix.provider
}

// Cache returns the embedding cache, possibly nil
func (ix *Index) Cache() *cache.EmbeddingCache {
	return ix.cache
}
