// Package match ranks canonical patterns by embedding similarity to a
// query text.
package match

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ppiankov/acsense/internal/cache"
	"github.com/ppiankov/acsense/internal/embedding"
	"github.com/ppiankov/acsense/internal/logging"
	"github.com/ppiankov/acsense/internal/model"
	"github.com/ppiankov/acsense/internal/patterns"
	"github.com/ppiankov/acsense/internal/score"
)

const (
	// DefaultThreshold is the minimum similarity for a match
	DefaultThreshold = 0.80

	// DefaultTopK bounds FindSimilar results
	DefaultTopK = 5
)

// Query narrows a similarity search
type Query struct {
	Category              model.Category // Empty searches every category
	TopK                  int            // Zero uses the matcher's top k
	IncludeBelowThreshold bool
}

// Matcher compares query embeddings against a built pattern index
type Matcher struct {
	provider embedding.Provider
	index    *patterns.Index
	cache    *cache.EmbeddingCache
	scorer   *score.Scorer
	logger   *zap.Logger

	mu        sync.RWMutex
	threshold float64
	topK      int
}

// NewMatcher creates a matcher. cache may be nil.
func NewMatcher(provider embedding.Provider, index *patterns.Index, c *cache.EmbeddingCache, logger *zap.Logger) *Matcher {
	return &Matcher{
		provider:  provider,
		index:     index,
		cache:     c,
		scorer:    score.NewScorer(),
		logger:    logging.OrNop(logger),
		threshold: DefaultThreshold,
		topK:      DefaultTopK,
	}
}

// Threshold returns the current similarity threshold
func (m *Matcher) Threshold() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.threshold
}

// SetThreshold sets the similarity threshold, clamped to [0,1]
func (m *Matcher) SetThreshold(t float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = model.ClampConfidence(t)
}

// TopK returns how many results a query without its own TopK gets
func (m *Matcher) TopK() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.topK
}

// SetTopK sets the default result count. Values below 1 restore
// DefaultTopK.
func (m *Matcher) SetTopK(k int) {
	if k < 1 {
		k = DefaultTopK
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topK = k
}

// Ready reports whether the matcher has a provider and a built index
func (m *Matcher) Ready() bool {
	return m.provider != nil && m.index != nil && m.index.IsLoaded()
}

// Available reports whether the matcher is ready and its provider answers
func (m *Matcher) Available(ctx context.Context) bool {
	return m.Ready() && m.provider.IsAvailable(ctx)
}

// FindSimilar returns patterns ranked by similarity to text, highest
// first. A pattern scores the maximum over its canonical and synonym
// embeddings. An embedding failure yields no matches.
func (m *Matcher) FindSimilar(ctx context.Context, text string, q Query) []model.SimilarityMatch {
	vec, ok := m.embed(ctx, text)
	if !ok {
		return nil
	}
	return m.rank(vec, q)
}

// MatchAction returns the best action match at or above the threshold
func (m *Matcher) MatchAction(ctx context.Context, text string) *model.SimilarityMatch {
	return m.best(ctx, text, model.CategoryAction)
}

// MatchOutcome returns the best outcome match at or above the threshold
func (m *Matcher) MatchOutcome(ctx context.Context, text string) *model.SimilarityMatch {
	return m.best(ctx, text, model.CategoryOutcome)
}

// MatchBoundary returns the best boundary match at or above the threshold
func (m *Matcher) MatchBoundary(ctx context.Context, text string) *model.SimilarityMatch {
	return m.best(ctx, text, model.CategoryBoundary)
}

// MatchAll returns the best action, outcome and boundary matches, nil
// where nothing clears the threshold. The query is embedded once.
func (m *Matcher) MatchAll(ctx context.Context, text string) map[model.Category]*model.SimilarityMatch {
	out := map[model.Category]*model.SimilarityMatch{
		model.CategoryAction:   nil,
		model.CategoryOutcome:  nil,
		model.CategoryBoundary: nil,
	}

	vec, ok := m.embed(ctx, text)
	if !ok {
		return out
	}

	for c := range out {
		if matches := m.rank(vec, Query{Category: c, TopK: 1}); len(matches) > 0 {
			best := matches[0]
			out[c] = &best
		}
	}
	return out
}

// Confidence combines the best action and outcome matches
func (m *Matcher) Confidence(action, outcome *model.SimilarityMatch) float64 {
	c, _ := m.scorer.Embedding(action, outcome)
	return c
}

// Explain renders the top matches, below-threshold included, as text
func (m *Matcher) Explain(ctx context.Context, text string, category model.Category, topK int) string {
	if topK <= 0 {
		topK = 3
	}
	matches := m.FindSimilar(ctx, text, Query{Category: category, TopK: topK, IncludeBelowThreshold: true})
	if len(matches) == 0 {
		return fmt.Sprintf("No matches found for: '%s'", text)
	}

	threshold := m.Threshold()
	lines := []string{fmt.Sprintf("Matches for: '%s'", text), strings.Repeat("-", 40)}
	for i, match := range matches {
		status := "MATCH"
		if match.Score < threshold {
			status = "below threshold"
		}
		lines = append(lines, fmt.Sprintf("%d. [%s] %s (score: %.3f, category: %s)",
			i+1, status, match.PatternText, match.Score, match.Category))
	}
	return strings.Join(lines, "\n")
}

func (m *Matcher) best(ctx context.Context, text string, c model.Category) *model.SimilarityMatch {
	matches := m.FindSimilar(ctx, text, Query{Category: c, TopK: 1})
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

// embed returns the query vector, cache first
func (m *Matcher) embed(ctx context.Context, text string) ([]float32, bool) {
	if m.provider == nil || strings.TrimSpace(text) == "" {
		return nil, false
	}

	if m.cache != nil {
		if r, ok := m.cache.Get(text, m.provider.Model()); ok {
			return r.Vector, true
		}
	}

	r, err := m.provider.Embed(ctx, text)
	if err != nil {
		m.logger.Debug("query embedding failed", zap.Error(err))
		return nil, false
	}

	if m.cache != nil {
		m.cache.Set(*r, 0)
	}
	return r.Vector, true
}

func (m *Matcher) rank(vec []float32, q Query) []model.SimilarityMatch {
	if m.index == nil {
		return nil
	}

	topK := q.TopK
	if topK <= 0 {
		topK = m.TopK()
	}

	var entries []*patterns.Entry
	if q.Category != "" {
		entries = m.index.ByCategory(q.Category)
	} else {
		entries = m.index.All()
	}

	threshold := m.Threshold()
	var matches []model.SimilarityMatch
	for _, e := range entries {
		best := embedding.Cosine(vec, e.Embedding)
		for _, syn := range e.SynonymEmbeddings {
			if s := embedding.Cosine(vec, syn); s > best {
				best = s
			}
		}

		if best >= threshold || q.IncludeBelowThreshold {
			matches = append(matches, model.SimilarityMatch{
				PatternID:   e.PatternID,
				PatternText: e.Canonical,
				Category:    e.Category,
				Score:       best,
				Metadata: model.MatchMetadata{
					Subcategory:   e.Subcategory,
					RegexFallback: e.RegexFallback,
				},
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
