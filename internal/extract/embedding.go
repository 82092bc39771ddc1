package extract

import (
	"context"
	"strings"

	"github.com/ppiankov/acsense/internal/match"
	"github.com/ppiankov/acsense/internal/model"
	"github.com/ppiankov/acsense/internal/score"
)

// negativeCanonicals mark a matched pattern as a negative scenario
var negativeCanonicals = set("disable", "hide", "is disabled", "is hidden", "cannot", "no selection")

// EmbeddingExtractor maps a bullet onto its closest canonical action,
// outcome and boundary patterns
type EmbeddingExtractor struct {
	matcher *match.Matcher
	scorer  *score.Scorer
}

// NewEmbeddingExtractor wraps matcher. A nil matcher is never available.
func NewEmbeddingExtractor(matcher *match.Matcher) *EmbeddingExtractor {
	return &EmbeddingExtractor{matcher: matcher, scorer: score.NewScorer()}
}

// Name returns the method tag
func (e *EmbeddingExtractor) Name() model.Method { return model.MethodEmbedding }

// IsAvailable reports whether the index is built and the provider answers
func (e *EmbeddingExtractor) IsAvailable(ctx context.Context) bool {
	return e.matcher != nil && e.matcher.Available(ctx)
}

// Matcher returns the underlying matcher, nil when none was configured
func (e *EmbeddingExtractor) Matcher() *match.Matcher {
	return e.matcher
}

// Parse extracts components from the best pattern matches
func (e *EmbeddingExtractor) Parse(ctx context.Context, text string) model.SemanticComponents {
	sc, _ := e.ParseWithSignals(ctx, text)
	return sc
}

// ParseWithSignals is Parse plus the matches behind the confidence
func (e *EmbeddingExtractor) ParseWithSignals(ctx context.Context, text string) (model.SemanticComponents, []model.Signal) {
	sc := model.Empty(model.MethodEmbedding)
	if !e.IsAvailable(ctx) {
		return sc, nil
	}

	best := e.matcher.MatchAll(ctx, text)
	action := best[model.CategoryAction]
	outcome := best[model.CategoryOutcome]
	boundary := best[model.CategoryBoundary]

	sc.Subject = "user"
	if action != nil {
		if fields := strings.Fields(action.PatternText); len(fields) > 0 {
			sc.ActionVerb = fields[0]
		}
		sc.DirectObject = action.PatternText
		sc.Negation = negativeCanonicals[action.PatternText]
	}
	if outcome != nil {
		sc.Outcome = outcome.PatternText
		sc.Negation = sc.Negation || negativeCanonicals[outcome.PatternText]
	}
	if boundary != nil {
		sc.Modifiers = append(sc.Modifiers, boundary.PatternText)
	}

	conf, signals := e.scorer.Embedding(action, outcome)
	sc.Confidence = conf
	return sc, signals
}
