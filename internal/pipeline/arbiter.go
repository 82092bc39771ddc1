package pipeline

import (
	"context"
	"regexp"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ppiankov/acsense/internal/extract"
	"github.com/ppiankov/acsense/internal/logging"
	"github.com/ppiankov/acsense/internal/match"
	"github.com/ppiankov/acsense/internal/metrics"
	"github.com/ppiankov/acsense/internal/model"
)

// explainTopK bounds the per-category matches in an explain report
const explainTopK = 3

var capitalizedRe = regexp.MustCompile(`\b[A-Z][a-zA-Z]*\b`)

// Stage is one strategy in the chain with its acceptance threshold
type Stage struct {
	Strategy  extract.Strategy
	Threshold float64
}

// entityExtractor is implemented by strategies that see named entities
type entityExtractor interface {
	ExtractEntities(ctx context.Context, text string) []string
}

// Arbiter runs strategies in order and returns the first result that
// meets its stage threshold. Rule matching closes every chain, so Parse
// always returns a result.
type Arbiter struct {
	stages   []Stage
	fallback *extract.PatternExtractor
	logger   *zap.Logger
	metrics  *metrics.Metrics
	last     atomic.Value // model.Method
}

// NewArbiter creates an arbiter over stages, tried in the given order
func NewArbiter(stages []Stage, logger *zap.Logger, m *metrics.Metrics) *Arbiter {
	a := &Arbiter{
		stages:   stages,
		fallback: extract.NewPatternExtractor(),
		logger:   logging.OrNop(logger),
		metrics:  m,
	}
	a.last.Store(model.MethodNone)
	return a
}

// Stages returns the configured chain
func (a *Arbiter) Stages() []Stage {
	return append([]Stage(nil), a.stages...)
}

// Parse normalizes text once and returns the first accepted result
func (a *Arbiter) Parse(ctx context.Context, text string) model.SemanticComponents {
	normalized := extract.Normalize(text)

	for _, st := range a.stages {
		if !st.Strategy.IsAvailable(ctx) {
			continue
		}
		sc := st.Strategy.Parse(ctx, normalized)
		if sc.Confidence >= st.Threshold {
			a.record(sc.Method)
			return sc
		}
		a.logger.Debug("strategy below threshold",
			zap.String("method", string(st.Strategy.Name())),
			zap.Float64("confidence", sc.Confidence),
			zap.Float64("threshold", st.Threshold))
	}

	sc := a.fallback.Parse(ctx, normalized)
	a.record(sc.Method)
	return sc
}

// LastMethod returns the method of the most recent Parse
func (a *Arbiter) LastMethod() model.Method {
	return a.last.Load().(model.Method)
}

// Explain runs every stage and reports all candidates without picking one
func (a *Arbiter) Explain(ctx context.Context, text string) model.ExplainReport {
	normalized := extract.Normalize(text)
	report := model.ExplainReport{
		Input:      text,
		Normalized: normalized,
	}

	stages := a.stages
	if !a.endsWithRegex() {
		stages = append(append([]Stage(nil), stages...), Stage{Strategy: a.fallback})
	}

	for _, st := range stages {
		c := model.Candidate{
			Method:    st.Strategy.Name(),
			Available: st.Strategy.IsAvailable(ctx),
			Threshold: st.Threshold,
		}
		if c.Available {
			var sc model.SemanticComponents
			if ex, ok := st.Strategy.(extract.Explainer); ok {
				sc, c.Signals = ex.ParseWithSignals(ctx, normalized)
			} else {
				sc = st.Strategy.Parse(ctx, normalized)
			}
			c.Result = &sc
			c.MeetsThreshold = sc.Confidence >= st.Threshold
		}
		report.Candidates = append(report.Candidates, c)
	}

	if m := a.matcher(ctx); m != nil {
		report.Matches = make(map[model.Category][]model.SimilarityMatch)
		for _, cat := range model.Categories {
			matches := m.FindSimilar(ctx, normalized, match.Query{
				Category:              cat,
				TopK:                  explainTopK,
				IncludeBelowThreshold: true,
			})
			if len(matches) > 0 {
				report.Matches[cat] = matches
			}
		}
	}
	return report
}

// ExtractEntities returns named entities from the first strategy that
// can see them, else capitalized words in order of appearance
func (a *Arbiter) ExtractEntities(ctx context.Context, text string) []string {
	normalized := extract.Normalize(text)
	for _, st := range a.stages {
		if ee, ok := st.Strategy.(entityExtractor); ok && st.Strategy.IsAvailable(ctx) {
			return ee.ExtractEntities(ctx, normalized)
		}
	}

	seen := make(map[string]bool)
	var out []string
	for _, w := range capitalizedRe.FindAllString(normalized, -1) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

// ActionTargetOutcome parses text and flattens the result
func (a *Arbiter) ActionTargetOutcome(ctx context.Context, text string) (string, string, string) {
	return a.Parse(ctx, text).ActionTargetOutcome()
}

func (a *Arbiter) record(method model.Method) {
	a.last.Store(method)
	a.metrics.MethodSelected(string(method))
}

func (a *Arbiter) endsWithRegex() bool {
	n := len(a.stages)
	return n > 0 && a.stages[n-1].Strategy.Name() == model.MethodRegex
}

// matcher returns the similarity matcher of an available embedding stage
func (a *Arbiter) matcher(ctx context.Context) *match.Matcher {
	for _, st := range a.stages {
		if ee, ok := st.Strategy.(*extract.EmbeddingExtractor); ok && ee.IsAvailable(ctx) {
			return ee.Matcher()
		}
	}
	return nil
}
