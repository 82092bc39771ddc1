package extract

import (
	"context"

	"github.com/ppiankov/acsense/internal/model"
)

// Strategy extracts semantic components from one normalized bullet.
// Parse never fails: an unusable input yields a zero-confidence result.
type Strategy interface {
	Name() model.Method
	IsAvailable(ctx context.Context) bool
	Parse(ctx context.Context, text string) model.SemanticComponents
}

// Explainer is a strategy that can report the signals behind its
// confidence
type Explainer interface {
	Strategy
	ParseWithSignals(ctx context.Context, text string) (model.SemanticComponents, []model.Signal)
}
