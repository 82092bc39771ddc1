package score

import (
	"fmt"

	"github.com/ppiankov/acsense/internal/model"
)

// Heuristic weights. They are not calibrated probabilities and are kept
// stable so results stay comparable across runs.
const (
	RegexConfidence = 0.6

	RootWeight    = 0.4
	SubjectWeight = 0.3
	ObjectWeight  = 0.3

	ActionWeight  = 0.6
	OutcomeWeight = 0.4
)

// Scorer computes strategy confidences and the signals behind them
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Regex returns the fixed confidence of rule matching
func (s *Scorer) Regex() (float64, []model.Signal) {
	return RegexConfidence, []model.Signal{{
		Type:        model.SignalRuleMatch,
		Weight:      RegexConfidence,
		Description: "Rule matching always yields a result",
	}}
}

// Dependency scores a tree walk: a main verb, a subject and a direct
// object each add weight, capped at 1.0
func (s *Scorer) Dependency(rootVerb, subject, object string) (float64, []model.Signal) {
	var total float64
	var signals []model.Signal

	if rootVerb != "" {
		total += RootWeight
		signals = append(signals, model.Signal{
			Type:        model.SignalRootVerb,
			Weight:      RootWeight,
			Description: fmt.Sprintf("Main verb %q found", rootVerb),
			Data:        map[string]interface{}{"verb": rootVerb},
		})
	}
	if subject != "" {
		total += SubjectWeight
		signals = append(signals, model.Signal{
			Type:        model.SignalSubject,
			Weight:      SubjectWeight,
			Description: fmt.Sprintf("Subject %q resolved", subject),
			Data:        map[string]interface{}{"subject": subject},
		})
	}
	if object != "" {
		total += ObjectWeight
		signals = append(signals, model.Signal{
			Type:        model.SignalObject,
			Weight:      ObjectWeight,
			Description: fmt.Sprintf("Direct object %q resolved", object),
			Data:        map[string]interface{}{"object": object},
		})
	}

	if total > 1.0 {
		total = 1.0
	}
	return total, signals
}

// Embedding combines the best action and outcome matches. With both the
// result is 0.6*action + 0.4*outcome; with one it is that match's score;
// with none it is 0.
func (s *Scorer) Embedding(action, outcome *model.SimilarityMatch) (float64, []model.Signal) {
	var signals []model.Signal

	switch {
	case action != nil && outcome != nil:
		signals = append(signals,
			matchSignal(model.SignalActionMatch, ActionWeight*action.Score, action),
			matchSignal(model.SignalOutcomeMatch, OutcomeWeight*outcome.Score, outcome))
		return model.ClampConfidence(ActionWeight*action.Score + OutcomeWeight*outcome.Score), signals

	case action != nil:
		signals = append(signals, matchSignal(model.SignalActionMatch, action.Score, action))
		return model.ClampConfidence(action.Score), signals

	case outcome != nil:
		signals = append(signals, matchSignal(model.SignalOutcomeMatch, outcome.Score, outcome))
		return model.ClampConfidence(outcome.Score), signals
	}

	return 0, nil
}

func matchSignal(t model.SignalType, weight float64, m *model.SimilarityMatch) model.Signal {
	return model.Signal{
		Type:        t,
		Weight:      weight,
		Description: fmt.Sprintf("Matched %q (%.3f)", m.PatternText, m.Score),
		Data: map[string]interface{}{
			"pattern_id": m.PatternID,
			"score":      m.Score,
		},
	}
}
