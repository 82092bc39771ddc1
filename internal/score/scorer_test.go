package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/acsense/internal/model"
)

func TestScorer_Regex(t *testing.T) {
	c, signals := NewScorer().Regex()
	assert.Equal(t, 0.6, c)
	assert.Len(t, signals, 1)
}

func TestScorer_Dependency(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		name                  string
		root, subject, object string
		want                  float64
		signals               int
	}{
		{"all parts", "click", "user", "button", 1.0, 3},
		{"root only", "click", "", "", 0.4, 1},
		{"root and subject", "click", "user", "", 0.7, 2},
		{"root and object", "click", "", "button", 0.7, 2},
		{"nothing", "", "", "", 0, 0},
		{"object without root", "", "", "button", 0.3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, signals := s.Dependency(tt.root, tt.subject, tt.object)
			assert.InDelta(t, tt.want, c, 1e-9)
			assert.Len(t, signals, tt.signals)
		})
	}
}

func TestScorer_Embedding(t *testing.T) {
	s := NewScorer()
	action := &model.SimilarityMatch{PatternID: "a", PatternText: "click", Score: 0.9}
	outcome := &model.SimilarityMatch{PatternID: "o", PatternText: "is enabled", Score: 0.8}

	c, signals := s.Embedding(action, outcome)
	assert.InDelta(t, 0.86, c, 1e-9)
	assert.Len(t, signals, 2)

	c, _ = s.Embedding(action, nil)
	assert.InDelta(t, 0.9, c, 1e-9, "single match uses its own score")

	c, _ = s.Embedding(nil, outcome)
	assert.InDelta(t, 0.8, c, 1e-9)

	c, signals = s.Embedding(nil, nil)
	assert.Equal(t, 0.0, c)
	assert.Empty(t, signals)
}
