package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosine_SelfSimilarityIsExact(t *testing.T) {
	for _, v := range [][]float32{
		{1, 1},
		{1, 2, 3},
		{0.1, -0.7, 0.33, 12.5},
		{1e-3, 4e3},
	} {
		assert.Equal(t, 1.0, Cosine(v, v), "%v", v)
	}
}

func TestCosine_Bounded(t *testing.T) {
	a := []float32{0.3, 0.3, 0.3}
	b := []float32{0.6, 0.6, 0.6}
	got := Cosine(a, b)
	assert.LessOrEqual(t, got, 1.0)
	assert.InDelta(t, 1.0, got, 1e-12)
	assert.GreaterOrEqual(t, Cosine(a, []float32{-0.6, -0.6, -0.6}), -1.0)
}
