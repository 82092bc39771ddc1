package embedding

import "math"

// Cosine returns the cosine similarity of a and b. Mismatched lengths and
// zero-magnitude vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}

	if na == 0 || nb == 0 {
		return 0
	}
	// A single sqrt keeps Cosine(v, v) exactly 1
	return math.Max(-1, math.Min(1, dot/math.Sqrt(na*nb)))
}
