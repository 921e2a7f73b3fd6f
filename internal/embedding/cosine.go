package embedding

import "math"

// CosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths and zero-norm vectors yield 0.0, which places degraded
// (zero-vector) entries at the bottom of any similarity ranking.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
