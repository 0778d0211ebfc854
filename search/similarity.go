package search

import (
	"math"

	"github.com/poiesic/athena/core"
)

// CosineSimilarity returns dot(a, b) / (|a| |b|), accumulated in float64.
// Vectors of different length return a *core.LengthMismatchError. A zero
// vector scores 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &core.LengthMismatchError{Expected: len(a), Actual: len(b)}
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
