package faceid

import "math"

// CosineDistance is the metric every verdict in this package rests on:
// 1 minus the cosine similarity of two face embeddings. 0 means
// identical direction, 2 means opposite. Mismatched lengths, empty and
// zero vectors all report the maximum distance so they can never pass
// a threshold check.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push the ratio slightly outside [-1, 1].
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}
