package faceid

import "testing"

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
		delta    float64
	}{
		{"identical vectors", []float32{1, 0, 0}, []float32{1, 0, 0}, 0.0, 0.001},
		{"opposite vectors", []float32{1, 0, 0}, []float32{-1, 0, 0}, 2.0, 0.001},
		{"orthogonal vectors", []float32{1, 0, 0}, []float32{0, 1, 0}, 1.0, 0.001},
		{"similar vectors", []float32{1, 1, 0}, []float32{1, 0, 0}, 0.293, 0.01},
		{"empty vectors", []float32{}, []float32{}, 2.0, 0.001},
		{"different lengths", []float32{1, 0}, []float32{1, 0, 0}, 2.0, 0.001},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 0, 0}, 2.0, 0.001},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := CosineDistance(tc.a, tc.b)
			if result < tc.expected-tc.delta || result > tc.expected+tc.delta {
				t.Errorf("CosineDistance(%v, %v) = %f; want %f (±%f)",
					tc.a, tc.b, result, tc.expected, tc.delta)
			}
		})
	}
}

func TestCosineDistance_Reflexive(t *testing.T) {
	// Verification of an embedding against itself must always match,
	// regardless of the threshold in use.
	emb := []float32{0.12, -0.5, 0.9, 0.01, -0.33}

	if d := CosineDistance(emb, emb); d > 0.0001 {
		t.Errorf("distance of an embedding to itself should be ~0, got %f", d)
	}
}
