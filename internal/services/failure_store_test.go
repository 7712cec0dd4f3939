package services

import (
	"math"
	"testing"
)

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		distance float64
	}{
		{
			name:     "identical direction",
			a:        []float64{1, 2, 3},
			b:        []float64{2, 4, 6},
			distance: 0,
		},
		{
			name:     "orthogonal",
			a:        []float64{1, 0},
			b:        []float64{0, 1},
			distance: 1,
		},
		{
			name:     "opposite",
			a:        []float64{1, 0},
			b:        []float64{-1, 0},
			distance: 2,
		},
		{
			name:     "mismatched lengths",
			a:        []float64{1, 0},
			b:        []float64{1, 0, 0},
			distance: 2,
		},
		{
			name:     "zero vector",
			a:        []float64{0, 0},
			b:        []float64{1, 0},
			distance: 2,
		},
		{
			name:     "empty vectors",
			a:        nil,
			b:        nil,
			distance: 2,
		},
	}

	for _, test := range tests {
		distance := CosineDistance(test.a, test.b)
		if math.Abs(distance-test.distance) > 1e-9 {
			t.Errorf("%s: expected distance %v, got %v", test.name, test.distance, distance)
		}
	}
}

func TestCosineDistanceRange(t *testing.T) {
	a := []float64{0.3, -0.7, 0.2, 0.9}
	b := []float64{-0.5, 0.1, 0.8, -0.2}
	distance := CosineDistance(a, b)
	if distance < 0 || distance > 2 {
		t.Errorf("Distance out of [0, 2]: %v", distance)
	}
}
