package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSmoothPreservesConstantField(t *testing.T) {
	field := make([]float64, 6*4)
	for i := range field {
		field[i] = 2.5
	}
	out := Smooth(field, 6, 4, 1.3)
	for i, v := range out {
		assert.InDelta(t, 2.5, v, 1e-12, "cell %d", i)
	}
}

func TestSmoothReducesVariance(t *testing.T) {
	s := New("smooth")
	w, h := 20, 20
	raw := s.NoiseField(w, h, 1)
	smoothed := Smooth(raw, w, h, 2)
	assert.Less(t, variance(smoothed), variance(raw)/2)
}

func TestSmoothZeroSigmaCopies(t *testing.T) {
	raw := []float64{1, 2, 3, 4}
	out := Smooth(raw, 2, 2, 0)
	assert.Equal(t, raw, out)
	out[0] = 9
	assert.Equal(t, 1.0, raw[0])
}

func TestLogisticFieldBounded(t *testing.T) {
	out := Logistic([]float64{-50, 0, 50})
	assert.InDelta(t, 0.5, out[1], 1e-12)
	for _, v := range out {
		assert.True(t, v >= 0 && v <= 1)
	}
}

func variance(xs []float64) float64 {
	var sum, sumSq float64
	for _, x := range xs {
		sum += x
		sumSq += x * x
	}
	n := float64(len(xs))
	m := sum / n
	return sumSq/n - m*m
}
