package rng

import (
	"math"

	"github.com/danielpatrickdp/recon-engine/internal/mathx"
)

// NoiseField returns a row-major width×height field of independent N(0, sigma²) draws.
func (s *Stream) NoiseField(width, height int, sigma float64) []float64 {
	out := make([]float64, width*height)
	for i := range out {
		out[i] = s.Normal(0, sigma)
	}
	return out
}

// Smooth applies a separable Gaussian blur with kernel radius ⌈3σ⌉.
// Samples past the edge reuse the nearest boundary value. sigma <= 0 returns a copy.
func Smooth(field []float64, width, height int, sigma float64) []float64 {
	out := make([]float64, len(field))
	copy(out, field)
	if sigma <= 0 || width <= 0 || height <= 0 {
		return out
	}

	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2
	tmp := make([]float64, len(field))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				xx := clampIndex(x+k, width)
				acc += kernel[k+radius] * field[y*width+xx]
			}
			tmp[y*width+x] = acc
		}
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				yy := clampIndex(y+k, height)
				acc += kernel[k+radius] * tmp[yy*width+x]
			}
			out[y*width+x] = acc
		}
	}
	return out
}

// Logistic maps every value of a field through the sigmoid.
func Logistic(field []float64) []float64 {
	out := make([]float64, len(field))
	for i, v := range field {
		out[i] = mathx.Logistic(v)
	}
	return out
}

func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+radius] = w
		sum += w
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
