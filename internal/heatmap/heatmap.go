package heatmap

import (
	"errors"
	"fmt"
	"math"

	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	"github.com/danielpatrickdp/recon-engine/internal/montecarlo"
	"github.com/danielpatrickdp/recon-engine/internal/risk"
	"github.com/danielpatrickdp/recon-engine/internal/rng"
	"github.com/danielpatrickdp/recon-engine/internal/sensor"
	"github.com/danielpatrickdp/recon-engine/internal/strike"
	"github.com/danielpatrickdp/recon-engine/internal/voi"
)

// Layer names.
const (
	LayerPosterior = "posterior"
	LayerEV        = "ev"
	LayerVOI       = "voi"
	LayerRisk      = "risk"
	LayerVariance  = "variance"
	LayerLoss      = "loss"
)

// Names lists every layer in a stable order.
func Names() []string {
	return []string{LayerPosterior, LayerEV, LayerVOI, LayerRisk, LayerVariance, LayerLoss}
}

// #region layer
// Layer is one value per cell in row-major order.
type Layer struct {
	Name   string    `json:"name"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Values []float64 `json:"values"`
}

// At returns the value at (x, y).
func (l Layer) At(x, y int) float64 {
	return l.Values[y*l.Width+x]
}

// Normalized returns a copy scaled to [0, 1].
func (l Layer) Normalized() Layer {
	l.Values = Normalize(l.Values)
	return l
}

// Normalize maps values linearly onto [0, 1]. Non-finite entries map to 0.
// When every finite value is equal (zero range) the result is the constant
// 0.5 rather than a division by zero.
func Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !mathx.Finite(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	for i, v := range values {
		switch {
		case !mathx.Finite(v):
			out[i] = 0
		case !(span > 0):
			out[i] = 0.5
		default:
			out[i] = (v - lo) / span
		}
	}
	return out
}

// #endregion layer

// #region builders
// Posterior is the current belief layer.
func Posterior(g *grid.Grid) Layer {
	return Layer{Name: LayerPosterior, Width: g.Width, Height: g.Height, Values: g.Posteriors()}
}

// EV is the closed-form strike value of every center.
func EV(g *grid.Grid, cfg strike.Config) Layer {
	return Layer{Name: LayerEV, Width: g.Width, Height: g.Height, Values: strike.EVHeatmap(g, cfg)}
}

// VOI is the net value of observing each cell with a sensor at rates. Each
// cell draws from its own stream derived from s. Cells whose estimate is
// degenerate hold 0 and are counted in skipped; any other error aborts.
func VOI(g *grid.Grid, est *voi.Estimator, rates sensor.Rates, s *rng.Stream) (Layer, int, error) {
	hm, baseline := est.Baseline(g)
	out := Layer{Name: LayerVOI, Width: g.Width, Height: g.Height, Values: make([]float64, g.Size())}
	skipped := 0
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			e, err := est.EstimateWith(g, hm, baseline, x, y, rates, s.Derivef("voi-%d-%d", x, y))
			if errors.Is(err, mathx.ErrDegenerate) {
				skipped++
				continue
			}
			if err != nil {
				return Layer{}, skipped, fmt.Errorf("voi layer: %w", err)
			}
			out.Values[g.Index(x, y)] = e.Net
		}
	}
	return out, skipped, nil
}

// Risk returns the risk-averse utility, variance and loss-probability layers
// over the given worlds.
func Risk(g *grid.Grid, worlds []montecarlo.World, cfg strike.Config, lambda float64) ([]Layer, error) {
	layers, err := risk.Heatmaps(worlds, g, cfg, lambda)
	if err != nil {
		return nil, fmt.Errorf("risk layers: %w", err)
	}
	mk := func(name string, v []float64) Layer {
		return Layer{Name: name, Width: g.Width, Height: g.Height, Values: v}
	}
	return []Layer{
		mk(LayerRisk, layers.Utility),
		mk(LayerVariance, layers.Variance),
		mk(LayerLoss, layers.LossProbability),
	}, nil
}

// #endregion builders
