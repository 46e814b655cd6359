package voi

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	"github.com/danielpatrickdp/recon-engine/internal/rng"
	"github.com/danielpatrickdp/recon-engine/internal/sensor"
	"github.com/danielpatrickdp/recon-engine/internal/strike"
	"github.com/danielpatrickdp/recon-engine/internal/telemetry"
	"github.com/danielpatrickdp/recon-engine/internal/update"
)

// #region config
// Outcome models for hypothetical readings.
const (
	// OutcomeBelief draws the hidden state from the cell's posterior.
	OutcomeBelief = "belief"
	// OutcomeTruth conditions on the actual hidden state supplied by an Oracle.
	OutcomeTruth = "truth"
)

// Config controls the nested simulation.
type Config struct {
	Samples      int    `json:"samples" yaml:"samples"`
	OutcomeModel string `json:"outcome_model" yaml:"outcome_model"`
}

// DefaultConfig samples 32 hypothetical readings from the belief.
func DefaultConfig() Config {
	return Config{Samples: 32, OutcomeModel: OutcomeBelief}
}

// Oracle exposes the hidden hostile state, used only by OutcomeTruth.
type Oracle interface {
	HostileAt(x, y int) bool
}

// #endregion config

// #region estimate
// Estimate is the value of observing one cell before striking.
type Estimate struct {
	Cell      grid.Point  `json:"cell"`
	Sensor    sensor.Kind `json:"sensor"`
	Baseline  float64     `json:"baseline"` // best strike EV without the reading
	Expected  float64     `json:"expected"` // weighted mean best EV after the reading
	VOI       float64     `json:"voi"`
	Net       float64     `json:"net"` // VOI less the effective reconnaissance cost
	Cost      int         `json:"cost"`
	PPositive float64     `json:"p_positive"` // predictive probability of a positive reading
	Samples   int         `json:"samples"`
}

// #endregion estimate

// #region estimator
// Estimator runs the nested value-of-information simulation.
type Estimator struct {
	strike strike.Config
	config Config
	oracle Oracle
}

// NewEstimator builds an estimator. oracle may be nil unless the outcome
// model is OutcomeTruth.
func NewEstimator(strikeCfg strike.Config, config Config, oracle Oracle) (*Estimator, error) {
	switch config.OutcomeModel {
	case OutcomeBelief, "":
		config.OutcomeModel = OutcomeBelief
	case OutcomeTruth:
		if oracle == nil {
			return nil, fmt.Errorf("outcome model %q needs an oracle: %w", OutcomeTruth, mathx.ErrInvalidParameter)
		}
	default:
		return nil, fmt.Errorf("outcome model %q: %w", config.OutcomeModel, mathx.ErrInvalidParameter)
	}
	if config.Samples <= 0 {
		return nil, fmt.Errorf("voi samples %d: %w", config.Samples, mathx.ErrInvalidParameter)
	}
	return &Estimator{strike: strikeCfg, config: config, oracle: oracle}, nil
}

// Baseline returns the EV heatmap and its maximum. Sweeps compute it once and
// pass it to EstimateWith for every candidate.
func (e *Estimator) Baseline(g *grid.Grid) ([]float64, float64) {
	hm := strike.EVHeatmap(g, e.strike)
	best := math.Inf(-1)
	for _, v := range hm {
		if v > best {
			best = v
		}
	}
	return hm, best
}

// Estimate computes VOI for observing (x, y) with a sensor at the given rates.
func (e *Estimator) Estimate(g *grid.Grid, x, y int, rates sensor.Rates, s *rng.Stream) (Estimate, error) {
	hm, best := e.Baseline(g)
	return e.EstimateWith(g, hm, best, x, y, rates, s)
}

// EstimateWith is Estimate against a precomputed baseline heatmap.
//
// Each hypothetical reading changes only the candidate cell's posterior, so
// only strike centers whose area covers that cell need re-scoring; every other
// center keeps its baseline EV. The result equals a full-grid recomputation.
func (e *Estimator) EstimateWith(g *grid.Grid, hm []float64, baseline float64, x, y int, rates sensor.Rates, s *rng.Stream) (Estimate, error) {
	cell, err := g.At(x, y)
	if err != nil {
		return Estimate{}, fmt.Errorf("voi: %w", err)
	}
	telemetry.VOIEstimates.Inc()

	p := cell.Posterior
	pPos := mathx.Clamp(p*rates.TPR+(1-p)*rates.FPR, 0, 1)

	var memo [2]float64
	var have [2]bool
	bestAfter := func(positive bool) float64 {
		k := 0
		if positive {
			k = 1
		}
		if !have[k] {
			memo[k] = e.bestWithPosterior(g, hm, x, y, p, update.Posterior(p, rates.TPR, rates.FPR, positive))
			have[k] = true
		}
		return memo[k]
	}

	var sum, sumW float64
	for i := 0; i < e.config.Samples; i++ {
		var present bool
		if e.config.OutcomeModel == OutcomeTruth {
			present = e.oracle.HostileAt(x, y)
		} else {
			present = s.Bernoulli(p)
		}
		var positive bool
		if present {
			positive = s.Bernoulli(rates.TPR)
		} else {
			positive = s.Bernoulli(rates.FPR)
		}
		w := 1 - pPos
		if positive {
			w = pPos
		}
		sum += w * bestAfter(positive)
		sumW += w
	}

	if sumW <= 0 {
		return Estimate{}, fmt.Errorf("voi at (%d,%d): zero outcome weight: %w", x, y, mathx.ErrDegenerate)
	}
	expected := sum / sumW
	value := expected - baseline
	net := value - float64(rates.Cost)
	if !mathx.Finite(expected) || !mathx.Finite(net) {
		return Estimate{}, fmt.Errorf("voi at (%d,%d): %w", x, y, mathx.ErrDegenerate)
	}

	return Estimate{
		Cell:      grid.Point{X: x, Y: y},
		Sensor:    rates.Kind,
		Baseline:  baseline,
		Expected:  expected,
		VOI:       value,
		Net:       net,
		Cost:      rates.Cost,
		PPositive: pPos,
		Samples:   e.config.Samples,
	}, nil
}

func (e *Estimator) bestWithPosterior(g *grid.Grid, hm []float64, x, y int, oldP, newP float64) float64 {
	delta := e.strike.Reward * (newP - oldP)
	best := math.Inf(-1)
	for cy := 0; cy < g.Height; cy++ {
		for cx := 0; cx < g.Width; cx++ {
			v := hm[g.Index(cx, cy)]
			if strike.Covers(cx, cy, x, y, e.strike.Radius) {
				v += delta
			}
			if v > best {
				best = v
			}
		}
	}
	return best
}

// #endregion estimator
