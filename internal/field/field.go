package field

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	"github.com/danielpatrickdp/recon-engine/internal/rng"
	"gonum.org/v1/gonum/stat"
)

// #region config
// Config holds the latent-field and Beta-prior hyperparameters.
type Config struct {
	NoiseStd       float64 `json:"noise_std" yaml:"noise_std"`             // std of the raw Gaussian noise
	SmoothingSigma float64 `json:"smoothing_sigma" yaml:"smoothing_sigma"` // spatial correlation length in cells
	HostileBase    float64 `json:"hostile_base" yaml:"hostile_base"`       // base hostile probability (bias = logit)
	InfraBase      float64 `json:"infra_base" yaml:"infra_base"`
	InfraJitter    float64 `json:"infra_jitter" yaml:"infra_jitter"`
	PriorAlpha     float64 `json:"prior_alpha" yaml:"prior_alpha"`
	PriorBeta      float64 `json:"prior_beta" yaml:"prior_beta"`
	SamplePrior    bool    `json:"sample_prior" yaml:"sample_prior"` // draw per-cell beliefs instead of using the prior mean
}

// DefaultConfig returns moderate clustering with a 15% hostile base rate.
func DefaultConfig() Config {
	return Config{
		NoiseStd:       1.5,
		SmoothingSigma: 1.5,
		HostileBase:    0.15,
		InfraBase:      0.08,
		InfraJitter:    0.03,
		PriorAlpha:     1.5,
		PriorBeta:      8.5,
		SamplePrior:    false,
	}
}

// #endregion config

// #region truth-field
// TruthField is the hidden world for one episode: latent probability fields and
// the boolean ground truth sampled from them. Slices are row-major.
type TruthField struct {
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Hostile      []float64 `json:"hostile"`
	Infra        []float64 `json:"infra"`
	HostileTruth []bool    `json:"hostile_truth"`
	InfraTruth   []bool    `json:"infra_truth"`
}

// HostileAt reports the hidden hostile state at (x, y). Out-of-bounds is false.
func (t *TruthField) HostileAt(x, y int) bool {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return false
	}
	return t.HostileTruth[y*t.Width+x]
}

// InfraAt reports the hidden infrastructure state at (x, y). Out-of-bounds is false.
func (t *TruthField) InfraAt(x, y int) bool {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return false
	}
	return t.InfraTruth[y*t.Width+x]
}

// #endregion truth-field

// #region generate
// Generate synthesizes the latent fields and samples ground truth. Each stage
// draws from its own sub-stream of s.
func Generate(width, height int, cfg Config, s *rng.Stream) *TruthField {
	n := width * height

	noise := s.Derive("hostile-field").NoiseField(width, height, cfg.NoiseStd)
	smoothed := rng.Smooth(noise, width, height, cfg.SmoothingSigma)
	bias := mathx.Logit(cfg.HostileBase)
	hostile := make([]float64, n)
	for i, v := range smoothed {
		hostile[i] = mathx.ClampProb(mathx.Logistic(v + bias))
	}

	infraStream := s.Derive("infra-field")
	infra := make([]float64, n)
	for i := range infra {
		infra[i] = mathx.ClampOdds(cfg.InfraBase + infraStream.Normal(0, cfg.InfraJitter))
	}

	hostileTruth := make([]bool, n)
	ht := s.Derive("hostile-truth")
	for i, p := range hostile {
		hostileTruth[i] = ht.Bernoulli(p)
	}
	infraTruth := make([]bool, n)
	it := s.Derive("infra-truth")
	for i, p := range infra {
		infraTruth[i] = it.Bernoulli(p)
	}

	return &TruthField{
		Width:        width,
		Height:       height,
		Hostile:      hostile,
		Infra:        infra,
		HostileTruth: hostileTruth,
		InfraTruth:   infraTruth,
	}
}

// InitialBelief returns the starting posterior for every cell: the Beta prior
// mean, or per-cell Beta draws when SamplePrior is set.
func InitialBelief(width, height int, cfg Config, s *rng.Stream) ([]float64, error) {
	if cfg.PriorAlpha <= 0 || cfg.PriorBeta <= 0 {
		return nil, fmt.Errorf("beta prior (%v, %v): %w", cfg.PriorAlpha, cfg.PriorBeta, mathx.ErrInvalidParameter)
	}
	out := make([]float64, width*height)
	if !cfg.SamplePrior {
		mean := mathx.ClampProb(cfg.PriorAlpha / (cfg.PriorAlpha + cfg.PriorBeta))
		for i := range out {
			out[i] = mean
		}
		return out, nil
	}
	bs := s.Derive("belief-prior")
	for i := range out {
		v, err := bs.Beta(cfg.PriorAlpha, cfg.PriorBeta)
		if err != nil {
			return nil, fmt.Errorf("sample prior: %w", err)
		}
		out[i] = mathx.ClampProb(v)
	}
	return out, nil
}

// NewGrid assembles a belief grid from a truth field and starting beliefs.
func NewGrid(truth *TruthField, belief []float64) (*grid.Grid, error) {
	if len(belief) != truth.Width*truth.Height {
		return nil, fmt.Errorf("belief has %d cells, field has %d: %w",
			len(belief), truth.Width*truth.Height, mathx.ErrInvalidParameter)
	}
	g := &grid.Grid{Width: truth.Width, Height: truth.Height, Cells: make([]grid.Cell, len(belief))}
	for i := range g.Cells {
		g.Cells[i] = grid.Cell{
			X:            i % truth.Width,
			Y:            i / truth.Width,
			Posterior:    mathx.ClampProb(belief[i]),
			HostilePrior: truth.Hostile[i],
			InfraPrior:   truth.Infra[i],
		}
	}
	return g, nil
}

// #endregion generate

// #region analytics
// Correlation is the Pearson correlation of two fields. A zero-variance field
// yields 0 rather than NaN.
func Correlation(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("correlation of %d and %d values: %w", len(a), len(b), mathx.ErrInvalidParameter)
	}
	if len(a) < 2 {
		return 0, nil
	}
	r := stat.Correlation(a, b, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, nil
	}
	return r, nil
}

// SpatialAccuracy is the fraction of cells where belief >= threshold agrees
// with the truth flag.
func SpatialAccuracy(belief []float64, truth []bool, threshold float64) (float64, error) {
	if len(belief) != len(truth) {
		return 0, fmt.Errorf("accuracy of %d beliefs vs %d truths: %w", len(belief), len(truth), mathx.ErrInvalidParameter)
	}
	if len(belief) == 0 {
		return 0, nil
	}
	match := 0
	for i, p := range belief {
		if (p >= threshold) == truth[i] {
			match++
		}
	}
	return float64(match) / float64(len(belief)), nil
}

// #endregion analytics
