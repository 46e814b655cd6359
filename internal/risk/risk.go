package risk

import (
	"fmt"
	"math"
	"sort"

	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	"github.com/danielpatrickdp/recon-engine/internal/montecarlo"
	"github.com/danielpatrickdp/recon-engine/internal/strike"
	"gonum.org/v1/gonum/stat"
)

// #region metrics
// Metrics summarises the outcome distribution of one strike over sampled worlds.
type Metrics struct {
	ExpectedValue     float64 `json:"expected_value"`
	Variance          float64 `json:"variance"` // population
	StandardDeviation float64 `json:"standard_deviation"`
	CVaR95            float64 `json:"cvar95"`
	CVaR99            float64 `json:"cvar99"`
	WorstCase         float64 `json:"worst_case"`
	BestCase          float64 `json:"best_case"`
	ProbabilityOfLoss float64 `json:"probability_of_loss"`
	ExpectedShortfall float64 `json:"expected_shortfall"` // mean of negative outcomes, 0 if none
	Samples           int     `json:"samples"`
}

// #endregion metrics

// #region evaluate
// Outcomes returns the net value of striking (cx, cy) in each world.
func Outcomes(worlds []montecarlo.World, cx, cy int, cfg strike.Config) ([]float64, error) {
	if len(worlds) == 0 {
		return nil, fmt.Errorf("risk outcomes: no worlds: %w", mathx.ErrInvalidParameter)
	}
	w0 := &worlds[0]
	if cx < 0 || cx >= w0.Width || cy < 0 || cy >= w0.Height {
		return nil, fmt.Errorf("risk outcomes: center (%d,%d): %w", cx, cy, mathx.ErrOutOfBounds)
	}
	area := strike.AreaOfEffect(w0.Width, w0.Height, cx, cy, cfg.Radius)
	return outcomes(worlds, area, cfg), nil
}

func outcomes(worlds []montecarlo.World, area []grid.Point, cfg strike.Config) []float64 {
	out := make([]float64, len(worlds))
	for i := range worlds {
		w := &worlds[i]
		hostiles, infra := 0, 0
		for _, p := range area {
			if w.HostileAt(p.X, p.Y) {
				hostiles++
			}
			if w.InfraAt(p.X, p.Y) {
				infra++
			}
		}
		out[i] = cfg.Reward*float64(hostiles) - cfg.Penalty*float64(infra) - cfg.Cost
	}
	return out
}

// Evaluate computes risk metrics for striking (cx, cy). Worlds are weighted
// equally.
func Evaluate(worlds []montecarlo.World, cx, cy int, cfg strike.Config) (Metrics, error) {
	values, err := Outcomes(worlds, cx, cy, cfg)
	if err != nil {
		return Metrics{}, err
	}
	return Summarize(values), nil
}

// Summarize derives Metrics from a non-empty outcome sample. values is not
// modified.
func Summarize(values []float64) Metrics {
	n := len(values)
	if n == 0 {
		return Metrics{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mean, variance := stat.PopMeanVariance(sorted, nil)
	m := Metrics{
		ExpectedValue:     mean,
		Variance:          variance,
		StandardDeviation: math.Sqrt(variance),
		CVaR95:            tailMean(sorted, 0.05),
		CVaR99:            tailMean(sorted, 0.01),
		WorstCase:         sorted[0],
		BestCase:          sorted[n-1],
		Samples:           n,
	}

	var losses int
	var lossSum float64
	for _, v := range sorted {
		if v >= 0 {
			break
		}
		losses++
		lossSum += v
	}
	m.ProbabilityOfLoss = float64(losses) / float64(n)
	if losses > 0 {
		m.ExpectedShortfall = lossSum / float64(losses)
	}
	return m
}

// tailMean averages the worst max(1, floor(n*alpha)) sorted outcomes.
func tailMean(sorted []float64, alpha float64) float64 {
	k := max(1, int(math.Floor(float64(len(sorted))*alpha)))
	var sum float64
	for _, v := range sorted[:k] {
		sum += v
	}
	return sum / float64(k)
}

// WeightedExpectation is the self-normalized importance-weighted mean value of
// striking (cx, cy). For plain worlds it equals Metrics.ExpectedValue.
func WeightedExpectation(worlds []montecarlo.World, cx, cy int, cfg strike.Config) (float64, error) {
	values, err := Outcomes(worlds, cx, cy, cfg)
	if err != nil {
		return 0, err
	}
	var sum, sumW float64
	for i, v := range values {
		sum += worlds[i].ImportanceWeight * v
		sumW += worlds[i].ImportanceWeight
	}
	if !(sumW > 0) || !mathx.Finite(sum) {
		return 0, fmt.Errorf("weighted expectation at (%d,%d): %w", cx, cy, mathx.ErrDegenerate)
	}
	return sum / sumW, nil
}

// #endregion evaluate

// #region utility
// Utility is the risk-averse score EV - lambda*|CVaR95|.
func Utility(m Metrics, lambda float64) float64 {
	return m.ExpectedValue - lambda*math.Abs(m.CVaR95)
}

// Layers holds per-center risk views in row-major order.
type Layers struct {
	Utility         []float64 `json:"utility"`
	Variance        []float64 `json:"variance"`
	LossProbability []float64 `json:"loss_probability"`
}

// Heatmaps evaluates every cell of g as a strike center against the same
// worlds.
func Heatmaps(worlds []montecarlo.World, g *grid.Grid, cfg strike.Config, lambda float64) (Layers, error) {
	if len(worlds) == 0 {
		return Layers{}, fmt.Errorf("risk heatmaps: no worlds: %w", mathx.ErrInvalidParameter)
	}
	if worlds[0].Width != g.Width || worlds[0].Height != g.Height {
		return Layers{}, fmt.Errorf("risk heatmaps: world %dx%d vs grid %dx%d: %w",
			worlds[0].Width, worlds[0].Height, g.Width, g.Height, mathx.ErrInvalidParameter)
	}
	size := g.Size()
	out := Layers{
		Utility:         make([]float64, size),
		Variance:        make([]float64, size),
		LossProbability: make([]float64, size),
	}
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			area := strike.AreaOfEffect(g.Width, g.Height, x, y, cfg.Radius)
			m := Summarize(outcomes(worlds, area, cfg))
			i := g.Index(x, y)
			out.Utility[i] = Utility(m, lambda)
			out.Variance[i] = m.Variance
			out.LossProbability[i] = m.ProbabilityOfLoss
		}
	}
	return out, nil
}

// #endregion utility
