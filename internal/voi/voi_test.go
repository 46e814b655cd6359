package voi

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	"github.com/danielpatrickdp/recon-engine/internal/rng"
	"github.com/danielpatrickdp/recon-engine/internal/sensor"
	"github.com/danielpatrickdp/recon-engine/internal/strike"
	"github.com/danielpatrickdp/recon-engine/internal/update"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedOracle bool

func (o fixedOracle) HostileAt(_, _ int) bool { return bool(o) }

func marginalGrid() *grid.Grid {
	return grid.New(3, 1, 0.3, 0.001)
}

func pointStrike() strike.Config {
	return strike.Config{Reward: 10, Penalty: 25, Cost: 3, Radius: 0, CollateralThreshold: 1}
}

func TestIncrementalBestMatchesFullRecompute(t *testing.T) {
	s := rng.New("incremental")
	g := grid.New(6, 5, 0.2, 0.05)
	for i := range g.Cells {
		g.Cells[i].Posterior = mathx.ClampProb(s.Float64())
	}
	cfg := strike.DefaultConfig()
	cfg.Radius = 2
	e, err := NewEstimator(cfg, DefaultConfig(), nil)
	require.NoError(t, err)
	hm, _ := e.Baseline(g)

	for _, pt := range []grid.Point{{X: 0, Y: 0}, {X: 3, Y: 2}, {X: 5, Y: 4}} {
		for _, positive := range []bool{true, false} {
			c, _ := g.At(pt.X, pt.Y)
			newP := update.Posterior(c.Posterior, 0.8, 0.2, positive)

			hyp := g.Clone()
			hyp.Cells[hyp.Index(pt.X, pt.Y)].Posterior = newP
			want := strike.Best(hyp, cfg).EV

			got := e.bestWithPosterior(g, hm, pt.X, pt.Y, c.Posterior, newP)
			assert.InDelta(t, want, got, 1e-9, "cell %v positive=%v", pt, positive)
		}
	}
}

func TestInformativeSensorHasPositiveValue(t *testing.T) {
	e, err := NewEstimator(pointStrike(), Config{Samples: 500, OutcomeModel: OutcomeBelief}, nil)
	require.NoError(t, err)
	rates := sensor.Rates{Kind: sensor.Drone, TPR: 0.99, FPR: 0.01, Cost: 1}

	est, err := e.Estimate(marginalGrid(), 0, 0, rates, rng.New("voi"))
	require.NoError(t, err)
	assert.Greater(t, est.VOI, 0.5)
	assert.InDelta(t, est.VOI-1, est.Net, 1e-12)
	assert.InDelta(t, 0.3*0.99+0.7*0.01, est.PPositive, 1e-12)
}

func TestUninformativeSensorHasNoValue(t *testing.T) {
	e, err := NewEstimator(pointStrike(), DefaultConfig(), nil)
	require.NoError(t, err)
	rates := sensor.Rates{Kind: sensor.SIGINT, TPR: 0.4, FPR: 0.4, Cost: 2}

	est, err := e.Estimate(marginalGrid(), 1, 0, rates, rng.New("flat"))
	require.NoError(t, err)
	assert.InDelta(t, 0, est.VOI, 1e-9)
	assert.InDelta(t, -2, est.Net, 1e-9)
}

func TestEstimateDeterministic(t *testing.T) {
	e, err := NewEstimator(pointStrike(), DefaultConfig(), nil)
	require.NoError(t, err)
	rates := sensor.Rates{Kind: sensor.Drone, TPR: 0.85, FPR: 0.1, Cost: 2}
	a, err := e.Estimate(marginalGrid(), 2, 0, rates, rng.New("same"))
	require.NoError(t, err)
	b, err := e.Estimate(marginalGrid(), 2, 0, rates, rng.New("same"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTruthOutcomeModel(t *testing.T) {
	_, err := NewEstimator(pointStrike(), Config{Samples: 4, OutcomeModel: OutcomeTruth}, nil)
	assert.True(t, errors.Is(err, mathx.ErrInvalidParameter))

	rates := sensor.Rates{Kind: sensor.Drone, TPR: 0.99, FPR: 0.01, Cost: 1}
	present, err := NewEstimator(pointStrike(), Config{Samples: 200, OutcomeModel: OutcomeTruth}, fixedOracle(true))
	require.NoError(t, err)
	absent, err := NewEstimator(pointStrike(), Config{Samples: 200, OutcomeModel: OutcomeTruth}, fixedOracle(false))
	require.NoError(t, err)

	hi, err := present.Estimate(marginalGrid(), 0, 0, rates, rng.New("t"))
	require.NoError(t, err)
	lo, err := absent.Estimate(marginalGrid(), 0, 0, rates, rng.New("t"))
	require.NoError(t, err)
	assert.Greater(t, hi.VOI, lo.VOI)
}

func TestEstimatorRejectsBadConfig(t *testing.T) {
	_, err := NewEstimator(pointStrike(), Config{Samples: 0}, nil)
	assert.True(t, errors.Is(err, mathx.ErrInvalidParameter))
	_, err = NewEstimator(pointStrike(), Config{Samples: 3, OutcomeModel: "oracle"}, nil)
	assert.True(t, errors.Is(err, mathx.ErrInvalidParameter))
}

func TestEstimateOutOfBounds(t *testing.T) {
	e, err := NewEstimator(pointStrike(), DefaultConfig(), nil)
	require.NoError(t, err)
	_, err = e.Estimate(marginalGrid(), 5, 0, sensor.Rates{TPR: 0.8, FPR: 0.2}, rng.New("x"))
	assert.True(t, errors.Is(err, mathx.ErrOutOfBounds))
}
