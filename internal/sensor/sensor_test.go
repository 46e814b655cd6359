package sensor

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	"github.com/danielpatrickdp/recon-engine/internal/rng"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveNeutralContextMatchesBase(t *testing.T) {
	for _, k := range Kinds() {
		spec, ok := Lookup(k)
		require.True(t, ok)
		r, err := Effective(k, NeutralContext())
		require.NoError(t, err)
		assert.InDelta(t, spec.BaseTPR, r.TPR, 1e-12, "%s tpr", k)
		assert.InDelta(t, spec.BaseFPR, r.FPR, 1e-12, "%s fpr", k)
		assert.Equal(t, int(spec.BaseCost), r.Cost, "%s cost", k)
	}
}

func TestEffectiveAppliesModifiers(t *testing.T) {
	ctx := NeutralContext()
	ctx.Weather = Fog
	ctx.Lighting = Night
	r, err := Effective(Drone, ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.85*0.7*0.6, r.TPR, 1e-12)
	assert.InDelta(t, 0.10*1.4*1.5, r.FPR, 1e-12)
}

func TestEffectiveClampsRates(t *testing.T) {
	ctx := Context{Terrain: Urban, Lighting: Day, Weather: Clear, Concealment: NoConcealment, Jamming: HeavyJamming}
	r, err := Effective(SIGINT, ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, r.TPR, 0.01)
	assert.LessOrEqual(t, r.FPR, 0.99)

	worst := Context{Terrain: Forest, Lighting: Night, Weather: Storm, Concealment: HeavyConcealment, Jamming: HeavyJamming}
	r, err = Effective(Drone, worst)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, r.TPR, 0.01)
	assert.LessOrEqual(t, r.TPR, 0.99)
	assert.LessOrEqual(t, r.FPR, 0.99)
}

func TestEffectiveCostRoundsUp(t *testing.T) {
	ctx := NeutralContext()
	ctx.Terrain = Mountain
	r, err := Effective(Drone, ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Cost) // 2 × 1.5

	ctx.Weather = Storm
	r, err = Effective(Patrol, ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, r.Cost) // ceil(4 × 1.75 × 1.5) = ceil(10.5)
}

func TestEffectiveUnknownKind(t *testing.T) {
	_, err := Effective(Kind("sonar"), NeutralContext())
	assert.True(t, errors.Is(err, mathx.ErrInvalidParameter))
}

func TestSampleContextIsWeighted(t *testing.T) {
	s := rng.New("context")
	open, mountain := 0, 0
	for i := 0; i < 5000; i++ {
		switch SampleContext(s).Terrain {
		case Open:
			open++
		case Mountain:
			mountain++
		}
	}
	assert.Greater(t, open, mountain)
	assert.InDelta(t, 0.35, float64(open)/5000, 0.03)
}

func TestSimulateDetectionRates(t *testing.T) {
	s := rng.New("simulate")
	const n = 20000
	hits, falseAlarms := 0, 0
	for i := 0; i < n; i++ {
		r, err := Simulate(Drone, NeutralContext(), true, s)
		require.NoError(t, err)
		if r.Positive {
			hits++
		}
		r, err = Simulate(Drone, NeutralContext(), false, s)
		require.NoError(t, err)
		if r.Positive {
			falseAlarms++
		}
		require.True(t, r.Confidence > 0 && r.Confidence < 1)
	}
	assert.InDelta(t, 0.85, float64(hits)/n, 0.015)
	assert.InDelta(t, 0.10, float64(falseAlarms)/n, 0.015)
}

func TestSimulateIsReproducible(t *testing.T) {
	a, err := Simulate(Satellite, NeutralContext(), true, rng.New("x"))
	require.NoError(t, err)
	b, err := Simulate(Satellite, NeutralContext(), true, rng.New("x"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, a.Summary, "satellite")
}
