package sensor

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	"github.com/danielpatrickdp/recon-engine/internal/rng"
)

const (
	minRate = 0.01
	maxRate = 0.99
)

// #region effective
// Effective applies every context modifier to the kind's base rates.
// TPR and FPR are clamped to [0.01, 0.99]; cost is rounded up.
func Effective(kind Kind, ctx Context) (Rates, error) {
	spec, ok := Lookup(kind)
	if !ok {
		return Rates{}, fmt.Errorf("sensor kind %q: %w", kind, mathx.ErrInvalidParameter)
	}

	mods := []Modifier{
		pick(spec.Terrain, ctx.Terrain),
		pick(spec.Lighting, ctx.Lighting),
		pick(spec.Weather, ctx.Weather),
		pick(spec.Concealment, ctx.Concealment),
		pick(spec.Jamming, ctx.Jamming),
	}

	tpr, fpr, cost := spec.BaseTPR, spec.BaseFPR, spec.BaseCost
	for _, m := range mods {
		tpr *= m.TPR
		fpr *= m.FPR
		cost *= m.Cost
	}

	return Rates{
		Kind: kind,
		TPR:  mathx.Clamp(tpr, minRate, maxRate),
		FPR:  mathx.Clamp(fpr, minRate, maxRate),
		Cost: int(math.Ceil(cost - 1e-9)),
	}, nil
}

// #endregion effective

// #region sample-context
// SampleContext draws operating conditions from the weighted category tables.
func SampleContext(s *rng.Stream) Context {
	return Context{
		Terrain:     terrainOptions[s.WeightedChoice(terrainWeights)],
		Lighting:    lightingOptions[s.WeightedChoice(lightingWeights)],
		Weather:     weatherOptions[s.WeightedChoice(weatherWeights)],
		Concealment: concealmentOptions[s.WeightedChoice(concealmentWeights)],
		Jamming:     jammingOptions[s.WeightedChoice(jammingWeights)],
	}
}

// #endregion sample-context

// #region simulate
// Simulate produces a reading for an entity that is or is not present.
// A present entity is detected with the effective TPR, an absent one raises
// a false alarm with the effective FPR.
//
// Confidence blends the base detection (or rejection) rate with the magnitude
// of a latent signal draw. It is a display value; the Bayesian update uses
// only TPR and FPR.
func Simulate(kind Kind, ctx Context, present bool, s *rng.Stream) (Reading, error) {
	rates, err := Effective(kind, ctx)
	if err != nil {
		return Reading{}, err
	}

	var positive bool
	if present {
		positive = s.Bernoulli(rates.TPR)
	} else {
		positive = s.Bernoulli(rates.FPR)
	}

	mu := 0.0
	if present {
		mu = 1.5
	}
	strength := math.Min(1, math.Abs(s.Normal(mu, 1))/3)

	base := 1 - rates.FPR
	if positive {
		base = rates.TPR
	}
	confidence := mathx.Clamp(0.7*base+0.3*strength, minRate, maxRate)

	verdict := "negative"
	if positive {
		verdict = "positive"
	}

	return Reading{
		Kind:       kind,
		Positive:   positive,
		Confidence: confidence,
		TPR:        rates.TPR,
		FPR:        rates.FPR,
		Cost:       rates.Cost,
		Context:    ctx,
		Summary:    fmt.Sprintf("%s %s (tpr=%.2f fpr=%.2f) %s", kind, verdict, rates.TPR, rates.FPR, ctx),
	}, nil
}

// #endregion simulate
