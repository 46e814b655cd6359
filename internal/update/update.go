package update

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	"github.com/danielpatrickdp/recon-engine/internal/sensor"
)

// #region posterior
// Posterior performs the odds-space Bayesian update of prior given one reading
// with the stated TPR/FPR. The result is always finite and inside [0.001, 0.999].
func Posterior(prior, tpr, fpr float64, positive bool) float64 {
	p := mathx.ClampOdds(prior)
	tpr = mathx.ClampOdds(tpr)
	fpr = mathx.ClampOdds(fpr)

	var lr float64
	if positive {
		lr = tpr / fpr
	} else {
		lr = (1 - tpr) / (1 - fpr)
	}

	odds := p / (1 - p) * lr
	return mathx.ClampOdds(odds / (1 + odds))
}

// #endregion posterior

// #region apply
// Apply takes ownership of the grid buffer, folds reading into the belief at
// (x, y), appends it to the cell's history, diffuses the induced log-odds
// change to neighbours, and returns the same buffer. Callers sharing a base
// grid must pass a Clone.
func Apply(owned *grid.Grid, x, y int, reading sensor.Reading, config UpdateConfig) (*grid.Grid, UpdateResult, error) {
	cell, err := owned.At(x, y)
	if err != nil {
		return owned, UpdateResult{}, fmt.Errorf("apply reading: %w", err)
	}

	prior := cell.Posterior
	post := Posterior(prior, reading.TPR, reading.FPR, reading.Positive)
	cell.Posterior = post
	cell.ReconHistory = append(cell.ReconHistory, reading)

	delta := mathx.Logit(post) - mathx.Logit(prior)
	result := UpdateResult{
		Prior:        prior,
		Posterior:    post,
		LogOddsDelta: delta,
	}

	if delta == 0 || config.KernelRadius <= 0 || config.Strength <= 0 || config.DistanceDecay <= 0 {
		return owned, result, nil
	}

	r := config.KernelRadius
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if !owned.InBounds(nx, ny) {
				continue
			}
			dist := math.Hypot(float64(dx), float64(dy))
			if dist > float64(r) {
				continue
			}
			w := config.Strength * math.Exp(-dist/config.DistanceDecay)
			n := &owned.Cells[owned.Index(nx, ny)]
			before := n.Posterior
			n.Posterior = mathx.ClampProb(mathx.Logistic(mathx.Logit(before) + w*delta))

			result.NeighborsTouched++
			if shift := math.Abs(n.Posterior - before); shift > result.MaxNeighborShift {
				result.MaxNeighborShift = shift
			}
		}
	}

	return owned, result, nil
}

// #endregion apply
