package mathx

import (
	"errors"
	"math"
)

// #region errors
var (
	// ErrInvalidParameter marks structural input errors: non-positive distribution
	// parameters, mismatched slice lengths, unknown catalog keys.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrOutOfBounds marks coordinates outside the grid extent.
	ErrOutOfBounds = errors.New("out of bounds")

	// ErrDegenerate marks a computation that produced a non-finite value.
	ErrDegenerate = errors.New("numerically degenerate")
)

// #endregion errors

// #region constants
const (
	// Epsilon bounds stored cell probabilities to (Epsilon, 1-Epsilon).
	Epsilon = 1e-6

	// OddsFloor and OddsCeil bound probabilities entering odds-space math.
	OddsFloor = 0.001
	OddsCeil  = 0.999
)

// #endregion constants

// #region clamp
// Clamp restricts v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampProb keeps a stored probability strictly inside (0, 1).
func ClampProb(p float64) float64 {
	return Clamp(p, Epsilon, 1-Epsilon)
}

// ClampOdds clamps a probability to the odds-space working range.
func ClampOdds(p float64) float64 {
	return Clamp(p, OddsFloor, OddsCeil)
}

// #endregion clamp

// #region transforms
// Logistic is the standard sigmoid.
func Logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Logit is the inverse of Logistic. The input is clamped first.
func Logit(p float64) float64 {
	p = ClampProb(p)
	return math.Log(p / (1 - p))
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// #endregion transforms
