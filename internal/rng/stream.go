package rng

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
	"github.com/danielpatrickdp/recon-engine/internal/mathx"
)

// #region stream
// Stream is a deterministic random source bound to a string seed.
// A Stream is not safe for concurrent use; fan-out work should Derive
// one stream per worker instead of sharing.
type Stream struct {
	seed     string
	r        *rand.Rand
	spare    float64
	hasSpare bool
}

// New creates a stream from a string seed. Equal seeds yield equal sequences.
func New(seed string) *Stream {
	hi := xxhash.Sum64String(seed)
	lo := xxhash.Sum64String("pcg/" + seed)
	return &Stream{
		seed: seed,
		r:    rand.New(rand.NewPCG(hi, lo)),
	}
}

// Derive returns an independent stream for a named aspect. The parent stream's
// position is untouched, so enabling or skipping one consumer never shifts
// another consumer's draws.
func (s *Stream) Derive(label string) *Stream {
	return New(s.seed + ":" + label)
}

// Derivef is Derive with a formatted label.
func (s *Stream) Derivef(format string, args ...any) *Stream {
	return s.Derive(fmt.Sprintf(format, args...))
}

// Seed returns the full seed string this stream was built from.
func (s *Stream) Seed() string {
	return s.seed
}

// #endregion stream

// #region uniform
// Float64 returns a uniform draw in [0, 1).
func (s *Stream) Float64() float64 {
	return s.r.Float64()
}

// IntRange returns a uniform integer in [lo, hi].
func (s *Stream) IntRange(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + s.r.IntN(hi-lo+1)
}

// Bernoulli returns true with probability p.
func (s *Stream) Bernoulli(p float64) bool {
	return s.r.Float64() < p
}

// #endregion uniform

// #region continuous
// Normal draws from N(mu, sigma²) using Box–Muller. The second value of each
// pair is cached for the next call.
func (s *Stream) Normal(mu, sigma float64) float64 {
	if s.hasSpare {
		s.hasSpare = false
		return mu + sigma*s.spare
	}
	u1 := 1 - s.r.Float64() // (0, 1]
	u2 := s.r.Float64()
	mag := math.Sqrt(-2 * math.Log(u1))
	z0 := mag * math.Cos(2*math.Pi*u2)
	s.spare = mag * math.Sin(2*math.Pi*u2)
	s.hasSpare = true
	return mu + sigma*z0
}

// Exponential draws with the given rate. A non-positive rate yields +Inf.
func (s *Stream) Exponential(rate float64) float64 {
	if rate <= 0 {
		return math.Inf(1)
	}
	return -math.Log(1-s.r.Float64()) / rate
}

// Gamma draws from Gamma(shape, scale) with the Marsaglia–Tsang squeeze.
// For shape < 1 it samples shape+1 and applies the U^(1/shape) correction.
func (s *Stream) Gamma(shape, scale float64) (float64, error) {
	if shape <= 0 || scale <= 0 {
		return 0, fmt.Errorf("gamma(shape=%v, scale=%v): %w", shape, scale, mathx.ErrInvalidParameter)
	}
	if shape < 1 {
		g, err := s.Gamma(shape+1, scale)
		if err != nil {
			return 0, err
		}
		u := 1 - s.r.Float64()
		return g * math.Pow(u, 1/shape), nil
	}

	d := shape - 1.0/3.0
	c := 1 / math.Sqrt(9*d)
	for {
		x := s.Normal(0, 1)
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := 1 - s.r.Float64()
		x2 := x * x
		if u < 1-0.0331*x2*x2 {
			return d * v * scale, nil
		}
		if math.Log(u) < 0.5*x2+d*(1-v+math.Log(v)) {
			return d * v * scale, nil
		}
	}
}

// Beta draws from Beta(alpha, beta). Jöhnk's algorithm handles the case where
// both parameters are below 1; otherwise the draw is a ratio of Gammas.
func (s *Stream) Beta(alpha, beta float64) (float64, error) {
	if alpha <= 0 || beta <= 0 {
		return 0, fmt.Errorf("beta(alpha=%v, beta=%v): %w", alpha, beta, mathx.ErrInvalidParameter)
	}
	if alpha < 1 && beta < 1 {
		return s.johnk(alpha, beta), nil
	}
	x, err := s.Gamma(alpha, 1)
	if err != nil {
		return 0, err
	}
	y, err := s.Gamma(beta, 1)
	if err != nil {
		return 0, err
	}
	if x+y == 0 {
		return 0.5, nil
	}
	return x / (x + y), nil
}

func (s *Stream) johnk(alpha, beta float64) float64 {
	for {
		u := 1 - s.r.Float64()
		v := 1 - s.r.Float64()
		x := math.Pow(u, 1/alpha)
		y := math.Pow(v, 1/beta)
		sum := x + y
		if sum > 1 {
			continue
		}
		if sum > 0 {
			return x / sum
		}
		// both powers underflowed; finish in log space
		lx := math.Log(u) / alpha
		ly := math.Log(v) / beta
		m := math.Max(lx, ly)
		lx -= m
		ly -= m
		return math.Exp(lx - math.Log(math.Exp(lx)+math.Exp(ly)))
	}
}

// #endregion continuous

// #region discrete
// WeightedChoice returns an index drawn proportionally to weights.
// Non-positive weights are never chosen. If no weight is positive the choice
// is uniform. Returns -1 for an empty slice.
func (s *Stream) WeightedChoice(weights []float64) int {
	if len(weights) == 0 {
		return -1
	}
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return s.r.IntN(len(weights))
	}
	target := s.r.Float64() * total
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		target -= w
		if target < 0 {
			return i
		}
	}
	return last
}

// Shuffle permutes n elements in place with Fisher–Yates.
func (s *Stream) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := s.r.IntN(i + 1)
		swap(i, j)
	}
}

// #endregion discrete
