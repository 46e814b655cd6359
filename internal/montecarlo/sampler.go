package montecarlo

import (
	"context"
	"fmt"
	"math"

	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	"github.com/danielpatrickdp/recon-engine/internal/rng"
	"github.com/danielpatrickdp/recon-engine/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ChunkSize is the number of worlds drawn from one derived stream in
// SampleParallel. It is fixed so the output does not depend on worker count.
const ChunkSize = 64

// #region types
// World is one joint draw of the hidden state.
//
// LogLikelihood is the log probability mass of the draw under the belief grid
// and Likelihood its exponent; neither is normalized and Likelihood underflows
// to 0 on large grids. ImportanceWeight is 1 for plain draws and the product of
// p/q ratios over compressed cells for focused draws.
type World struct {
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	Hostile          []bool  `json:"hostile"`
	Infra            []bool  `json:"infra"`
	LogLikelihood    float64 `json:"log_likelihood"`
	Likelihood       float64 `json:"likelihood"`
	ImportanceWeight float64 `json:"importance_weight"`
}

// HostileAt reports the sampled hostile state at (x, y).
func (w *World) HostileAt(x, y int) bool {
	return w.Hostile[y*w.Width+x]
}

// InfraAt reports the sampled infrastructure state at (x, y).
func (w *World) InfraAt(x, y int) bool {
	return w.Infra[y*w.Width+x]
}

// Region is an inclusive rectangle of cells.
type Region struct {
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// Contains reports whether (x, y) lies inside the region.
func (r Region) Contains(x, y int) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// Around is the square region of the given radius centred on p.
func Around(p grid.Point, radius int) Region {
	return Region{MinX: p.X - radius, MinY: p.Y - radius, MaxX: p.X + radius, MaxY: p.Y + radius}
}

// clip intersects r with the grid; ok is false when nothing is left.
func (r Region) clip(width, height int) (Region, bool) {
	out := Region{
		MinX: max(r.MinX, 0),
		MinY: max(r.MinY, 0),
		MaxX: min(r.MaxX, width-1),
		MaxY: min(r.MaxY, height-1),
	}
	return out, out.MinX <= out.MaxX && out.MinY <= out.MaxY
}

// #endregion types

// #region sampler
// Sampler draws independent Bernoulli worlds from a belief grid. Cells are
// treated as independent even though the latent field that generated them is
// spatially smoothed.
type Sampler struct {
	logger *zap.Logger
}

// NewSampler returns a sampler. A nil logger is replaced by a no-op logger.
func NewSampler(logger *zap.Logger) *Sampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sampler{logger: logger}
}

// Sample draws n worlds sequentially from s.
func (sm *Sampler) Sample(g *grid.Grid, n int, s *rng.Stream) []World {
	if n <= 0 {
		return nil
	}
	out := make([]World, n)
	for i := range out {
		out[i] = draw(g, nil, 0, s)
	}
	telemetry.WorldsSampled.WithLabelValues("plain").Add(float64(n))
	return out
}

// SampleFocused draws n worlds with probabilities inside focus pulled toward
// 0.5 by compression (0 leaves them unchanged, 1 makes them fair coins). Each
// world's ImportanceWeight compensates, so weighted averages of quantities
// over the focus stay unbiased.
func (sm *Sampler) SampleFocused(g *grid.Grid, n int, focus Region, compression float64, s *rng.Stream) ([]World, error) {
	if n < 0 {
		return nil, fmt.Errorf("sample focused: n=%d: %w", n, mathx.ErrInvalidParameter)
	}
	if !(compression >= 0 && compression <= 1) {
		return nil, fmt.Errorf("sample focused: compression %v not in [0,1]: %w", compression, mathx.ErrInvalidParameter)
	}
	clipped, ok := focus.clip(g.Width, g.Height)
	if !ok {
		return nil, fmt.Errorf("sample focused: region %+v: %w", focus, mathx.ErrOutOfBounds)
	}
	out := make([]World, n)
	for i := range out {
		out[i] = draw(g, &clipped, compression, s)
	}
	telemetry.WorldsSampled.WithLabelValues("focused").Add(float64(n))
	sm.logger.Debug("focused worlds sampled",
		zap.Int("n", n),
		zap.Float64("compression", compression),
		zap.Any("region", clipped))
	return out, nil
}

// SampleParallel draws n worlds in chunks of ChunkSize, each chunk from its
// own stream derived from s by chunk index. workers bounds concurrency; the
// result is identical for every worker count.
func (sm *Sampler) SampleParallel(ctx context.Context, g *grid.Grid, n, workers int, s *rng.Stream) ([]World, error) {
	if n < 0 {
		return nil, fmt.Errorf("sample parallel: n=%d: %w", n, mathx.ErrInvalidParameter)
	}
	if workers < 1 {
		workers = 1
	}
	out := make([]World, n)
	chunks := (n + ChunkSize - 1) / ChunkSize

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for c := 0; c < chunks; c++ {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			cs := s.Derivef("chunk-%d", c)
			lo := c * ChunkSize
			hi := min(lo+ChunkSize, n)
			for i := lo; i < hi; i++ {
				out[i] = draw(g, nil, 0, cs)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("sample parallel: %w", err)
	}
	telemetry.WorldsSampled.WithLabelValues("plain").Add(float64(n))
	sm.logger.Debug("parallel worlds sampled",
		zap.Int("n", n),
		zap.Int("chunks", chunks),
		zap.Int("workers", workers))
	return out, nil
}

// #endregion sampler

// #region draw
func draw(g *grid.Grid, focus *Region, compression float64, s *rng.Stream) World {
	size := g.Size()
	w := World{
		Width:   g.Width,
		Height:  g.Height,
		Hostile: make([]bool, size),
		Infra:   make([]bool, size),
	}
	var logL, logW float64
	for i := range g.Cells {
		c := &g.Cells[i]
		ph := mathx.ClampProb(c.Posterior)
		pi := mathx.ClampProb(c.InfraPrior)
		qh, qi := ph, pi
		if focus != nil && focus.Contains(c.X, c.Y) {
			qh = compress(ph, compression)
			qi = compress(pi, compression)
		}

		w.Hostile[i] = s.Bernoulli(qh)
		w.Infra[i] = s.Bernoulli(qi)

		mh, mqh := mass(ph, w.Hostile[i]), mass(qh, w.Hostile[i])
		mi, mqi := mass(pi, w.Infra[i]), mass(qi, w.Infra[i])
		logL += math.Log(mh) + math.Log(mi)
		logW += math.Log(mh) - math.Log(mqh) + math.Log(mi) - math.Log(mqi)
	}
	w.LogLikelihood = logL
	w.Likelihood = math.Exp(logL)
	w.ImportanceWeight = math.Exp(logW)
	return w
}

func compress(p, k float64) float64 {
	return p + (0.5-p)*k
}

func mass(p float64, outcome bool) float64 {
	if outcome {
		return p
	}
	return 1 - p
}

// #endregion draw
