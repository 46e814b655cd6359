package strike

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/recon-engine/internal/field"
	"github.com/danielpatrickdp/recon-engine/internal/grid"
)

// #region config
// Config prices a strike.
type Config struct {
	Reward              float64 `json:"reward" yaml:"reward"`   // value per hostile in the area
	Penalty             float64 `json:"penalty" yaml:"penalty"` // cost per infrastructure cell in the area
	Cost                float64 `json:"cost" yaml:"cost"`       // fixed cost per strike
	Radius              int     `json:"radius" yaml:"radius"`   // Manhattan radius of the area of effect
	CollateralThreshold float64 `json:"collateral_threshold" yaml:"collateral_threshold"`
}

// DefaultConfig returns the baseline pricing.
func DefaultConfig() Config {
	return Config{
		Reward:              10,
		Penalty:             25,
		Cost:                3,
		Radius:              1,
		CollateralThreshold: 0.3,
	}
}

// #endregion config

// #region types
// Evaluation is the closed-form value of striking one center.
type Evaluation struct {
	Center           grid.Point `json:"center"`
	Radius           int        `json:"radius"`
	EV               float64    `json:"ev"`
	ExpectedHostiles float64    `json:"expected_hostiles"`
	ExpectedInfra    float64    `json:"expected_infra"`
	CollateralRisk   float64    `json:"collateral_risk"` // max single-cell infra prior in the area
	Cells            int        `json:"cells"`
}

// StrikeResult is the realised outcome of a strike against ground truth.
type StrikeResult struct {
	Center      grid.Point   `json:"center"`
	Radius      int          `json:"radius"`
	HostilesHit int          `json:"hostiles_hit"`
	InfraHit    int          `json:"infra_hit"`
	Value       float64      `json:"value"`
	Area        []grid.Point `json:"area"`
}

// #endregion types

// #region area
// AreaOfEffect lists every in-bounds cell within Manhattan distance radius of
// (cx, cy), scanning rows top to bottom. Off-grid cells are excluded, never
// wrapped.
func AreaOfEffect(width, height, cx, cy, radius int) []grid.Point {
	if radius < 0 {
		return nil
	}
	var out []grid.Point
	for dy := -radius; dy <= radius; dy++ {
		span := radius - abs(dy)
		for dx := -span; dx <= span; dx++ {
			x, y := cx+dx, cy+dy
			if x < 0 || x >= width || y < 0 || y >= height {
				continue
			}
			out = append(out, grid.Point{X: x, Y: y})
		}
	}
	return out
}

// Covers reports whether (x, y) lies inside the area centred on (cx, cy).
func Covers(cx, cy, x, y, radius int) bool {
	return abs(x-cx)+abs(y-cy) <= radius
}

// #endregion area

// #region evaluate
// Evaluate prices a strike at (cx, cy). The center must be on the grid.
func Evaluate(g *grid.Grid, cx, cy int, cfg Config) (Evaluation, error) {
	if _, err := g.At(cx, cy); err != nil {
		return Evaluation{}, fmt.Errorf("evaluate strike: %w", err)
	}
	return evaluate(g, cx, cy, cfg), nil
}

func evaluate(g *grid.Grid, cx, cy int, cfg Config) Evaluation {
	ev := Evaluation{Center: grid.Point{X: cx, Y: cy}, Radius: cfg.Radius}
	for _, p := range AreaOfEffect(g.Width, g.Height, cx, cy, cfg.Radius) {
		c := &g.Cells[g.Index(p.X, p.Y)]
		ev.ExpectedHostiles += c.Posterior
		ev.ExpectedInfra += c.InfraPrior
		ev.CollateralRisk = math.Max(ev.CollateralRisk, c.InfraPrior)
		ev.Cells++
	}
	ev.EV = cfg.Reward*ev.ExpectedHostiles - cfg.Penalty*ev.ExpectedInfra - cfg.Cost
	return ev
}

// EVHeatmap evaluates every cell as a strike center. Entry i matches
// Evaluate at the i-th row-major cell exactly.
func EVHeatmap(g *grid.Grid, cfg Config) []float64 {
	out := make([]float64, g.Size())
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			out[g.Index(x, y)] = evaluate(g, x, y, cfg).EV
		}
	}
	return out
}

// Best returns the highest-EV center. Ties go to the lowest row-major index.
func Best(g *grid.Grid, cfg Config) Evaluation {
	var best Evaluation
	first := true
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			e := evaluate(g, x, y, cfg)
			if first || e.EV > best.EV {
				best = e
				first = false
			}
		}
	}
	return best
}

// #endregion evaluate

// #region resolve
// Resolve scores a strike against the hidden truth.
func Resolve(truth *field.TruthField, cx, cy int, cfg Config) StrikeResult {
	res := StrikeResult{
		Center: grid.Point{X: cx, Y: cy},
		Radius: cfg.Radius,
		Area:   AreaOfEffect(truth.Width, truth.Height, cx, cy, cfg.Radius),
	}
	for _, p := range res.Area {
		if truth.HostileAt(p.X, p.Y) {
			res.HostilesHit++
		}
		if truth.InfraAt(p.X, p.Y) {
			res.InfraHit++
		}
	}
	res.Value = cfg.Reward*float64(res.HostilesHit) - cfg.Penalty*float64(res.InfraHit) - cfg.Cost
	return res
}

// #endregion resolve

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
