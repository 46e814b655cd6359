package replay

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/recon-engine/internal/eval"
	"github.com/danielpatrickdp/recon-engine/internal/montecarlo"
	"github.com/danielpatrickdp/recon-engine/internal/risk"
	"github.com/danielpatrickdp/recon-engine/internal/strike"
	"go.uber.org/zap"
)

// #region types
// Report is the full output of a replay run. Two runs of the same fixture
// produce equal reports.
type Report struct {
	Seed      string            `json:"seed"`
	Steps     []StepResult      `json:"steps"`
	Posterior []float64         `json:"posterior"`
	Best      strike.Evaluation `json:"best"`
	Risk      risk.Metrics      `json:"risk"`
	Eval      eval.EvalResult   `json:"eval"`
	Summary   Summary           `json:"summary"`
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalTurns  int     `json:"total_turns"`
	Recons      int     `json:"recons"`
	Strikes     int     `json:"strikes"`
	Rejected    int     `json:"rejected"`
	StrikeValue float64 `json:"strike_value"`
	BudgetLeft  float64 `json:"budget_left"`
}

// #endregion types

// #region replay
// Run replays a fixture: build the episode, apply every action in order,
// then score the final belief. Risk metrics are taken at the best
// closed-form strike center over a fresh Monte Carlo draw.
func Run(ctx context.Context, f *Fixture, logger *zap.Logger) (Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ep, err := NewEpisode("replay", f.Config)
	if err != nil {
		return Report{}, err
	}

	steps := make([]StepResult, 0, len(f.Actions))
	for i, a := range f.Actions {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		res, err := ep.Apply(a)
		if err != nil {
			return Report{}, fmt.Errorf("action %d: %w", i, err)
		}
		logger.Debug("replay step",
			zap.Int("turn", res.Turn),
			zap.String("type", string(a.Type)),
			zap.Int("x", a.X),
			zap.Int("y", a.Y),
			zap.String("outcome", res.Outcome))
		steps = append(steps, res)
	}

	cfg := f.Config
	best := strike.Best(ep.Grid, cfg.Strike)

	sampler := montecarlo.NewSampler(logger)
	worlds, err := sampler.SampleParallel(ctx, ep.Grid, cfg.Risk.Samples, cfg.Risk.Workers, ep.Stream(ep.Turn).Derive("final-risk"))
	if err != nil {
		return Report{}, fmt.Errorf("final risk: %w", err)
	}
	metrics, err := risk.Evaluate(worlds, best.Center.X, best.Center.Y, cfg.Strike)
	if err != nil {
		return Report{}, fmt.Errorf("final risk: %w", err)
	}

	evalResult, err := eval.NewEvalHarness(cfg.Eval).Run(ep.Grid, ep.Truth.HostileTruth, ep.Truth.Hostile)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Seed:      cfg.Seed,
		Steps:     steps,
		Posterior: ep.Grid.Posteriors(),
		Best:      best,
		Risk:      metrics,
		Eval:      evalResult,
		Summary:   Summarize(steps, ep.Budget),
	}, nil
}

// Summarize computes aggregate stats from step results.
func Summarize(steps []StepResult, budgetLeft float64) Summary {
	s := Summary{TotalTurns: len(steps), BudgetLeft: budgetLeft}
	for _, r := range steps {
		switch r.Outcome {
		case OutcomeObserved:
			s.Recons++
		case OutcomeStruck:
			s.Strikes++
			s.StrikeValue += r.Result.Value
		case OutcomeRejected:
			s.Rejected++
		}
	}
	return s
}

// Mismatches compares a report against the fixture's expected outcomes.
func Mismatches(f *Fixture, rep Report) []string {
	var out []string
	if len(f.ExpectedResults) > 0 && len(f.ExpectedResults) != len(rep.Steps) {
		out = append(out, fmt.Sprintf("expected %d results, got %d", len(f.ExpectedResults), len(rep.Steps)))
		return out
	}
	for i, want := range f.ExpectedResults {
		got := rep.Steps[i]
		if got.Turn != want.Turn || got.Outcome != want.Outcome {
			out = append(out, fmt.Sprintf("step %d: expected turn=%d outcome=%s, got turn=%d outcome=%s (%s)",
				i, want.Turn, want.Outcome, got.Turn, got.Outcome, got.Reason))
		}
	}
	return out
}

// #endregion replay
