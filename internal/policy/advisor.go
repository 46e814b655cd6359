package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/recon-engine/internal/gate"
	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	"github.com/danielpatrickdp/recon-engine/internal/montecarlo"
	"github.com/danielpatrickdp/recon-engine/internal/risk"
	"github.com/danielpatrickdp/recon-engine/internal/sensor"
	"github.com/danielpatrickdp/recon-engine/internal/strike"
	"github.com/danielpatrickdp/recon-engine/internal/telemetry"
	"github.com/danielpatrickdp/recon-engine/internal/voi"
	"go.uber.org/zap"
)

// #region advisor
// Advisor composes the evaluators into per-policy recommendations.
type Advisor struct {
	config    Config
	gate      *gate.Gate
	estimator *voi.Estimator
	sampler   *montecarlo.Sampler
	logger    *zap.Logger
}

// Option customises an Advisor.
type Option func(*advisorOptions)

type advisorOptions struct {
	logger *zap.Logger
	oracle voi.Oracle
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *advisorOptions) { o.logger = l }
}

// WithOracle supplies the hidden state for the truth VOI outcome model.
func WithOracle(oracle voi.Oracle) Option {
	return func(o *advisorOptions) { o.oracle = oracle }
}

// NewAdvisor validates config and builds an advisor.
func NewAdvisor(config Config, opts ...Option) (*Advisor, error) {
	o := advisorOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if config.PolicySamples <= 0 {
		return nil, fmt.Errorf("policy samples %d: %w", config.PolicySamples, mathx.ErrInvalidParameter)
	}
	if !(config.Lambda >= 0) {
		return nil, fmt.Errorf("risk aversion %v: %w", config.Lambda, mathx.ErrInvalidParameter)
	}
	est, err := voi.NewEstimator(config.Strike, config.VOI, o.oracle)
	if err != nil {
		return nil, fmt.Errorf("new advisor: %w", err)
	}
	return &Advisor{
		config:    config,
		gate:      gate.NewGate(config.Gate),
		estimator: est,
		sampler:   montecarlo.NewSampler(o.logger),
		logger:    o.logger,
	}, nil
}

// Advise runs every policy against in.Grid. The grid is read, never written.
// Per-candidate failures are skipped; structural errors and cancellation
// abort the pass.
func (a *Advisor) Advise(ctx context.Context, in Input) (Advice, error) {
	start := time.Now()
	defer func() { telemetry.AdviseDuration.Observe(time.Since(start).Seconds()) }()

	if in.Grid == nil || in.Stream == nil {
		return Advice{}, fmt.Errorf("advise: grid and stream are required: %w", mathx.ErrInvalidParameter)
	}
	if err := in.Grid.Validate(); err != nil {
		return Advice{}, fmt.Errorf("advise: %w", err)
	}

	greedy, err := a.greedyEV(ctx, in)
	if err != nil {
		return Advice{}, fmt.Errorf("advise greedy: %w", err)
	}
	averse, err := a.riskAverse(ctx, in)
	if err != nil {
		return Advice{}, fmt.Errorf("advise risk-averse: %w", err)
	}
	recon, err := a.reconVOI(ctx, in)
	if err != nil {
		return Advice{}, fmt.Errorf("advise recon: %w", err)
	}

	a.logger.Debug("advice ready",
		zap.Int("turn", in.Turn),
		zap.String("greedy", string(greedy.Action)),
		zap.String("risk_averse", string(averse.Action)),
		zap.String("recon", string(recon.Action)),
		zap.Duration("elapsed", time.Since(start)))

	return Advice{Turn: in.Turn, GreedyEV: greedy, RiskAverse: averse, ReconVOI: recon}, nil
}

// #endregion advisor

// #region greedy
func (a *Advisor) greedyEV(ctx context.Context, in Input) (GreedyEV, error) {
	g := in.Grid
	cands, err := sweep(ctx, a.config.Workers, g.Size(), func(i int) candidate[strike.Evaluation] {
		p := point(g, i)
		ev, err := strike.Evaluate(g, p.X, p.Y, a.config.Strike)
		return candidate[strike.Evaluation]{target: p, value: ev.EV, detail: ev, err: err}
	})
	if err != nil {
		return GreedyEV{}, err
	}
	ranked, failed := rank(cands)
	logSkipped(a.logger, KindGreedyEV, failed)

	choice := pickStrike(a.gate, a.config.Strike.Cost, in.Budget, ranked, func(d strike.Evaluation) strike.Evaluation { return d })
	return GreedyEV{
		Decision:   strikeDecision(choice, a.config.Strike.Reward),
		Evaluation: choice.best.detail,
		Gate:       choice.gate,
	}, nil
}

// #endregion greedy

// #region risk-averse
type riskDetail struct {
	metrics risk.Metrics
	eval    strike.Evaluation
}

func (a *Advisor) riskAverse(ctx context.Context, in Input) (RiskAverse, error) {
	g := in.Grid
	worlds, err := a.sampler.SampleParallel(ctx, g, a.config.PolicySamples, a.config.Workers, in.Stream.Derive("risk-averse"))
	if err != nil {
		return RiskAverse{}, err
	}
	cands, err := sweep(ctx, a.config.Workers, g.Size(), func(i int) candidate[riskDetail] {
		p := point(g, i)
		m, err := risk.Evaluate(worlds, p.X, p.Y, a.config.Strike)
		if err != nil {
			return candidate[riskDetail]{target: p, err: err}
		}
		ev, err := strike.Evaluate(g, p.X, p.Y, a.config.Strike)
		return candidate[riskDetail]{
			target: p,
			value:  risk.Utility(m, a.config.Lambda),
			detail: riskDetail{metrics: m, eval: ev},
			err:    err,
		}
	})
	if err != nil {
		return RiskAverse{}, err
	}
	ranked, failed := rank(cands)
	logSkipped(a.logger, KindRiskAverse, failed)

	choice := pickStrike(a.gate, a.config.Strike.Cost, in.Budget, ranked, func(d riskDetail) strike.Evaluation { return d.eval })
	return RiskAverse{
		Decision: strikeDecision(choice, a.config.Strike.Reward),
		Metrics:  choice.best.detail.metrics,
		Lambda:   a.config.Lambda,
		Gate:     choice.gate,
	}, nil
}

// #endregion risk-averse

// #region strike-choice
type strikeChoice[T any] struct {
	best   candidate[T]
	list   []candidate[T] // ranking the alternatives come from
	gate   gate.GateDecision
	strike bool
}

// pickStrike takes the highest-ranked candidate the gate approves, which
// enforces budget and collateral. When nothing is approved, or the best
// approved candidate is not worth its cost, the top-ranked candidate is
// reported without a strike.
func pickStrike[T any](gt *gate.Gate, cost, budget float64, ranked []candidate[T], eval func(T) strike.Evaluation) strikeChoice[T] {
	var out strikeChoice[T]
	if len(ranked) == 0 {
		return out
	}
	var approved []candidate[T]
	var firstApproved gate.GateDecision
	for _, c := range ranked {
		d := gt.Evaluate(eval(c.detail), cost, budget)
		if d.Vetoed {
			continue
		}
		if len(approved) == 0 {
			firstApproved = d
		}
		approved = append(approved, c)
	}
	if len(approved) > 0 && approved[0].value > 0 {
		out.best, out.list, out.gate, out.strike = approved[0], approved, firstApproved, true
		return out
	}
	out.best, out.list, out.strike = ranked[0], ranked, false
	out.gate = gt.Evaluate(eval(ranked[0].detail), cost, budget)
	return out
}

func strikeDecision[T any](choice strikeChoice[T], scale float64) Decision {
	action := ActionWait
	if choice.strike {
		action = ActionStrike
	}
	return Decision{
		Action:       action,
		Target:       choice.best.target,
		Value:        choice.best.value,
		Confidence:   confidence(choice.best.value, scale),
		Alternatives: alternatives(choice.list),
	}
}

// #endregion strike-choice

// #region recon
type reconTarget struct {
	cell  grid.Point
	rates sensor.Rates
}

func (a *Advisor) reconVOI(ctx context.Context, in Input) (ReconVOI, error) {
	g := in.Grid
	sensors := in.Sensors
	if sensors == nil {
		var err error
		if sensors, err = neutralSensors(); err != nil {
			return ReconVOI{}, err
		}
	}

	// Cells observed MaxRecentRecons times inside the window are not
	// candidates; neither are sensors the budget cannot pay for.
	var targets []reconTarget
	for _, rates := range sensors {
		if float64(rates.Cost) > in.Budget {
			continue
		}
		for i := range g.Cells {
			c := &g.Cells[i]
			if a.config.MaxRecentRecons > 0 && c.RecentRecons(in.Turn, in.RecentWindow) >= a.config.MaxRecentRecons {
				continue
			}
			targets = append(targets, reconTarget{cell: grid.Point{X: c.X, Y: c.Y}, rates: rates})
		}
	}

	hm, baseline := a.estimator.Baseline(g)
	base := in.Stream.Derive("recon-voi")
	cands, err := sweep(ctx, a.config.Workers, len(targets), func(i int) candidate[voi.Estimate] {
		t := targets[i]
		s := base.Derivef("%s/%d/%d", t.rates.Kind, t.cell.X, t.cell.Y)
		est, err := a.estimator.EstimateWith(g, hm, baseline, t.cell.X, t.cell.Y, t.rates, s)
		return candidate[voi.Estimate]{target: t.cell, value: est.Net, detail: est, err: err}
	})
	if err != nil {
		return ReconVOI{}, err
	}
	ranked, failed := rank(cands)
	logSkipped(a.logger, KindReconVOI, failed)

	out := ReconVOI{Skipped: len(failed)}
	if len(ranked) == 0 {
		out.Decision = Decision{Action: ActionWait}
		return out, nil
	}
	best := ranked[0]
	action := ActionWait
	if best.value > 0 {
		action = ActionRecon
	}
	alts := alternatives(ranked)
	for i := range alts {
		alts[i].Sensor = ranked[i+1].detail.Sensor
	}
	out.Decision = Decision{
		Action:       action,
		Target:       best.target,
		Value:        best.value,
		Confidence:   confidence(best.value, a.config.Strike.Reward/2),
		Alternatives: alts,
	}
	out.Sensor = best.detail.Sensor
	out.Estimate = best.detail
	return out, nil
}

func neutralSensors() ([]sensor.Rates, error) {
	ctx := sensor.NeutralContext()
	out := make([]sensor.Rates, 0, len(sensor.Kinds()))
	for _, k := range sensor.Kinds() {
		r, err := sensor.Effective(k, ctx)
		if err != nil {
			return nil, fmt.Errorf("neutral sensor %s: %w", k, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// #endregion recon

func point(g *grid.Grid, i int) grid.Point {
	return grid.Point{X: i % g.Width, Y: i / g.Width}
}

// logSkipped records failed candidates. Degenerate values are expected on
// saturated cells and log at debug; anything else logs at warn.
func logSkipped[T any](logger *zap.Logger, kind Kind, failed []candidate[T]) {
	if len(failed) == 0 {
		return
	}
	telemetry.CandidatesSkipped.WithLabelValues(string(kind)).Add(float64(len(failed)))
	for _, c := range failed {
		err := c.err
		if err == nil {
			err = fmt.Errorf("value %v: %w", c.value, mathx.ErrDegenerate)
		}
		fields := []zap.Field{
			zap.String("policy", string(kind)),
			zap.Stringer("target", c.target),
			zap.Error(err),
		}
		if errors.Is(err, mathx.ErrDegenerate) {
			logger.Debug("candidate skipped", fields...)
		} else {
			logger.Warn("candidate skipped", fields...)
		}
	}
}
