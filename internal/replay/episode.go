package replay

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/recon-engine/internal/config"
	"github.com/danielpatrickdp/recon-engine/internal/field"
	"github.com/danielpatrickdp/recon-engine/internal/gate"
	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	"github.com/danielpatrickdp/recon-engine/internal/rng"
	"github.com/danielpatrickdp/recon-engine/internal/sensor"
	"github.com/danielpatrickdp/recon-engine/internal/strike"
	"github.com/danielpatrickdp/recon-engine/internal/update"
)

// ErrUnknownAction is returned for an action type other than recon or strike.
var ErrUnknownAction = errors.New("unknown action type")

// #region types
// ActionType names what a scripted step does.
type ActionType string

const (
	ActionRecon  ActionType = "recon"
	ActionStrike ActionType = "strike"
)

// Outcome of applying one action.
const (
	OutcomeObserved = "observed"
	OutcomeStruck   = "struck"
	OutcomeRejected = "rejected"
)

// Action is one scripted step. Sensor is only read for recon.
type Action struct {
	Type   ActionType  `json:"type"`
	X      int         `json:"x"`
	Y      int         `json:"y"`
	Sensor sensor.Kind `json:"sensor,omitempty"`
}

// StepResult captures what a single action did.
type StepResult struct {
	Turn    int    `json:"turn"`
	Action  Action `json:"action"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`

	// Recon stage (nil for strikes and rejected recons)
	Reading *sensor.Reading      `json:"reading,omitempty"`
	Update  *update.UpdateResult `json:"update,omitempty"`

	// Strike stage (Result nil if the gate rejected)
	Evaluation *strike.Evaluation   `json:"evaluation,omitempty"`
	Gate       *gate.GateDecision   `json:"gate,omitempty"`
	Result     *strike.StrikeResult `json:"result,omitempty"`

	BudgetAfter float64 `json:"budget_after"`
}

// #endregion types

// #region episode
// Episode is one seeded world with its belief grid. Every random draw comes
// from a stream derived from the seed and the turn number, so applying the
// same actions to two episodes with the same config gives identical results.
type Episode struct {
	ID     string
	Config config.EngineConfig
	Truth  *field.TruthField
	Grid   *grid.Grid
	Budget float64
	Turn   int

	root *rng.Stream
	gate *gate.Gate
}

// NewEpisode generates the hidden world and the starting belief.
func NewEpisode(id string, cfg config.EngineConfig) (*Episode, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new episode: %w", err)
	}
	root := rng.New(cfg.Seed)
	truth := field.Generate(cfg.Grid.Width, cfg.Grid.Height, cfg.Field, root.Derive("world"))
	belief, err := field.InitialBelief(cfg.Grid.Width, cfg.Grid.Height, cfg.Field, root.Derive("belief"))
	if err != nil {
		return nil, fmt.Errorf("new episode: %w", err)
	}
	g, err := field.NewGrid(truth, belief)
	if err != nil {
		return nil, fmt.Errorf("new episode: %w", err)
	}
	return &Episode{
		ID:     id,
		Config: cfg,
		Truth:  truth,
		Grid:   g,
		Budget: cfg.Recon.Budget,
		root:   root,
		gate:   gate.NewGate(cfg.Policy().Gate),
	}, nil
}

// Stream returns the stream reserved for turn. Callers that need randomness
// outside Apply (advice, risk queries) derive from it by label.
func (e *Episode) Stream(turn int) *rng.Stream {
	return e.root.Derivef("turn-%d", turn)
}

// Apply advances the turn counter and runs one action against the world.
// A recon the budget cannot cover and a strike the gate vetoes are recorded
// as rejected steps, not errors. Out-of-bounds targets and unknown action
// types are errors and leave the episode untouched.
func (e *Episode) Apply(a Action) (StepResult, error) {
	if !e.Grid.InBounds(a.X, a.Y) {
		return StepResult{}, fmt.Errorf("apply %s at (%d,%d): %w", a.Type, a.X, a.Y, mathx.ErrOutOfBounds)
	}
	switch a.Type {
	case ActionRecon, ActionStrike:
	default:
		return StepResult{}, fmt.Errorf("apply %q: %w", a.Type, ErrUnknownAction)
	}

	e.Turn++
	s := e.Stream(e.Turn)
	res := StepResult{Turn: e.Turn, Action: a}

	if a.Type == ActionRecon {
		if err := e.recon(a, s, &res); err != nil {
			e.Turn--
			return StepResult{}, err
		}
	} else {
		e.strike(a, &res)
	}
	res.BudgetAfter = e.Budget
	return res, nil
}

func (e *Episode) recon(a Action, s *rng.Stream, res *StepResult) error {
	ctx := sensor.SampleContext(s.Derive("context"))
	reading, err := sensor.Simulate(a.Sensor, ctx, e.Truth.HostileAt(a.X, a.Y), s.Derive("reading"))
	if err != nil {
		return fmt.Errorf("recon at (%d,%d): %w", a.X, a.Y, err)
	}
	if float64(reading.Cost) > e.Budget {
		res.Outcome = OutcomeRejected
		res.Reason = fmt.Sprintf("sensor cost %d exceeds remaining budget %.2f", reading.Cost, e.Budget)
		return nil
	}
	reading.Turn = e.Turn

	g, upd, err := update.Apply(e.Grid, a.X, a.Y, reading, e.Config.Update)
	if err != nil {
		return fmt.Errorf("recon at (%d,%d): %w", a.X, a.Y, err)
	}
	e.Grid = g
	e.Budget -= float64(reading.Cost)

	res.Outcome = OutcomeObserved
	res.Reason = reading.Summary
	res.Reading = &reading
	res.Update = &upd
	return nil
}

func (e *Episode) strike(a Action, res *StepResult) {
	cfg := e.Config.Strike
	ev, _ := strike.Evaluate(e.Grid, a.X, a.Y, cfg) // bounds already checked
	decision := e.gate.Evaluate(ev, cfg.Cost, e.Budget)
	res.Evaluation = &ev
	res.Gate = &decision
	res.Reason = decision.Reason
	if decision.Vetoed {
		res.Outcome = OutcomeRejected
		return
	}
	result := strike.Resolve(e.Truth, a.X, a.Y, cfg)
	e.Budget -= cfg.Cost
	res.Outcome = OutcomeStruck
	res.Result = &result
}

// #endregion episode
