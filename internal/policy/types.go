package policy

import (
	"github.com/danielpatrickdp/recon-engine/internal/gate"
	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"github.com/danielpatrickdp/recon-engine/internal/risk"
	"github.com/danielpatrickdp/recon-engine/internal/rng"
	"github.com/danielpatrickdp/recon-engine/internal/sensor"
	"github.com/danielpatrickdp/recon-engine/internal/strike"
	"github.com/danielpatrickdp/recon-engine/internal/voi"
)

// #region enums
// Kind names a policy.
type Kind string

const (
	KindGreedyEV   Kind = "greedy_ev"
	KindRiskAverse Kind = "risk_averse"
	KindReconVOI   Kind = "recon_voi"
)

// Action is what a policy recommends doing this turn.
type Action string

const (
	ActionRecon  Action = "recon"
	ActionStrike Action = "strike"
	ActionWait   Action = "wait"
)

// MaxAlternatives caps the runner-up list of every recommendation.
const MaxAlternatives = 3

// #endregion enums

// #region recommendation
// Recommendation is implemented by exactly GreedyEV, RiskAverse and ReconVOI.
type Recommendation interface {
	Policy() Kind
	Summary() Decision
	sealed()
}

// Decision is the part every recommendation shares.
type Decision struct {
	Action       Action        `json:"action"`
	Target       grid.Point    `json:"target"`
	Value        float64       `json:"value"`
	Confidence   float64       `json:"confidence"` // display heuristic in [0,1]
	Alternatives []Alternative `json:"alternatives,omitempty"`
}

// Alternative is a ranked runner-up. Sensor is set for recon alternatives.
type Alternative struct {
	Target grid.Point  `json:"target"`
	Value  float64     `json:"value"`
	Sensor sensor.Kind `json:"sensor,omitempty"`
}

// GreedyEV maximises closed-form strike EV.
type GreedyEV struct {
	Decision
	Evaluation strike.Evaluation `json:"evaluation"`
	Gate       gate.GateDecision `json:"gate"`
}

// RiskAverse maximises EV - lambda*|CVaR95| over a fresh Monte Carlo draw.
type RiskAverse struct {
	Decision
	Metrics risk.Metrics      `json:"metrics"`
	Lambda  float64           `json:"lambda"`
	Gate    gate.GateDecision `json:"gate"`
}

// ReconVOI maximises net value of information over eligible cells.
type ReconVOI struct {
	Decision
	Sensor   sensor.Kind  `json:"sensor,omitempty"`
	Estimate voi.Estimate `json:"estimate"`
	Skipped  int          `json:"skipped"` // candidates dropped after a failed estimate
}

func (GreedyEV) Policy() Kind   { return KindGreedyEV }
func (RiskAverse) Policy() Kind { return KindRiskAverse }
func (ReconVOI) Policy() Kind   { return KindReconVOI }

func (r GreedyEV) Summary() Decision   { return r.Decision }
func (r RiskAverse) Summary() Decision { return r.Decision }
func (r ReconVOI) Summary() Decision   { return r.Decision }

func (GreedyEV) sealed()   {}
func (RiskAverse) sealed() {}
func (ReconVOI) sealed()   {}

// Advice carries one recommendation per policy.
type Advice struct {
	Turn       int        `json:"turn"`
	GreedyEV   GreedyEV   `json:"greedy_ev"`
	RiskAverse RiskAverse `json:"risk_averse"`
	ReconVOI   ReconVOI   `json:"recon_voi"`
}

// All returns the recommendations in policy order.
func (a Advice) All() []Recommendation {
	return []Recommendation{a.GreedyEV, a.RiskAverse, a.ReconVOI}
}

// #endregion recommendation

// #region config
// Config tunes the advisor.
type Config struct {
	Strike          strike.Config   `json:"strike" yaml:"strike"`
	Gate            gate.GateConfig `json:"gate" yaml:"gate"`
	VOI             voi.Config      `json:"voi" yaml:"voi"`
	Lambda          float64         `json:"lambda" yaml:"lambda"`                       // risk aversion
	PolicySamples   int             `json:"policy_samples" yaml:"policy_samples"`       // worlds drawn for RiskAverse
	MaxRecentRecons int             `json:"max_recent_recons" yaml:"max_recent_recons"` // cells at or above this are not re-observed
	Workers         int             `json:"workers" yaml:"workers"`
}

// DefaultConfig returns the advisor defaults.
func DefaultConfig() Config {
	return Config{
		Strike:          strike.DefaultConfig(),
		Gate:            gate.DefaultGateConfig(),
		VOI:             voi.DefaultConfig(),
		Lambda:          0.5,
		PolicySamples:   200,
		MaxRecentRecons: 2,
		Workers:         4,
	}
}

// Input is one advice request.
type Input struct {
	Grid         *grid.Grid
	Budget       float64
	Turn         int
	RecentWindow int            // turns counted by the recent-recon filter
	Sensors      []sensor.Rates // nil means every catalog sensor in a neutral context
	Stream       *rng.Stream
}

// #endregion config
