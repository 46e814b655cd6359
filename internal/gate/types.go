package gate

// #region veto-type
// VetoType enumerates hard veto categories.
type VetoType string

const (
	VetoCollateral VetoType = "collateral_risk"
	VetoBudget     VetoType = "insufficient_budget"
	VetoEmptyArea  VetoType = "empty_area"
	VetoNonFinite  VetoType = "non_finite_value"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected hard veto condition.
type VetoSignal struct {
	Type   VetoType `json:"type"`
	Reason string   `json:"reason"`
}

// #endregion veto-signal

// #region gate-config
// GateConfig holds thresholds for strike validation.
type GateConfig struct {
	CollateralThreshold float64 `json:"collateral_threshold" yaml:"collateral_threshold"` // hard cap on max single-cell infra probability
	WarnFraction        float64 `json:"warn_fraction" yaml:"warn_fraction"`               // soft: warn above this fraction of the cap
}

// DefaultGateConfig returns the default collateral cap.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		CollateralThreshold: 0.3,
		WarnFraction:        0.75,
	}
}

// #endregion gate-config

// #region gate-decision
// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Action      string       `json:"action"` // "approve" | "reject"
	Reason      string       `json:"reason"`
	Vetoed      bool         `json:"vetoed"`
	VetoSignals []VetoSignal `json:"veto_signals,omitempty"` // non-empty if vetoed
	Warnings    []string     `json:"warnings,omitempty"`
	SoftScore   float64      `json:"soft_score"` // 0-1 composite of soft signals (for logging)
}

// #endregion gate-decision
