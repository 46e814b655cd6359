package gate

import (
	"fmt"

	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	"github.com/danielpatrickdp/recon-engine/internal/strike"
)

// #region gate
// Gate decides whether a proposed strike may proceed.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Evaluate checks hard vetoes first, then scores soft signals.
// cost is the strike's fixed cost, budget what the caller has left.
func (g *Gate) Evaluate(ev strike.Evaluation, cost, budget float64) GateDecision {
	var vetoes []VetoSignal

	// --- Hard veto pass ---

	if ev.Cells == 0 {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoEmptyArea,
			Reason: "area of effect contains no on-grid cells",
		})
	}

	if !mathx.Finite(ev.EV) || !mathx.Finite(ev.CollateralRisk) {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoNonFinite,
			Reason: "strike value is not finite",
		})
	}

	if ev.CollateralRisk > g.config.CollateralThreshold {
		vetoes = append(vetoes, VetoSignal{
			Type: VetoCollateral,
			Reason: fmt.Sprintf("collateral risk %.4f exceeds threshold %.4f at %s",
				ev.CollateralRisk, g.config.CollateralThreshold, ev.Center),
		})
	}

	if cost > budget {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoBudget,
			Reason: fmt.Sprintf("strike cost %.2f exceeds remaining budget %.2f", cost, budget),
		})
	}

	if len(vetoes) > 0 {
		return GateDecision{
			Action:      "reject",
			Reason:      fmt.Sprintf("hard veto: %s", vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
		}
	}

	// --- Soft scoring ---
	var warnings []string
	if g.config.CollateralThreshold > 0 && ev.CollateralRisk > g.config.WarnFraction*g.config.CollateralThreshold {
		warnings = append(warnings, fmt.Sprintf("collateral risk %.4f within %.0f%% of threshold",
			ev.CollateralRisk, (1-g.config.WarnFraction)*100))
	}
	if ev.EV <= 0 {
		warnings = append(warnings, fmt.Sprintf("expected value %.2f is not positive", ev.EV))
	}

	softScore := computeSoftScore(ev, g.config.CollateralThreshold)

	return GateDecision{
		Action:    "approve",
		Reason:    fmt.Sprintf("passed gate: soft_score=%.4f", softScore),
		Warnings:  warnings,
		SoftScore: softScore,
	}
}

// #endregion gate

// #region helpers
// computeSoftScore blends collateral headroom (weight 0.5), EV sign (0.3),
// and expected hostiles per cell (0.2) into [0, 1].
func computeSoftScore(ev strike.Evaluation, threshold float64) float64 {
	var score float64

	if threshold > 0 {
		score += 0.5 * mathx.Clamp(1-ev.CollateralRisk/threshold, 0, 1)
	}

	if ev.EV > 0 {
		score += 0.3
	}

	if ev.Cells > 0 {
		score += 0.2 * mathx.Clamp(ev.ExpectedHostiles/float64(ev.Cells), 0, 1)
	}

	return score
}

// #endregion helpers
