package gate

import (
	"math"
	"testing"

	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"github.com/danielpatrickdp/recon-engine/internal/strike"
)

func evaluation(collateral, ev float64) strike.Evaluation {
	return strike.Evaluation{
		Center:           grid.Point{X: 2, Y: 2},
		Radius:           1,
		EV:               ev,
		ExpectedHostiles: 2,
		ExpectedInfra:    collateral,
		CollateralRisk:   collateral,
		Cells:            5,
	}
}

func hasVeto(d GateDecision, vt VetoType) bool {
	for _, v := range d.VetoSignals {
		if v.Type == vt {
			return true
		}
	}
	return false
}

func TestGateApprovesSafeStrike(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	d := g.Evaluate(evaluation(0.05, 12), 3, 100)
	if d.Action != "approve" {
		t.Fatalf("expected approve, got %s (%s)", d.Action, d.Reason)
	}
	if d.Vetoed {
		t.Fatal("expected no veto")
	}
	if d.SoftScore <= 0 || d.SoftScore > 1 {
		t.Fatalf("soft score out of range: %f", d.SoftScore)
	}
	if len(d.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", d.Warnings)
	}
}

func TestGateVetoesCollateral(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	d := g.Evaluate(evaluation(0.45, 12), 3, 100)
	if d.Action != "reject" || !hasVeto(d, VetoCollateral) {
		t.Fatalf("expected collateral veto, got %+v", d)
	}
}

func TestGateVetoesBudget(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	d := g.Evaluate(evaluation(0.05, 12), 3, 2)
	if !hasVeto(d, VetoBudget) {
		t.Fatalf("expected budget veto, got %+v", d)
	}
}

func TestGateVetoesEmptyAndNonFinite(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	ev := evaluation(0.05, math.NaN())
	ev.Cells = 0
	d := g.Evaluate(ev, 0, 10)
	if !hasVeto(d, VetoEmptyArea) || !hasVeto(d, VetoNonFinite) {
		t.Fatalf("expected empty-area and non-finite vetoes, got %+v", d.VetoSignals)
	}
}

func TestGateWarnsNearThreshold(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	d := g.Evaluate(evaluation(0.28, -1), 3, 100)
	if d.Action != "approve" {
		t.Fatalf("expected approve, got %s", d.Action)
	}
	if len(d.Warnings) != 2 {
		t.Fatalf("expected collateral and EV warnings, got %v", d.Warnings)
	}
}

func TestSoftScoreRewardsHeadroom(t *testing.T) {
	safe := computeSoftScore(evaluation(0.01, 5), 0.3)
	risky := computeSoftScore(evaluation(0.29, 5), 0.3)
	if safe <= risky {
		t.Fatalf("expected safer strike to score higher: %f vs %f", safe, risky)
	}
}
