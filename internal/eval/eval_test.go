package eval

import (
	"errors"
	"math"
	"testing"

	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"github.com/danielpatrickdp/recon-engine/internal/mathx"
)

func TestBrierFixedPoints(t *testing.T) {
	cases := []struct {
		p       float64
		outcome bool
		want    float64
	}{
		{1, true, 0},
		{0, false, 0},
		{0, true, 1},
		{1, false, 1},
		{0.5, true, 0.25},
	}
	for _, c := range cases {
		if got := Brier(c.p, c.outcome); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("Brier(%v,%v) = %v, want %v", c.p, c.outcome, got, c.want)
		}
	}
}

func TestBrierSymmetry(t *testing.T) {
	for p := 0.0; p <= 1.0; p += 0.05 {
		if math.Abs(Brier(p, true)-Brier(1-p, false)) > 1e-12 {
			t.Fatalf("Brier(%v,true) != Brier(%v,false)", p, 1-p)
		}
	}
}

func TestLogLossFiniteAtExtremes(t *testing.T) {
	for _, p := range []float64{0, 1} {
		for _, o := range []bool{true, false} {
			if v := LogLoss(p, o); !mathx.Finite(v) {
				t.Fatalf("LogLoss(%v,%v) not finite: %v", p, o, v)
			}
		}
	}
}

func TestLogLossIncreasesWithWrongConfidence(t *testing.T) {
	prev := LogLoss(0.5, false)
	for _, p := range []float64{0.6, 0.7, 0.8, 0.9, 0.99, 0.999999} {
		cur := LogLoss(p, false)
		if cur <= prev {
			t.Fatalf("log loss at %v (%v) not above previous (%v)", p, cur, prev)
		}
		prev = cur
	}
}

func TestCalibrateMismatchedLengths(t *testing.T) {
	_, err := Calibrate([]float64{0.1, 0.2}, []bool{true}, 10)
	if !errors.Is(err, mathx.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
	_, err = Calibrate(nil, nil, 0)
	if !errors.Is(err, mathx.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for zero bins, got %v", err)
	}
}

func TestMurphyDecompositionIdentity(t *testing.T) {
	// predictions constant within each bucket make the identity exact
	preds := []float64{0.15, 0.15, 0.15, 0.15, 0.55, 0.55, 0.55, 0.85, 0.85, 0.85}
	outcomes := []bool{false, false, true, false, true, false, true, true, true, false}

	rep, err := Calibrate(preds, outcomes, 10)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	recomposed := rep.Reliability - rep.Resolution + rep.Uncertainty
	if math.Abs(recomposed-rep.Brier) > 1e-12 {
		t.Fatalf("brier %v != rel - res + unc %v", rep.Brier, recomposed)
	}
	if math.Abs(rep.BaseRate-0.5) > 1e-12 || math.Abs(rep.Uncertainty-0.25) > 1e-12 {
		t.Fatalf("unexpected base rate %v / uncertainty %v", rep.BaseRate, rep.Uncertainty)
	}
}

func TestCalibrateBuckets(t *testing.T) {
	rep, err := Calibrate([]float64{0.05, 1.0}, []bool{false, true}, 4)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if rep.Buckets[0].Count != 1 || rep.Buckets[3].Count != 1 {
		t.Fatalf("unexpected bucket counts: %+v", rep.Buckets)
	}
	if rep.Reliability > 0.01 {
		t.Fatalf("near-perfect forecasts should have tiny reliability, got %v", rep.Reliability)
	}
}

func TestEvalHarnessPassesOnInformedBelief(t *testing.T) {
	g := grid.New(4, 1, 0.5, 0.1)
	truth := []bool{true, false, true, false}
	for i, hit := range truth {
		if hit {
			g.Cells[i].Posterior = 0.9
		} else {
			g.Cells[i].Posterior = 0.1
		}
	}
	h := NewEvalHarness(DefaultEvalConfig())
	res, err := h.Run(g, truth, []float64{0.8, 0.2, 0.7, 0.1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Passed {
		t.Fatalf("expected pass, got %s", res.Reason)
	}
	if len(res.Metrics) != 6 {
		t.Fatalf("expected 6 metrics, got %d", len(res.Metrics))
	}
}

func TestEvalHarnessFailsOnInvertedBelief(t *testing.T) {
	g := grid.New(2, 1, 0.5, 0.1)
	g.Cells[0].Posterior = 0.05
	g.Cells[1].Posterior = 0.95
	h := NewEvalHarness(DefaultEvalConfig())
	res, err := h.Run(g, []bool{true, false}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Passed {
		t.Fatal("expected failure on inverted beliefs")
	}
	if len(res.Metrics) != 5 {
		t.Fatalf("expected 5 metrics without latent field, got %d", len(res.Metrics))
	}
}

func TestEvalHarnessRejectsMismatchedTruth(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	_, err := h.Run(grid.New(2, 2, 0.5, 0.1), []bool{true}, nil)
	if !errors.Is(err, mathx.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}
