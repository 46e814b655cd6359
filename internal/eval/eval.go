package eval

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/recon-engine/internal/field"
	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"github.com/danielpatrickdp/recon-engine/internal/mathx"
)

const logLossEps = 1e-15

// #region scores
// Brier is the squared error of one probabilistic prediction.
func Brier(p float64, outcome bool) float64 {
	p = mathx.Clamp(p, 0, 1)
	o := 0.0
	if outcome {
		o = 1
	}
	return (p - o) * (p - o)
}

// LogLoss is the negative log-likelihood of one prediction, clamped so it is
// finite at p=0 and p=1.
func LogLoss(p float64, outcome bool) float64 {
	p = mathx.Clamp(p, logLossEps, 1-logLossEps)
	if outcome {
		return -math.Log(p)
	}
	return -math.Log(1 - p)
}

// #endregion scores

// #region calibrate
// Calibrate buckets predictions into fixed-width bins and returns mean scores
// plus the Murphy decomposition.
func Calibrate(preds []float64, outcomes []bool, bins int) (CalibrationReport, error) {
	if len(preds) != len(outcomes) {
		return CalibrationReport{}, fmt.Errorf("calibrate %d predictions vs %d outcomes: %w",
			len(preds), len(outcomes), mathx.ErrInvalidParameter)
	}
	if bins <= 0 {
		return CalibrationReport{}, fmt.Errorf("calibrate with %d bins: %w", bins, mathx.ErrInvalidParameter)
	}
	rep := CalibrationReport{N: len(preds), Buckets: make([]Bucket, bins)}
	width := 1.0 / float64(bins)
	for i := range rep.Buckets {
		rep.Buckets[i].Lower = float64(i) * width
		rep.Buckets[i].Upper = float64(i+1) * width
	}
	if len(preds) == 0 {
		return rep, nil
	}

	predSum := make([]float64, bins)
	hitSum := make([]float64, bins)
	var positives float64
	for i, p := range preds {
		p = mathx.Clamp(p, 0, 1)
		rep.Brier += Brier(p, outcomes[i])
		rep.LogLoss += LogLoss(p, outcomes[i])

		b := int(p * float64(bins))
		if b >= bins {
			b = bins - 1
		}
		rep.Buckets[b].Count++
		predSum[b] += p
		if outcomes[i] {
			hitSum[b]++
			positives++
		}
	}

	n := float64(len(preds))
	rep.Brier /= n
	rep.LogLoss /= n
	rep.BaseRate = positives / n
	rep.Uncertainty = rep.BaseRate * (1 - rep.BaseRate)

	for i := range rep.Buckets {
		b := &rep.Buckets[i]
		if b.Count == 0 {
			continue
		}
		k := float64(b.Count)
		b.MeanPrediction = predSum[i] / k
		b.ActualRate = hitSum[i] / k
		rep.Reliability += k / n * (b.MeanPrediction - b.ActualRate) * (b.MeanPrediction - b.ActualRate)
		rep.Resolution += k / n * (b.ActualRate - rep.BaseRate) * (b.ActualRate - rep.BaseRate)
	}
	return rep, nil
}

// #endregion calibrate

// #region eval-harness
// EvalHarness validates a belief grid against ground truth.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run scores every cell's posterior against the hostile truth flags.
// Brier, log loss and accuracy gate the result; reliability and field
// correlation are informational.
func (h *EvalHarness) Run(g *grid.Grid, truth []bool, latent []float64) (EvalResult, error) {
	preds := g.Posteriors()
	rep, err := Calibrate(preds, truth, h.config.Bins)
	if err != nil {
		return EvalResult{}, fmt.Errorf("eval: %w", err)
	}
	acc, err := field.SpatialAccuracy(preds, truth, h.config.AccuracyThreshold)
	if err != nil {
		return EvalResult{}, fmt.Errorf("eval: %w", err)
	}

	var metrics []EvalMetric
	var failReasons []string
	check := func(name string, value float64, pass bool, reason string) {
		metrics = append(metrics, EvalMetric{Name: name, Value: value, Pass: pass})
		if !pass && reason != "" {
			failReasons = append(failReasons, reason)
		}
	}

	check("brier", rep.Brier, rep.Brier <= h.config.MaxBrier,
		fmt.Sprintf("brier %.4f exceeds %.4f", rep.Brier, h.config.MaxBrier))
	check("log_loss", rep.LogLoss, rep.LogLoss <= h.config.MaxLogLoss,
		fmt.Sprintf("log loss %.4f exceeds %.4f", rep.LogLoss, h.config.MaxLogLoss))
	check("spatial_accuracy", acc, acc >= h.config.MinAccuracy,
		fmt.Sprintf("accuracy %.4f below %.4f", acc, h.config.MinAccuracy))

	// informational only
	check("reliability", rep.Reliability, true, "")
	check("resolution", rep.Resolution, true, "")
	if latent != nil {
		r, err := field.Correlation(preds, latent)
		if err != nil {
			return EvalResult{}, fmt.Errorf("eval: %w", err)
		}
		check("field_correlation", r, true, "")
	}

	reason := "all checks passed"
	if len(failReasons) == 1 {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
	} else if len(failReasons) > 1 {
		reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
	}

	return EvalResult{
		Passed:      len(failReasons) == 0,
		Metrics:     metrics,
		Reason:      reason,
		Calibration: rep,
	}, nil
}

// #endregion eval-harness
