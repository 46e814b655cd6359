package eval

// #region eval-config
// EvalConfig holds thresholds for post-episode belief validation.
type EvalConfig struct {
	MaxBrier          float64 `json:"max_brier" yaml:"max_brier"`                   // fail if mean Brier exceeds this
	MaxLogLoss        float64 `json:"max_log_loss" yaml:"max_log_loss"`             // fail if mean log loss exceeds this
	MinAccuracy       float64 `json:"min_accuracy" yaml:"min_accuracy"`             // fail if thresholded accuracy is below this
	AccuracyThreshold float64 `json:"accuracy_threshold" yaml:"accuracy_threshold"` // belief cut-off for accuracy
	Bins              int     `json:"bins" yaml:"bins"`                             // calibration bucket count
}

// DefaultEvalConfig returns lenient thresholds suitable for short episodes.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MaxBrier:          0.25,
		MaxLogLoss:        0.7,
		MinAccuracy:       0.6,
		AccuracyThreshold: 0.5,
		Bins:              10,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of belief validation.
type EvalResult struct {
	Passed      bool
	Metrics     []EvalMetric
	Reason      string
	Calibration CalibrationReport
}

// #endregion eval-result

// #region calibration
// Bucket is one fixed-width probability bin.
type Bucket struct {
	Lower          float64
	Upper          float64
	Count          int
	MeanPrediction float64
	ActualRate     float64
}

// CalibrationReport carries mean scores and the Murphy decomposition
// brier = reliability − resolution + uncertainty.
type CalibrationReport struct {
	N           int
	Brier       float64
	LogLoss     float64
	BaseRate    float64
	Reliability float64
	Resolution  float64
	Uncertainty float64
	Buckets     []Bucket
}

// #endregion calibration
