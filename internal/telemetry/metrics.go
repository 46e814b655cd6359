package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors register on the default registry at init. reconctl serve
// exposes them on /metrics.
var (
	// WorldsSampled counts Monte Carlo worlds by sampler mode.
	// Labels: "plain", "focused"
	WorldsSampled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recon_worlds_sampled_total",
		Help: "Monte Carlo worlds drawn, by sampler mode",
	}, []string{"mode"})

	VOIEstimates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recon_voi_estimates_total",
		Help: "Value-of-information estimates computed",
	})

	// CandidatesSkipped counts sweep candidates dropped because their
	// computation failed. Labels: policy name.
	CandidatesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recon_candidates_skipped_total",
		Help: "Policy sweep candidates excluded after a failed evaluation",
	}, []string{"policy"})

	AdviseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recon_advise_duration_seconds",
		Help:    "Wall time of a full policy advice pass",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	// RPCRequests counts engine RPCs by method and result ("ok", "error").
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recon_rpc_requests_total",
		Help: "Engine RPCs by method and result",
	}, []string{"method", "result"})
)
