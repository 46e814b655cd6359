package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(WorldsSampled.WithLabelValues("plain"))
	WorldsSampled.WithLabelValues("plain").Add(5)
	assert.Equal(t, before+5, testutil.ToFloat64(WorldsSampled.WithLabelValues("plain")))

	before = testutil.ToFloat64(CandidatesSkipped.WithLabelValues("recon_voi"))
	CandidatesSkipped.WithLabelValues("recon_voi").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(CandidatesSkipped.WithLabelValues("recon_voi")))
}
