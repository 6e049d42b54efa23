package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveOperation("view", 15*time.Millisecond, ResultSuccess)
	pr.ObserveOperation("sync", 20*time.Millisecond, ResultFailed)
	pr.IncDeltasApplied(3)
	pr.IncDeltasApplied(0)
	pr.IncDeltasSkipped("missing_target")
	pr.IncDeltasSkipped("missing_target")
	pr.IncDeltasPruned(2)
	pr.IncConflict()

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, mfs, 6)

	assert.Equal(t, 3.0, testutil.ToFloat64(pr.deltasApplied))
	assert.Equal(t, 2.0, testutil.ToFloat64(pr.deltasSkipped.WithLabelValues("missing_target")))
	assert.Equal(t, 2.0, testutil.ToFloat64(pr.deltasPruned))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.conflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.opResults.WithLabelValues("sync", "failed")))
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.ObserveOperation("view", time.Second, ResultSuccess)
		pr.IncDeltasApplied(1)
		pr.IncDeltasSkipped("x")
		pr.IncDeltasPruned(1)
		pr.IncConflict()
	})
}

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveOperation("view", time.Second, ResultSuccess)
	r.IncConflict()
}
