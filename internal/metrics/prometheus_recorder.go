package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	opDuration    *prom.HistogramVec
	opResults     *prom.CounterVec
	deltasApplied prom.Counter
	deltasSkipped *prom.CounterVec
	deltasPruned  prom.Counter
	conflicts     prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.opDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "remix",
			Name:      "operation_duration_seconds",
			Help:      "Duration of fork lifecycle operations",
			Buckets:   prom.DefBuckets,
		}, []string{"op"})
		pr.opResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "remix",
			Name:      "operation_results_total",
			Help:      "Fork lifecycle operation counts by outcome",
		}, []string{"op", "result"})
		pr.deltasApplied = prom.NewCounter(prom.CounterOpts{
			Namespace: "remix",
			Name:      "deltas_applied_total",
			Help:      "Deltas that changed a working tree during apply",
		})
		pr.deltasSkipped = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "remix",
			Name:      "deltas_skipped_total",
			Help:      "Deltas skipped during apply by reason",
		}, []string{"reason"})
		pr.deltasPruned = prom.NewCounter(prom.CounterOpts{
			Namespace: "remix",
			Name:      "deltas_pruned_total",
			Help:      "Orphaned deltas dropped while syncing forks",
		})
		pr.conflicts = prom.NewCounter(prom.CounterOpts{
			Namespace: "remix",
			Name:      "fork_conflicts_total",
			Help:      "Fork saves rejected because of a concurrent update",
		})
		reg.MustRegister(pr.opDuration, pr.opResults, pr.deltasApplied, pr.deltasSkipped, pr.deltasPruned, pr.conflicts)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveOperation(op string, d time.Duration, result ResultLabel) {
	if p == nil || p.opDuration == nil {
		return
	}
	p.opDuration.WithLabelValues(op).Observe(d.Seconds())
	p.opResults.WithLabelValues(op, string(result)).Inc()
}

func (p *PrometheusRecorder) IncDeltasApplied(n int) {
	if p == nil || p.deltasApplied == nil || n <= 0 {
		return
	}
	p.deltasApplied.Add(float64(n))
}

func (p *PrometheusRecorder) IncDeltasSkipped(reason string) {
	if p == nil || p.deltasSkipped == nil {
		return
	}
	p.deltasSkipped.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) IncDeltasPruned(n int) {
	if p == nil || p.deltasPruned == nil || n <= 0 {
		return
	}
	p.deltasPruned.Add(float64(n))
}

func (p *PrometheusRecorder) IncConflict() {
	if p == nil || p.conflicts == nil {
		return
	}
	p.conflicts.Inc()
}
