package metrics

import "time"

// ResultLabel is the outcome label attached to operation metrics.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// Recorder receives engine and service level measurements.
type Recorder interface {
	ObserveOperation(op string, d time.Duration, result ResultLabel)
	IncDeltasApplied(n int)
	IncDeltasSkipped(reason string)
	IncDeltasPruned(n int)
	IncConflict()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveOperation(string, time.Duration, ResultLabel) {}
func (NoopRecorder) IncDeltasApplied(int)                                {}
func (NoopRecorder) IncDeltasSkipped(string)                             {}
func (NoopRecorder) IncDeltasPruned(int)                                 {}
func (NoopRecorder) IncConflict()                                        {}
