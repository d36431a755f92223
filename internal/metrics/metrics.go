// Package metrics records operational metrics for a loader run behind a
// small backend-agnostic interface.
//
// A global backend defaults to a no-op, so instrumentation is always safe
// to call. Concrete systems live in subpackages (prompush, datadog) and are
// installed once at start-up with SetBackend.
package metrics

import "time"

// Metric names emitted by the helpers below. Backends switch on them.
const (
	PhaseTotal           = "salesetl_phase_total"
	PhaseDurationSeconds = "salesetl_phase_duration_seconds"
	RowsTotal            = "salesetl_rows_total"
	BatchesTotal         = "salesetl_batches_total"
)

// Row kinds passed to RecordRow.
const (
	KindLoadedSales          = "loaded_sales"
	KindLoadedClients        = "loaded_clients"
	KindDroppedInvalidAmount = "dropped_invalid_amount"
	KindDuplicateClient      = "duplicate_client"
	KindUnmatchedClient      = "unmatched_client"
	KindInserted             = "inserted"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordPhase counts one execution of a run phase and observes its duration,
// labelled with success or failure.
func RecordPhase(job, phase string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"phase":  phase,
		"status": status,
	}

	backend.IncCounter(PhaseTotal, 1, lbls)
	backend.ObserveHistogram(PhaseDurationSeconds, d.Seconds(), lbls)
}

// RecordRow increments the row counter for kind. Non-positive deltas are
// ignored.
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches increments the insert batch counter for the given job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(delta), Labels{
		"job": job,
	})
}
