package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hospital_reports"

// Outcome labels of a dispatched schedule.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder holds the counters of the dispatch pipeline.
type Recorder struct {
	runs     *prometheus.CounterVec
	items    *prometheus.CounterVec
	duration prometheus.Histogram
}

// New registers the pipeline collectors on reg. A nil registerer keeps the
// collectors unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Dispatch runs by outcome.",
		}, []string{"outcome"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Scheduled reports processed by format and outcome.",
		}, []string{"format", "outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a dispatch run.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}

	if reg != nil {
		reg.MustRegister(r.runs, r.items, r.duration)
	}
	return r
}

// RunFinished records one dispatch run.
func (r *Recorder) RunFinished(outcome string, seconds float64) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(outcome).Inc()
	r.duration.Observe(seconds)
}

// ItemProcessed records one schedule outcome.
func (r *Recorder) ItemProcessed(format string, success bool) {
	if r == nil {
		return
	}
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeFailure
	}
	r.items.WithLabelValues(format, outcome).Inc()
}
