package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the review workflow. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Assignment outcomes by result: "ok" or an error type
	Assignments *prometheus.CounterVec

	// Review submission outcomes by result
	Submissions *prometheus.CounterVec

	// Paper status transitions by source (automatic/manual) and target status
	StatusTransitions *prometheus.CounterVec

	// Duration of the transactional part of each workflow operation
	OperationLatency *prometheus.HistogramVec
}

// New registers the workflow metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Assignments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paperflow_review_assignments_total",
			Help: "Reviewer assignment attempts by result",
		}, []string{"result"}),

		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paperflow_review_submissions_total",
			Help: "Review submission attempts by result",
		}, []string{"result"}),

		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paperflow_paper_status_transitions_total",
			Help: "Paper status transitions by source and from/to status",
		}, []string{"source", "from", "to"}),

		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paperflow_workflow_operation_duration_seconds",
			Help:    "Duration of workflow operations including the store transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

// IncrementAssignment records an assignment outcome.
func (m *Metrics) IncrementAssignment(result string) {
	if m != nil {
		m.Assignments.WithLabelValues(result).Inc()
	}
}

// IncrementSubmission records a review submission outcome.
func (m *Metrics) IncrementSubmission(result string) {
	if m != nil {
		m.Submissions.WithLabelValues(result).Inc()
	}
}

// IncrementTransition records a paper status change.
func (m *Metrics) IncrementTransition(source, from, to string) {
	if m != nil {
		m.StatusTransitions.WithLabelValues(source, from, to).Inc()
	}
}

// ObserveOperation records how long a workflow operation took.
func (m *Metrics) ObserveOperation(operation string, d time.Duration) {
	if m != nil {
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}
