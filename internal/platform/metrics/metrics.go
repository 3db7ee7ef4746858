// Package metrics defines the Prometheus metrics of the audit API and the
// ledger node.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Commit outcomes recorded on ledger_commits_total
const (
	OutcomeSubmitted = "submitted"
	OutcomeConfirmed = "confirmed"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
	OutcomeTimedOut  = "timed_out"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	LedgerCommits        *prometheus.CounterVec
	SubmitRetries        prometheus.Counter
	CommitQueueDropped   prometheus.Counter
	CommitQueueDepth     prometheus.Gauge
	ConfirmationDuration prometheus.Histogram
	ReconcileVerdicts    *prometheus.CounterVec
	RecordsSealed        *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LedgerCommits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aid_audit_ledger_commits_total",
			Help: "Ledger commits by event kind and outcome",
		}, []string{"kind", "outcome"}),
		SubmitRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "aid_audit_ledger_submit_retries_total",
			Help: "Retries of ledger submissions after a transient failure",
		}),
		CommitQueueDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "aid_audit_commit_queue_dropped_total",
			Help: "Ledger commit jobs dropped because the queue was full",
		}),
		CommitQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aid_audit_commit_queue_depth",
			Help: "Ledger commit jobs waiting in the queue",
		}),
		ConfirmationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aid_audit_ledger_confirmation_duration_seconds",
			Help:    "Time from submission until the ledger confirmed a transaction",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		ReconcileVerdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aid_audit_reconciliation_verdicts_total",
			Help: "Reconciliation verdicts by status",
		}, []string{"status"}),
		RecordsSealed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aid_ledger_node_records_sealed_total",
			Help: "Submissions sealed by the ledger node, by resulting state",
		}, []string{"state"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aid_audit_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// ObserveCommit counts one commit outcome for an event kind
func (m *Metrics) ObserveCommit(kind, outcome string) {
	if m == nil {
		return
	}
	m.LedgerCommits.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) IncrementSubmitRetries() {
	if m == nil {
		return
	}
	m.SubmitRetries.Inc()
}

func (m *Metrics) IncrementQueueDropped() {
	if m == nil {
		return
	}
	m.CommitQueueDropped.Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.CommitQueueDepth.Set(float64(n))
}

// ObserveConfirmation records the submission-to-confirmation latency.
// Call with the submission time.
func (m *Metrics) ObserveConfirmation(submitted time.Time) {
	if m == nil {
		return
	}
	m.ConfirmationDuration.Observe(time.Since(submitted).Seconds())
}

func (m *Metrics) ObserveVerdict(status string) {
	if m == nil {
		return
	}
	m.ReconcileVerdicts.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveSealed(state string) {
	if m == nil {
		return
	}
	m.RecordsSealed.WithLabelValues(state).Inc()
}

func (m *Metrics) ObserveHTTPRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
