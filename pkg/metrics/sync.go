package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics tracks pipeline runs, their attempts and what they wrote.
type SyncMetrics struct {
	runDuration *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	attempts    *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	rows        *prometheus.CounterVec
	requests    *prometheus.CounterVec
}

// NewSyncMetrics registers the sync metrics on reg. A nil registerer yields a
// no-op recorder.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	m := &SyncMetrics{
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "possync_run_duration_seconds",
			Help:    "Wall time of a sync run including retries.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"trigger"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "possync_runs_total",
			Help: "Finished sync runs by outcome.",
		}, []string{"outcome"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "possync_attempts_total",
			Help: "Core attempts by outcome.",
		}, []string{"outcome"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "possync_skipped_total",
			Help: "Extractions skipped by reason.",
		}, []string{"stage", "reason"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "possync_rows_written_total",
			Help: "Rows written to the report store by sheet.",
		}, []string{"sheet"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "possync_upstream_requests_total",
			Help: "Upstream page requests by resource and status class.",
		}, []string{"resource", "status"}),
	}
	reg.MustRegister(m.runDuration, m.runs, m.attempts, m.skipped, m.rows, m.requests)
	return m
}

func (m *SyncMetrics) ObserveRun(trigger, outcome string, d time.Duration) {
	if m == nil || m.runs == nil {
		return
	}
	m.runDuration.WithLabelValues(normalizeLabel(trigger)).Observe(d.Seconds())
	m.runs.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *SyncMetrics) IncAttempt(outcome string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *SyncMetrics) IncSkipped(stage, reason string) {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.WithLabelValues(normalizeLabel(stage), normalizeLabel(reason)).Inc()
}

func (m *SyncMetrics) AddRows(sheet string, n int) {
	if m == nil || m.rows == nil || n <= 0 {
		return
	}
	m.rows.WithLabelValues(normalizeLabel(sheet)).Add(float64(n))
}

// IncRequest counts one upstream call. status is the HTTP status code, or 0
// when the request never got a response.
func (m *SyncMetrics) IncRequest(resource string, status int) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(normalizeLabel(resource), statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status <= 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
