package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ScansTotal          *prometheus.CounterVec
	ParticipantsCreated prometheus.Counter
	CompletionsTotal    prometheus.Counter
	RequestDuration     *prometheus.HistogramVec
}

// Scan outcomes used as the label value on ScansTotal.
const (
	ScanOutcomeStamped   = "stamped"
	ScanOutcomeDuplicate = "duplicate"
	ScanOutcomeRejected  = "rejected"
)

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		ScansTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stamprally_scans_total",
			Help: "Total number of QR scan attempts by outcome",
		}, []string{"outcome"}),
		ParticipantsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stamprally_participants_created_total",
			Help: "Total number of anonymous participants created",
		}),
		CompletionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stamprally_completions_total",
			Help: "Total number of participants who reached the stamp target",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stamprally_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// RecordScan increments the scan counter for the given outcome. Nil-safe so
// services can run without metrics in tests.
func (m *Metrics) RecordScan(outcome string) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(outcome).Inc()
}

// IncrementParticipantsCreated increments the participant counter by 1.
func (m *Metrics) IncrementParticipantsCreated() {
	if m == nil {
		return
	}
	m.ParticipantsCreated.Inc()
}

// ObserveRequestDuration records one request's latency against its route.
func (m *Metrics) ObserveRequestDuration(route string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route).Observe(seconds)
}

// IncrementCompletions increments the completion counter by 1.
func (m *Metrics) IncrementCompletions() {
	if m == nil {
		return
	}
	m.CompletionsTotal.Inc()
}
