package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for audit publishing.
type Metrics struct {
	Emitted         *prometheus.CounterVec
	Sampled         prometheus.Counter
	Dropped         *prometheus.CounterVec
	PersistFailures *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Emitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbridge_audit_events_emitted_total",
			Help: "Total number of audit events accepted, by category",
		}, []string{"category"}),
		Sampled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustbridge_audit_events_sampled_total",
			Help: "Total number of operations audit events dropped by sampling",
		}),
		Dropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbridge_audit_events_dropped_total",
			Help: "Total number of audit events dropped because the async buffer was full",
		}, []string{"category"}),
		PersistFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbridge_audit_persist_failures_total",
			Help: "Total number of audit events the sink rejected, by category",
		}, []string{"category"}),
	}
}

func (m *Metrics) IncEmitted(category string) {
	if m == nil {
		return
	}
	m.Emitted.WithLabelValues(category).Inc()
}

func (m *Metrics) IncSampled() {
	if m == nil {
		return
	}
	m.Sampled.Inc()
}

func (m *Metrics) IncDropped(category string) {
	if m == nil {
		return
	}
	m.Dropped.WithLabelValues(category).Inc()
}

func (m *Metrics) IncPersistFailure(category string) {
	if m == nil {
		return
	}
	m.PersistFailures.WithLabelValues(category).Inc()
}
