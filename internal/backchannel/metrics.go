package backchannel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"trustbridge/internal/backchannel/models"
)

// Metrics counts backchannel lifecycle events per backend.
type Metrics struct {
	Initiated *prometheus.CounterVec
	Resolved  *prometheus.CounterVec
	Cancelled *prometheus.CounterVec
	Cleaned   *prometheus.CounterVec
	Failures  *prometheus.CounterVec
}

// NewMetrics registers the backchannel metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Initiated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbridge_backchannel_initiated_total",
			Help: "Backchannel authentication requests registered",
		}, []string{"provider"}),
		Resolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbridge_backchannel_resolved_total",
			Help: "Backchannel authentication requests resolved by the backend, by status",
		}, []string{"provider", "status"}),
		Cancelled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbridge_backchannel_cancelled_total",
			Help: "Backchannel authentication requests cancelled",
		}, []string{"provider"}),
		Cleaned: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbridge_backchannel_cleaned_total",
			Help: "Pending backchannel requests removed by age-based cleanup",
		}, []string{"provider"}),
		Failures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbridge_backchannel_backend_failures_total",
			Help: "Backend I/O failures by operation",
		}, []string{"provider", "operation"}),
	}
}

// The helpers below accept a nil receiver so backends can run without metrics.

func (m *Metrics) IncInitiated(kind Kind) {
	if m != nil {
		m.Initiated.WithLabelValues(string(kind)).Inc()
	}
}

func (m *Metrics) IncResolved(kind Kind, status models.Status) {
	if m != nil {
		m.Resolved.WithLabelValues(string(kind), string(status)).Inc()
	}
}

func (m *Metrics) IncCancelled(kind Kind) {
	if m != nil {
		m.Cancelled.WithLabelValues(string(kind)).Inc()
	}
}

func (m *Metrics) AddCleaned(kind Kind, n int) {
	if m != nil && n > 0 {
		m.Cleaned.WithLabelValues(string(kind)).Add(float64(n))
	}
}

func (m *Metrics) IncFailure(kind Kind, operation string) {
	if m != nil {
		m.Failures.WithLabelValues(string(kind), operation).Inc()
	}
}
