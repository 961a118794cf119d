package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RateLimitRejected *prometheus.CounterVec
	RateLimitBuckets  prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		RateLimitRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbridge_ratelimit_rejected_total",
			Help: "Requests refused by the rate limiter",
		}, []string{"class"}),
		RateLimitBuckets: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "trustbridge_ratelimit_buckets",
			Help: "Live token buckets after the last sweep",
		}),
	}
}

func (m *Metrics) IncrementRejected(class string) {
	if m == nil {
		return
	}
	m.RateLimitRejected.WithLabelValues(class).Inc()
}

func (m *Metrics) SetBuckets(count int) {
	if m == nil {
		return
	}
	m.RateLimitBuckets.Set(float64(count))
}
