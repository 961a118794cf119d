package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the federation broker.
type Metrics struct {
	StageDuration   *prometheus.HistogramVec
	StageFailures   *prometheus.CounterVec
	FlowsCompleted  *prometheus.CounterVec
	RemoteRetries   *prometheus.CounterVec
	CircuitOpen     *prometheus.GaugeVec
	TokensReissued  prometheus.Counter
	ReissueHopCount prometheus.Histogram
}

// New creates a new Metrics instance with all broker metrics registered.
func New() *Metrics {
	return &Metrics{
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trustbridge_federation_stage_duration_seconds",
			Help:    "Duration of broker protocol stages",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"stage"}),
		StageFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbridge_federation_stage_failures_total",
			Help: "Broker stage failures by error code",
		}, []string{"stage", "code"}),
		FlowsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbridge_federation_flows_completed_total",
			Help: "Federation flows reaching COMPLETE, by mode",
		}, []string{"mode"}),
		RemoteRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbridge_federation_remote_retries_total",
			Help: "Retried home provider calls by provider",
		}, []string{"provider"}),
		CircuitOpen: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trustbridge_federation_circuit_open",
			Help: "1 while the circuit to a home provider is open",
		}, []string{"provider"}),
		TokensReissued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustbridge_federation_tokens_reissued_total",
			Help: "Tokens minted by the broker",
		}),
		ReissueHopCount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustbridge_federation_reissue_hop_count",
			Help:    "Trust path hop count of reissued tokens",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 8},
		}),
	}
}

// ObserveStage records the duration of one stage.
// Call with time.Now() at the start of the stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncStageFailure(stage, code string) {
	if m == nil {
		return
	}
	m.StageFailures.WithLabelValues(stage, code).Inc()
}

func (m *Metrics) IncCompleted(mode string) {
	if m == nil {
		return
	}
	m.FlowsCompleted.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncRetry(providerID string) {
	if m == nil {
		return
	}
	m.RemoteRetries.WithLabelValues(providerID).Inc()
}

func (m *Metrics) SetCircuitOpen(providerID string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.CircuitOpen.WithLabelValues(providerID).Set(v)
}

func (m *Metrics) ObserveReissue(hopCount int) {
	if m == nil {
		return
	}
	m.TokensReissued.Inc()
	m.ReissueHopCount.Observe(float64(hopCount))
}
