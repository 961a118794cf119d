package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the trust network registry.
type Metrics struct {
	NetworkLoads        *prometheus.CounterVec
	NetworkLoadDuration prometheus.Histogram
	DroppedEdges        prometheus.Counter
	PathLookups         *prometheus.CounterVec
	NetworkProviders    *prometheus.GaugeVec
	NetworkEdges        *prometheus.GaugeVec
}

// New creates a new Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		NetworkLoads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbridge_trust_network_loads_total",
			Help: "Trust network loads by trigger (initial, refresh) and outcome",
		}, []string{"trigger", "outcome"}),
		NetworkLoadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustbridge_trust_network_load_duration_seconds",
			Help:    "Duration of trust network loads from the configured source",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		DroppedEdges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustbridge_trust_dropped_edges_total",
			Help: "Trust edges dropped at load because an endpoint was not a network member",
		}),
		PathLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbridge_trust_path_lookups_total",
			Help: "Trust path computations by outcome (found, not_found, untrusted)",
		}, []string{"outcome"}),
		NetworkProviders: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trustbridge_trust_network_providers",
			Help: "Member providers in the cached network snapshot",
		}, []string{"network"}),
		NetworkEdges: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trustbridge_trust_network_edges",
			Help: "Trust edges in the cached network snapshot",
		}, []string{"network"}),
	}
}

// ObserveLoad records one load attempt.
// Call with time.Now() at the start of the load.
func (m *Metrics) ObserveLoad(trigger string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.NetworkLoads.WithLabelValues(trigger, outcome).Inc()
	m.NetworkLoadDuration.Observe(time.Since(start).Seconds())
}

// RecordSnapshot updates the size gauges for a freshly cached snapshot.
func (m *Metrics) RecordSnapshot(networkID string, providers, edges, dropped int) {
	m.NetworkProviders.WithLabelValues(networkID).Set(float64(providers))
	m.NetworkEdges.WithLabelValues(networkID).Set(float64(edges))
	m.DroppedEdges.Add(float64(dropped))
}

func (m *Metrics) IncPathLookup(outcome string) {
	m.PathLookups.WithLabelValues(outcome).Inc()
}
