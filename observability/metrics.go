package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records accounting operation activity served through the
// gateway.
type EngineMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	reverts    *prometheus.CounterVec
}

var (
	engineMetricsOnce sync.Once
	engineRegistry    *EngineMetrics
)

// Engine returns the lazily-initialised engine metrics registry.
func Engine() *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dmc",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Total engine operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "dmc",
				Subsystem: "engine",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for engine operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			reverts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dmc",
				Subsystem: "engine",
				Name:      "reverts_total",
				Help:      "Total reverted operations segmented by operation and error class.",
			}, []string{"operation", "class"}),
		}
		prometheus.MustRegister(engineRegistry.operations, engineRegistry.latency, engineRegistry.reverts)
	})
	return engineRegistry
}

// ObserveOperation records one completed operation with its outcome and
// duration.
func (m *EngineMetrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveRevert records one reverted operation with its error class.
func (m *EngineMetrics) ObserveRevert(operation, class string) {
	if m == nil {
		return
	}
	m.reverts.WithLabelValues(operation, class).Inc()
}
