package server

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricsSet holds the Prometheus collectors for the event pipeline.
type metricsSet struct {
	eventsTotal      *prometheus.CounterVec
	handlerErrors    *prometheus.CounterVec
	handlerPanics    *prometheus.CounterVec
	triggersConsumed *prometheus.CounterVec
	activeSockets    prometheus.Gauge
	dispatchDuration *prometheus.HistogramVec
}

// One process-wide collector set. Server instances share it so tests and
// embeddings can create servers freely without duplicate registration.
var (
	sharedMetrics     *metricsSet
	sharedMetricsOnce sync.Once
)

func serverMetrics() *metricsSet {
	sharedMetricsOnce.Do(func() {
		sharedMetrics = newMetricsSet(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

func newMetricsSet(reg prometheus.Registerer) *metricsSet {
	factory := promauto.With(reg)

	return &metricsSet{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "events_total",
			Help:      "Total number of events dispatched",
		}, []string{"event"}),

		handlerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "handler_errors_total",
			Help:      "Total number of handler errors contained during dispatch",
		}, []string{"event"}),

		handlerPanics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "handler_panics_total",
			Help:      "Total number of handler panics contained during dispatch",
		}, []string{"event"}),

		triggersConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "trigger_firings_total",
			Help:      "Total number of externally injected events dispatched",
		}, []string{"event"}),

		activeSockets: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "hearth",
			Name:      "active_websockets",
			Help:      "Number of open WebSocket sessions",
		}),

		dispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hearth",
			Name:      "dispatch_duration_seconds",
			Help:      "Event dispatch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event"}),
	}
}
