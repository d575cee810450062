// Package health implements C11: liveness/readiness/metrics, adapting
// pkg/http_server/chi_server wholesale (its /health, /ready, /live and
// /metrics endpoints, Start/Shutdown lifecycle) rather than hand-rolling
// a second HTTP surface. The metrics named in spec §4.11 are registered
// here as github.com/prometheus/client_golang gauges/counters/histograms
// on the default registry that promhttp.Handler (wired by chi_server)
// already exposes — a pull-based sink that runs alongside, not instead
// of, the OTel push-based metrics pkg/observability emits.
package health

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every Prometheus collector named in spec §4.11. Engine
// and client code updates these directly; the health server only
// exposes them.
type Metrics struct {
	PartitionLag        *prometheus.GaugeVec
	ActiveRetries        prometheus.Gauge
	CacheHitRate         prometheus.Gauge
	BreakerState         *prometheus.GaugeVec // 0=closed, 1=open, 2=half_open, labeled by dependency
	DLQPublishTotal      prometheus.Counter
	HandlerLatencySeconds *prometheus.HistogramVec
	HandlerSuccessTotal   *prometheus.CounterVec
	HandlerFailureTotal   *prometheus.CounterVec
}

// NewMetrics registers every collector on prometheus's default registry.
// Called once at startup; a second call would panic on duplicate
// registration, matching promauto's fail-fast contract.
func NewMetrics() *Metrics {
	return &Metrics{
		PartitionLag: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "intelligence_engine_partition_lag",
			Help: "Consumer lag in records, per topic/partition.",
		}, []string{"topic", "partition"}),

		ActiveRetries: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "intelligence_engine_active_retries",
			Help: "Number of records currently scheduled for retry.",
		}),

		CacheHitRate: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "intelligence_engine_cache_hit_rate",
			Help: "Rolling cache hit rate in [0,1].",
		}),

		BreakerState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "intelligence_engine_breaker_state",
			Help: "Circuit breaker state: 0=closed, 1=open, 2=half_open.",
		}, []string{"dependency"}),

		DLQPublishTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "intelligence_engine_dlq_publish_total",
			Help: "Total terminal failures published to the DLQ.",
		}),

		HandlerLatencySeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "intelligence_engine_handler_latency_seconds",
			Help:    "Per-handler execution latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation_type"}),

		HandlerSuccessTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intelligence_engine_handler_success_total",
			Help: "Total successful handler executions.",
		}, []string{"operation_type"}),

		HandlerFailureTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intelligence_engine_handler_failure_total",
			Help: "Total failed handler executions, labeled by error class.",
		}, []string{"operation_type", "error_class"}),
	}
}
