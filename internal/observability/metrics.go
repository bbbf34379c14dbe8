// Package observability provides the Prometheus metrics bundle for the
// cache coordinator.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the coordinator.
type Metrics struct {
	CacheHitTotal       *prometheus.CounterVec
	CacheMissTotal      *prometheus.CounterVec
	CacheEvictionTotal  *prometheus.CounterVec
	CacheErrorTotal     *prometheus.CounterVec
	LoadLatencySeconds  *prometheus.HistogramVec
	RegionSize          *prometheus.GaugeVec
	AlertsTotal         *prometheus.CounterVec
	WarmupItemsLoaded   *prometheus.CounterVec
	InvalidationsTotal  *prometheus.CounterVec
	CircuitBreakerState *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance registered on the default registry.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		CacheHitTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hit_total",
				Help:      "Total number of cache hits",
			},
			[]string{"tier", "region"},
		),
		CacheMissTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_miss_total",
				Help:      "Total number of cache misses",
			},
			[]string{"region"},
		),
		CacheEvictionTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_eviction_total",
				Help:      "Total number of local tier evictions",
			},
			[]string{"region"},
		),
		CacheErrorTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_error_total",
				Help:      "Total number of tier failures degraded to misses",
			},
			[]string{"region"},
		),
		LoadLatencySeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "load_latency_seconds",
				Help:      "Loader invocation latency in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"region"},
		),
		RegionSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "region_size",
				Help:      "Current entry count of each region's local tier",
			},
			[]string{"region"},
		),
		AlertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_total",
				Help:      "Total number of alerts emitted, by type",
			},
			[]string{"type", "region"},
		),
		WarmupItemsLoaded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "warmup_items_loaded_total",
				Help:      "Total number of entries preloaded by warmup jobs",
			},
			[]string{"region"},
		),
		InvalidationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invalidations_total",
				Help:      "Total number of relationship invalidations executed",
			},
			[]string{"entity_type"},
		),
		CircuitBreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Current state of the circuit breaker (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),
	}
}

// RecordHit records a cache hit for a tier.
func (m *Metrics) RecordHit(tier, region string) {
	m.CacheHitTotal.WithLabelValues(tier, region).Inc()
}

// RecordMiss records a cache miss.
func (m *Metrics) RecordMiss(region string) {
	m.CacheMissTotal.WithLabelValues(region).Inc()
}

// RecordEviction records a local-tier eviction.
func (m *Metrics) RecordEviction(region string) {
	m.CacheEvictionTotal.WithLabelValues(region).Inc()
}

// RecordError records a tier failure degraded to a miss.
func (m *Metrics) RecordError(region string) {
	m.CacheErrorTotal.WithLabelValues(region).Inc()
}

// ObserveLoad records one loader invocation latency.
func (m *Metrics) ObserveLoad(region string, seconds float64) {
	m.LoadLatencySeconds.WithLabelValues(region).Observe(seconds)
}

// SetRegionSize sets the current local-tier entry count for a region.
func (m *Metrics) SetRegionSize(region string, n int) {
	m.RegionSize.WithLabelValues(region).Set(float64(n))
}

// SetCircuitBreakerState sets the breaker state gauge.
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordWarmupItems records entries preloaded by a warmup job.
func (m *Metrics) RecordWarmupItems(region string, n int) {
	m.WarmupItemsLoaded.WithLabelValues(region).Add(float64(n))
}

// RecordAlert records an emitted alert.
func (m *Metrics) RecordAlert(alertType, region string) {
	m.AlertsTotal.WithLabelValues(alertType, region).Inc()
}

// RecordInvalidation records an executed relationship invalidation.
func (m *Metrics) RecordInvalidation(entityType string) {
	m.InvalidationsTotal.WithLabelValues(entityType).Inc()
}
