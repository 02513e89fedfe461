// Package metrics provides the Prometheus metrics of the feed engine.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the engine counters and histograms. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	ResolveDuration   *prometheus.HistogramVec
	CacheRequests     *prometheus.CounterVec
	CacheInvalidation *prometheus.CounterVec
	InsightsComputed  prometheus.Counter
	DependencyErrors  *prometheus.CounterVec
	registry          *prometheus.Registry
}

// New creates the engine metrics and registers them on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()

	collectors := []prometheus.Collector{
		m.ResolveDuration,
		m.CacheRequests,
		m.CacheInvalidation,
		m.InsightsComputed,
		m.DependencyErrors,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register feed engine metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.ResolveDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedengine_resolve_duration_seconds",
		Help:    "Time spent resolving batch targets, by target mode",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"mode"})

	m.CacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedengine_cache_requests_total",
		Help: "Cache lookups by cached kind and result",
	}, []string{"kind", "result"})

	m.CacheInvalidation = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedengine_cache_invalidations_total",
		Help: "Explicit cache invalidations by scope",
	}, []string{"scope"})

	m.InsightsComputed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedengine_insights_computed_total",
		Help: "Number of batch insights computed (cache misses)",
	})

	m.DependencyErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedengine_dependency_errors_total",
		Help: "Failures reaching external collaborators",
	}, []string{"dependency"})
}

// ObserveResolve records the duration of a target resolution.
func (m *Metrics) ObserveResolve(mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.ResolveDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// CacheResult counts a cache hit or miss.
func (m *Metrics) CacheResult(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(kind, result).Inc()
}

// Invalidated counts an explicit invalidation.
func (m *Metrics) Invalidated(scope string) {
	if m == nil {
		return
	}
	m.CacheInvalidation.WithLabelValues(scope).Inc()
}

// InsightComputed counts a freshly computed insight.
func (m *Metrics) InsightComputed() {
	if m == nil {
		return
	}
	m.InsightsComputed.Inc()
}

// DependencyFailed counts a collaborator failure.
func (m *Metrics) DependencyFailed(dependency string) {
	if m == nil {
		return
	}
	m.DependencyErrors.WithLabelValues(dependency).Inc()
}
