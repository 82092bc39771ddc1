// Package metrics exposes Prometheus counters for the parsing pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "acsense"

// Metrics holds the collectors and the registry they are registered on
type Metrics struct {
	registry *prometheus.Registry

	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheEvictions prometheus.Counter
	methods        *prometheus.CounterVec
	providerErrors *prometheus.CounterVec
	providerTime   *prometheus.HistogramVec
	patterns       prometheus.Gauge
}

// New creates a metrics set on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "embedding_cache", Name: "hits_total",
			Help: "Embedding cache lookups served from disk.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "embedding_cache", Name: "misses_total",
			Help: "Embedding cache lookups that were absent, expired or unreadable.",
		}),
		cacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "embedding_cache", Name: "evictions_total",
			Help: "Entries evicted because the cache was at capacity.",
		}),
		methods: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "parse_method_total",
			Help: "Parses served, by winning strategy.",
		}, []string{"method"}),
		providerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "embedding", Name: "errors_total",
			Help: "Embedding provider failures after retries, by provider and operation.",
		}, []string{"provider", "operation"}),
		providerTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "embedding", Name: "request_duration_seconds",
			Help:    "Embedding provider request latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider", "operation"}),
		patterns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "pattern_index", Name: "patterns",
			Help: "Patterns loaded with embeddings.",
		}),
	}

	m.registry.MustRegister(
		m.cacheHits, m.cacheMisses, m.cacheEvictions,
		m.methods, m.providerErrors, m.providerTime, m.patterns,
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) CacheEviction() {
	if m != nil {
		m.cacheEvictions.Inc()
	}
}

// MethodSelected counts a parse served by method
func (m *Metrics) MethodSelected(method string) {
	if m != nil {
		m.methods.WithLabelValues(method).Inc()
	}
}

// ProviderRequest records one provider call and whether it failed
func (m *Metrics) ProviderRequest(provider, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.providerTime.WithLabelValues(provider, operation).Observe(d.Seconds())
	if err != nil {
		m.providerErrors.WithLabelValues(provider, operation).Inc()
	}
}

// PatternsLoaded sets the pattern index size
func (m *Metrics) PatternsLoaded(n int) {
	if m != nil {
		m.patterns.Set(float64(n))
	}
}
