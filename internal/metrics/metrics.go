// Package metrics exposes prometheus instrumentation for the recommendation pipeline.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "patternfinder"

// Metrics holds the collectors registered for one process
type Metrics struct {
	registry *prometheus.Registry

	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	providerAttempts *prometheus.CounterVec
	providerFailures *prometheus.CounterVec
	degraded         prometheus.Counter
	requestDuration  *prometheus.HistogramVec
	embeddedPatterns prometheus.Counter
}

// New creates and registers all collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache lookups that returned a live entry.",
		}, []string{"cache"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache lookups that found nothing or an expired entry.",
		}, []string{"cache"}),
		providerAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_attempts_total",
			Help:      "Embedding provider batch attempts.",
		}, []string{"provider"}),
		providerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_failures_total",
			Help:      "Embedding provider batch failures by kind.",
		}, []string{"provider", "kind"}),
		degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_requests_total",
			Help:      "Recommendation requests served keyword-only after a provider failure.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of recommendation and search requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
		embeddedPatterns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedded_patterns_total",
			Help:      "Pattern embeddings persisted by bulk regeneration.",
		}),
	}

	m.registry.MustRegister(
		m.cacheHits,
		m.cacheMisses,
		m.providerAttempts,
		m.providerFailures,
		m.degraded,
		m.requestDuration,
		m.embeddedPatterns,
	)
	return m
}

// Registry returns the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CacheHit(cache string) {
	if m != nil {
		m.cacheHits.WithLabelValues(cache).Inc()
	}
}

func (m *Metrics) CacheMiss(cache string) {
	if m != nil {
		m.cacheMisses.WithLabelValues(cache).Inc()
	}
}

func (m *Metrics) ProviderAttempt(provider string) {
	if m != nil {
		m.providerAttempts.WithLabelValues(provider).Inc()
	}
}

// ProviderFailure records a failed attempt; kind is "transient" or "permanent"
func (m *Metrics) ProviderFailure(provider, kind string) {
	if m != nil {
		m.providerFailures.WithLabelValues(provider, kind).Inc()
	}
}

func (m *Metrics) Degraded() {
	if m != nil {
		m.degraded.Inc()
	}
}

// ObserveRequest records request latency with an ok/error outcome
func (m *Metrics) ObserveRequest(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.requestDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

func (m *Metrics) EmbeddedPatterns(n int) {
	if m != nil {
		m.embeddedPatterns.Add(float64(n))
	}
}
