// Package metrics provides the Prometheus metrics for the classification pipeline and activity store.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics related to activity classification.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Classifications   *prometheus.CounterVec
	InferenceFailures *prometheus.CounterVec
	InferenceDuration *prometheus.HistogramVec
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	PersistFailures   prometheus.Counter
	registry          *prometheus.Registry
}

// New creates the metrics and registers them on a private registry.
func New() (*Metrics, error) {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates the metrics and registers them on registry.
// It returns an error if metric registration fails.
func NewWithRegistry(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register trackmate metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.Classifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trackmate_classifications_total",
		Help: "Total number of successful activity classifications.",
	}, []string{"category", "method"})

	m.InferenceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trackmate_inference_failures_total",
		Help: "Total number of failed inference calls by failure kind.",
	}, []string{"kind"})

	m.InferenceDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trackmate_inference_duration_seconds",
		Help:    "Duration of inference calls in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"method"})

	m.CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trackmate_cache_hits_total",
		Help: "Total number of result cache hits.",
	})

	m.CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trackmate_cache_misses_total",
		Help: "Total number of result cache misses.",
	})

	m.PersistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trackmate_persist_failures_total",
		Help: "Total number of classifications that could not be stored.",
	})
}

// RecordClassification counts a successful classification. category is the
// numeric code so renaming a category keeps its series.
func (m *Metrics) RecordClassification(category, method string) {
	if m == nil {
		return
	}
	m.Classifications.WithLabelValues(category, method).Inc()
}

// RecordInferenceFailure counts a failed inference call.
func (m *Metrics) RecordInferenceFailure(kind string) {
	if m == nil {
		return
	}
	m.InferenceFailures.WithLabelValues(kind).Inc()
}

// ObserveInferenceDuration records the duration of an inference call in seconds.
func (m *Metrics) ObserveInferenceDuration(method string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.InferenceDuration.WithLabelValues(method).Observe(durationSeconds)
}

// IncrementCacheHits increases the cache hit counter by one.
func (m *Metrics) IncrementCacheHits() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// IncrementCacheMisses increases the cache miss counter by one.
func (m *Metrics) IncrementCacheMisses() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

// IncrementPersistFailures increases the persistence failure counter by one.
func (m *Metrics) IncrementPersistFailures() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.Classifications.Collect(ch)
	m.InferenceFailures.Collect(ch)
	m.InferenceDuration.Collect(ch)
	ch <- m.CacheHits
	ch <- m.CacheMisses
	ch <- m.PersistFailures
}

// Describe implements the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.Classifications.Describe(ch)
	m.InferenceFailures.Describe(ch)
	m.InferenceDuration.Describe(ch)
	ch <- m.CacheHits.Desc()
	ch <- m.CacheMisses.Desc()
	ch <- m.PersistFailures.Desc()
}
