// Package metrics provides Prometheus metrics for the aggregation engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Cache metrics
	CacheLookups *prometheus.CounterVec
	CacheEntries *prometheus.GaugeVec

	// Provider metrics
	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec

	// Fetch metrics
	FetchLatency prometheus.Histogram
	FetchItems   prometheus.Histogram
}

// New registers the collectors under namespace with reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Per-provider cache lookups by result (hit or miss)",
		}, []string{"source", "result"}),
		CacheEntries: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Number of keys held in each provider cache",
		}, []string{"source"}),
		ProviderRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Outbound provider calls by outcome (success or failure)",
		}, []string{"source", "outcome"}),
		ProviderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_latency_seconds",
			Help:      "Outbound provider call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		FetchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_latency_seconds",
			Help:      "End-to-end aggregated fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		FetchItems: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_items",
			Help:      "Number of items returned per aggregated fetch",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

// RecordCacheLookup counts a cache hit or miss for source.
func (m *Metrics) RecordCacheLookup(source string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(source, result).Inc()
}

func (m *Metrics) SetCacheEntries(source string, n int) {
	if m == nil {
		return
	}
	m.CacheEntries.WithLabelValues(source).Set(float64(n))
}

// RecordProviderCall counts an outbound call and observes its latency.
func (m *Metrics) RecordProviderCall(source string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.ProviderRequests.WithLabelValues(source, outcome).Inc()
	m.ProviderLatency.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordFetch(elapsed time.Duration, items int) {
	if m == nil {
		return
	}
	m.FetchLatency.Observe(elapsed.Seconds())
	m.FetchItems.Observe(float64(items))
}
