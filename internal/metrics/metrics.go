// Package metrics exposes Prometheus collectors for the extraction
// pipeline and the tax-authority consultation client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics bundles every collector the service registers. All methods are
// nil-safe so components can run without instrumentation in tests.
type Metrics struct {
	registry *prometheus.Registry

	extractionsTotal  *prometheus.CounterVec
	productsExtracted prometheus.Counter
	sefazFetchSeconds prometheus.Histogram
	consultCacheHits  prometheus.Counter
	consultCacheMiss  prometheus.Counter
	httpRequestsTotal *prometheus.CounterVec
}

// New builds and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.extractionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "despensa_extractions_total",
		Help: "Receipt extraction attempts by mode and outcome.",
	}, []string{"mode", "outcome"})

	m.productsExtracted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "despensa_products_extracted_total",
		Help: "Total number of products emitted by the extraction pipeline.",
	})

	m.sefazFetchSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "despensa_sefaz_fetch_seconds",
		Help:    "Latency of tax-authority page fetches.",
		Buckets: prometheus.DefBuckets,
	})

	m.consultCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "despensa_consult_cache_hits_total",
		Help: "Receipt consultations served from the local cache.",
	})

	m.consultCacheMiss = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "despensa_consult_cache_misses_total",
		Help: "Receipt consultations that required a remote fetch.",
	})

	m.httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "despensa_http_requests_total",
		Help: "API requests by method, path and status.",
	}, []string{"method", "path", "status"})

	reg.MustRegister(
		m.extractionsTotal,
		m.productsExtracted,
		m.sefazFetchSeconds,
		m.consultCacheHits,
		m.consultCacheMiss,
		m.httpRequestsTotal,
	)

	return m
}

// Registry returns the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordExtraction counts one extraction attempt and its product yield.
func (m *Metrics) RecordExtraction(mode, outcome string, products int) {
	if m == nil {
		return
	}
	m.extractionsTotal.WithLabelValues(mode, outcome).Inc()
	m.productsExtracted.Add(float64(products))
}

// ObserveSefazFetch records the latency of one remote page fetch.
func (m *Metrics) ObserveSefazFetch(seconds float64) {
	if m == nil {
		return
	}
	m.sefazFetchSeconds.Observe(seconds)
}

// RecordCacheHit counts a consultation answered from cache.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.consultCacheHits.Inc()
}

// RecordCacheMiss counts a consultation that went to the remote portal.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.consultCacheMiss.Inc()
}

// RecordHTTPRequest counts one handled API request.
func (m *Metrics) RecordHTTPRequest(method, path, status string) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
}
