// Package metrics holds the Prometheus instrumentation for catalog loading
// and the HTTP API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all hubmap Prometheus metrics. Each instance owns its
// registry so tests and multiple clients never collide.
type Metrics struct {
	registry *prometheus.Registry

	// Catalog loading
	CategoryLoads     *prometheus.CounterVec
	CategoryLoadTime  *prometheus.HistogramVec
	CategoryItems     *prometheus.GaugeVec
	DetailFailures    prometheus.Counter
	MalformedRecords  *prometheus.CounterVec
	SharedLoadWaiters prometheus.Counter

	// HTTP API
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates a metrics set registered on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		CategoryLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hubmap_category_loads_total",
			Help: "Category load attempts by category and result",
		}, []string{"category", "result"}), // result: "success" or "error"

		CategoryLoadTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hubmap_category_load_duration_seconds",
			Help:    "Time spent loading a category from its registry",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"category"}),

		CategoryItems: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hubmap_category_items",
			Help: "Number of items published for a loaded category",
		}, []string{"category"}),

		DetailFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "hubmap_model_detail_failures_total",
			Help: "Model detail requests that failed and were dropped",
		}),

		MalformedRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hubmap_malformed_records_total",
			Help: "Raw records skipped because they could not be normalized",
		}, []string{"category"}),

		SharedLoadWaiters: factory.NewCounter(prometheus.CounterOpts{
			Name: "hubmap_shared_loads_total",
			Help: "Callers that joined an in-flight category load instead of starting one",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hubmap_http_requests_total",
			Help: "HTTP API requests by route and status code",
		}, []string{"route", "status"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hubmap_http_request_duration_seconds",
			Help:    "HTTP API request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
