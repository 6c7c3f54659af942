// Package metrics exposes Prometheus instrumentation for the proxy
// pipeline and the outbound dispatcher.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the gateway metric families.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	rejectionsTotal  *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// NewCollector creates and registers the gateway metrics on a private
// registry so tests can instantiate collectors independently.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	c := &Collector{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Completed proxy requests by method and response status.",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "End-to-end proxy request duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		rejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_rejections_total",
			Help: "Requests rejected before dispatch, by error kind.",
		}, []string{"kind"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_upstream_duration_seconds",
			Help:    "Outbound upstream call duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"upstream"}),
	}

	registry.MustRegister(c.requestsTotal, c.requestDuration, c.rejectionsTotal, c.upstreamDuration)
	return c
}

// RecordRequest records a completed proxy request.
func (c *Collector) RecordRequest(method string, status int, duration time.Duration) {
	c.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordRejection records a request that failed before reaching the
// upstream.
func (c *Collector) RecordRejection(kind string) {
	c.rejectionsTotal.WithLabelValues(kind).Inc()
}

// RecordUpstream records an outbound call duration.
func (c *Collector) RecordUpstream(upstream string, duration time.Duration) {
	c.upstreamDuration.WithLabelValues(upstream).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
