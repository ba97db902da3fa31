// Package metrics exposes Prometheus instrumentation for HTTP traffic and
// collection storage.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple servers in one
// process do not collide on the default one.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	writesTotal     *prometheus.CounterVec
	readsTotal      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		writesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collection_writes_total",
				Help: "Collection documents written, by result",
			},
			[]string{"collection", "result"},
		),
		readsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collection_reads_total",
				Help: "Collection documents read, by result",
			},
			[]string{"collection", "result"},
		),
	}
	m.registry.MustRegister(m.requestsTotal, m.requestDuration, m.writesTotal, m.readsTotal)
	return m
}

// ObserveRequest records a served request. path should be the matched
// route pattern, not the raw URL.
func (m *Metrics) ObserveRequest(method, path string, status int, d time.Duration) {
	m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) ObserveWrite(collection string, err error) {
	m.writesTotal.WithLabelValues(collection, result(err)).Inc()
}

func (m *Metrics) ObserveRead(collection string, err error) {
	m.readsTotal.WithLabelValues(collection, result(err)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
