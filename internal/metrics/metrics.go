// Package metrics sets up the Prometheus registry and the HTTP side of metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry creates a registry with the standard Go and process collectors.
// A dedicated registry keeps tests and multiple servers in one process apart.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler exposes the metrics gathered by reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry: reg,
	})
}

// HTTPMiddleware counts requests and records their duration by method and status code.
type HTTPMiddleware struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMiddleware registers the HTTP metrics with reg.
func NewHTTPMiddleware(reg prometheus.Registerer) (*HTTPMiddleware, error) {
	m := &HTTPMiddleware{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsletter",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Number of HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "newsletter",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests by method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration} {
		err := reg.Register(c)
		if err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Wrap instruments next.
func (m *HTTPMiddleware) Wrap(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(m.requests,
		promhttp.InstrumentHandlerDuration(m.duration, next),
	)
}
