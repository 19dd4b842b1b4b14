// Package metric exposes connection establishment metrics in Prometheus
// format.
//
// Observer plugs into socket.WithObserver; Registry.Handler serves the
// result at /metrics.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kvwire"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	EstablishTotal    *prometheus.CounterVec
	EstablishDuration *prometheus.HistogramVec
	ConnectionsOpen   prometheus.Gauge
}

// NewRegistry creates a registry with the kvwire metrics plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		EstablishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "establish_total",
			Help:      "Connection establishment attempts by outcome and failure reason.",
		}, []string{"outcome", "reason", "tls"}),
		EstablishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "establish_duration_seconds",
			Help:      "Time spent resolving, connecting and handshaking.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"tls"}),
		ConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_open",
			Help:      "Connections currently established and not yet closed.",
		}),
	}

	reg.MustRegister(
		r.EstablishTotal,
		r.EstablishDuration,
		r.ConnectionsOpen,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Gatherer returns the underlying registry for scraping or tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
