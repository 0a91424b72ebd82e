// Package telemetry exposes prometheus metrics for the realtime layer.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors the hub and dispatcher update.
type Metrics struct {
	registry *prometheus.Registry

	ConnectedClients prometheus.Gauge
	EventsIn         *prometheus.CounterVec
	EventsOut        *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
}

// New builds the metric set on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		ConnectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "catch_connected_clients",
			Help: "Number of websocket connections currently attached to the hub.",
		}),
		EventsIn: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catch_events_in_total",
			Help: "Inbound socket events by event name.",
		}, []string{"event"}),
		EventsOut: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catch_events_out_total",
			Help: "Outbound socket events by event name.",
		}, []string{"event"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catch_http_requests_total",
			Help: "REST requests by method and status.",
		}, []string{"method", "status"}),
	}
}

// Handler serves the /metrics endpoint for this metric set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
