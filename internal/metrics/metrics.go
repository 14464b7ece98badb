// Package metrics provides Prometheus metrics for the drinks API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "drinks"

// Metrics holds every collector the service exports. It satisfies
// auth.DecisionRecorder and jwks.FetchRecorder.
type Metrics struct {
	reg prometheus.Gatherer

	// AuthDecisions counts authorization outcomes by required permission
	// and outcome ("allowed" or the failure kind).
	AuthDecisions *prometheus.CounterVec

	// JWKSFetches counts key set fetches by source and result.
	JWKSFetches *prometheus.CounterVec

	// HTTPRequests counts served requests by method, route and status.
	HTTPRequests *prometheus.CounterVec

	// HTTPDuration tracks request latency by method and route.
	HTTPDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass a fresh prometheus.Registry in
// tests to keep them isolated.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		AuthDecisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_decisions_total",
				Help:      "Total number of authorization decisions by permission and outcome",
			},
			[]string{"permission", "outcome"},
		),
		JWKSFetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jwks_fetches_total",
				Help:      "Total number of key set fetches by source and result",
			},
			[]string{"source", "result"},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveDecision records one authorization decision.
func (m *Metrics) ObserveDecision(permission, outcome string) {
	if permission == "" {
		permission = "none"
	}
	m.AuthDecisions.WithLabelValues(permission, outcome).Inc()
}

// ObserveFetch records one key set fetch.
func (m *Metrics) ObserveFetch(source, result string) {
	m.JWKSFetches.WithLabelValues(source, result).Inc()
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
