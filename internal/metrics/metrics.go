// Package metrics exposes prometheus counters for authentication events,
// guard decisions and HTTP traffic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dtroode/appauth-server/internal/model"
)

// Guard decision labels.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// Metrics holds the collectors of the service. Collectors are registered on
// the registerer passed to New.
type Metrics struct {
	gatherer prometheus.Gatherer

	authEvents          *prometheus.CounterVec
	guardDecisions      *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		authEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_auth_events_total",
				Help: "Authentication events by identity domain, event and outcome.",
			},
			[]string{"domain", "event", "outcome"},
		),
		guardDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_guard_decisions_total",
				Help: "Permission guard decisions by transport.",
			},
			[]string{"transport", "decision"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}

	reg.MustRegister(m.authEvents, m.guardDecisions, m.httpRequestsTotal, m.httpRequestDuration)
	return m
}

// RecordAuthEvent counts one authentication event.
func (m *Metrics) RecordAuthEvent(domain model.Domain, event, outcome string) {
	m.authEvents.WithLabelValues(string(domain), event, outcome).Inc()
}

// RecordGuardDecision counts one guard decision of transport.
func (m *Metrics) RecordGuardDecision(transport string, allowed bool) {
	decision := DecisionDeny
	if allowed {
		decision = DecisionAllow
	}
	m.guardDecisions.WithLabelValues(transport, decision).Inc()
}

// ObserveHTTPRequest records a finished HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path, status string, seconds float64) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path, status).Observe(seconds)
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
