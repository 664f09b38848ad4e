// Package metrics wires the LTA DB and worker processes into a Prometheus
// registry, the way the teacher's stats package exposes per-target counters
// and gauges for the reg/kalive tickers to read — generalized here to the
// per-route and per-component counters spec §4.7/§9 calls for.
/*
 * Copyright (c) 2018-2026, The IceCube Collaboration, WIPAC. All rights reserved.
 */
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the set of counters and gauges the REST service and every
// worker process report through.
type Registry struct {
	reg *prometheus.Registry

	requestsReceived *prometheus.CounterVec
	responsesSent    *prometheus.CounterVec

	workOutcomes *prometheus.CounterVec
	loadLevel    *prometheus.GaugeVec
	quarantined  *prometheus.CounterVec
}

// New builds a Registry with every metric family pre-registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		requestsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lta",
			Subsystem: "rest",
			Name:      "requests_received_total",
			Help:      "HTTP requests received by the LTA DB, by method and path.",
		}, []string{"method", "path"}),
		responsesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lta",
			Subsystem: "rest",
			Name:      "responses_sent_total",
			Help:      "HTTP responses sent by the LTA DB, by method, path, and status code.",
		}, []string{"method", "path", "status"}),
		workOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lta",
			Subsystem: "worker",
			Name:      "work_outcomes_total",
			Help:      "Claimed work items processed by a component, by component, level, type, and outcome.",
		}, []string{"component", "level", "type", "outcome"}),
		loadLevel: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "lta",
			Subsystem: "worker",
			Name:      "load_level",
			Help:      "Most recent claimed-work load level reported by a component (0 = idle).",
		}, []string{"component"}),
		quarantined: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lta",
			Subsystem: "worker",
			Name:      "quarantined_total",
			Help:      "Bundles and transfer requests moved to quarantine, by component and kind (reason label: bundle or request).",
		}, []string{"component", "reason"}),
	}
}

// Handler exposes the registry on /metrics for Prometheus scraping.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// RequestReceived records an inbound HTTP request (spec §4.7).
func (r *Registry) RequestReceived(method, path string) {
	r.requestsReceived.WithLabelValues(method, path).Inc()
}

// ResponseSent records an outbound HTTP response.
func (r *Registry) ResponseSent(method, path string, status int) {
	r.responsesSent.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// WorkOutcome records one claimed-work-item result for a stage handler.
func (r *Registry) WorkOutcome(component, level, typ, outcome string) {
	r.workOutcomes.WithLabelValues(component, level, typ, outcome).Inc()
}

// SetLoadLevel records the number of consecutive claims made in the most
// recent work cycle (spec §9's "load level" gauge).
func (r *Registry) SetLoadLevel(component string, n int) {
	r.loadLevel.WithLabelValues(component).Set(float64(n))
}

// Quarantined records a bundle or transfer request moving to quarantine
// (spec §4.6); reason carries the kind, "bundle" or "request".
func (r *Registry) Quarantined(component, reason string) {
	r.quarantined.WithLabelValues(component, reason).Inc()
}
