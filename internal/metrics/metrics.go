// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration observes request latency per route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status code",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// AdmissionsTotal counts admission attempts by outcome.
	AdmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_admissions_total",
			Help: "Admission attempts by outcome (confirmed, pending, capacity_exceeded, already_registered, closed, error)",
		},
		[]string{"outcome"},
	)

	// SettlementsTotal counts settlement outcomes.
	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_settlements_total",
			Help: "Settlement attempts by outcome (paid, failed, canceled, duplicate, conflict, unknown_ref)",
		},
		[]string{"outcome"},
	)

	// GatewaySessionsTotal counts gateway session creations.
	GatewaySessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_sessions_total",
			Help: "Payment gateway session creations by result (ok, error, skipped_zero_amount)",
		},
		[]string{"result"},
	)
)
