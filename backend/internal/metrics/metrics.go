// Package metrics holds the Prometheus collectors of the social graph service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EdgeWritesTotal counts committed edge mutations, inverse edges included.
	EdgeWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_edge_writes_total",
			Help: "Total number of committed edge writes",
		},
		[]string{"type", "op"}, // op: put|delete
	)

	// EdgeWriteFailuresTotal counts storage faults raised while writing edges.
	EdgeWriteFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_edge_write_failures_total",
			Help: "Total number of edge writes rejected by the store",
		},
		[]string{"type"},
	)

	// RequestDecisionsTotal counts friend and membership request decisions.
	RequestDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_request_decisions_total",
			Help: "Total number of request decisions by outcome",
		},
		[]string{"kind", "outcome"}, // kind: friend|membership, outcome: accepted|denied|rejected
	)

	// EventsEmittedTotal counts events handed to the sink after commit.
	EventsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_events_emitted_total",
			Help: "Total number of domain events emitted",
		},
		[]string{"type"},
	)

	// EventDeliveryFailuresTotal counts sink errors.
	EventDeliveryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_event_delivery_failures_total",
			Help: "Total number of events a sink failed to deliver",
		},
		[]string{"sink"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "social_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)
)
