// Package metrics exposes the Prometheus instruments shared by both binaries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts gateway requests by method, route and status code
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// HTTPRequestDuration tracks gateway request latency
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "generation_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "endpoint"})

	// JobsAccepted counts jobs that passed intake validation and were dispatched
	JobsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_jobs_accepted_total",
		Help: "Jobs accepted at intake",
	}, []string{"content_type", "provider"})

	// JobsProcessed counts jobs the processor finished, by outcome
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_jobs_processed_total",
		Help: "Jobs processed to a terminal state",
	}, []string{"content_type", "provider", "outcome"})

	// JobDuration tracks end-to-end provider call duration per content type
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "generation_job_duration_seconds",
		Help:    "Provider generation call duration",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"content_type", "provider"})

	// CreditsReserved tracks credits moved into reservations at intake
	CreditsReserved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "generation_credits_reserved_total",
		Help: "Credits reserved at intake",
	})

	// CreditsSettled tracks credits actually consumed by completed jobs
	CreditsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "generation_credits_settled_total",
		Help: "Credits settled against completed jobs",
	})

	// ReservationsReleased counts reservations returned to wallets by outcome
	ReservationsReleased = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_reservations_released_total",
		Help: "Credit reservations released",
	}, []string{"cause"})

	// ReconcilerSweeps counts reconciliation sweep runs and their findings
	ReconcilerSweeps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_reconciler_jobs_total",
		Help: "Jobs handled by the settlement reconciler",
	}, []string{"action"})
)
