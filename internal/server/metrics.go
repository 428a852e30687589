package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Requests counts API requests by endpoint and response status code.
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mortgage_compare_requests_total",
			Help: "Number of API requests handled",
		},
		[]string{"endpoint", "status"},
	)

	// OfferNotes counts offers reported without a full result, such as an
	// unsolvable effective rate or a missing break-even fee.
	OfferNotes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mortgage_compare_offer_notes_total",
			Help: "Number of offers returned with explanatory notes",
		},
	)

	// SolverIterations records the bisection steps used per effective rate.
	SolverIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mortgage_compare_solver_iterations",
			Help:    "Bisection iterations needed to solve an effective rate",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	// ComparisonDuration records how long a comparison took to compute.
	ComparisonDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mortgage_compare_comparison_duration_seconds",
			Help:    "Time spent computing a comparison",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)
