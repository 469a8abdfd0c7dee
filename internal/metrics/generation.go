package metrics

import "github.com/prometheus/client_golang/prometheus"

// Generation Prometheus metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourguide",
			Name:      "generation_requests_total",
			Help:      "Total number of generation requests",
		},
		[]string{"model", "mode", "status"}, // mode: "complete" / "stream"
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tourguide",
			Name:      "generation_request_duration_seconds",
			Help:      "Time to complete a generation call or to open a stream",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model", "mode"},
	)

	GenerationFragmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourguide",
			Name:      "generation_fragments_total",
			Help:      "Stream fragments received from the generation service",
		},
		[]string{"model"},
	)

	AnswerStreamsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourguide",
			Name:      "answer_streams_total",
			Help:      "Answer streams by outcome",
		},
		[]string{"intent", "outcome"}, // outcome: "done" / "cached" / "error" / "cancelled"
	)
)
