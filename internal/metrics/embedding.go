package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedding provider metrics. Requests, tokens and errors are recorded by the
// OpenAI transport; cache results by embcache; batch sizes by the instrumented embedder.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourguide",
			Subsystem: "embedding",
			Name:      "requests_total",
			Help:      "Embedding provider calls by outcome",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tourguide",
			Subsystem: "embedding",
			Name:      "request_duration_seconds",
			Help:      "Latency of successful embedding provider calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourguide",
			Subsystem: "embedding",
			Name:      "tokens_total",
			Help:      "Tokens billed by the embedding provider",
		},
		[]string{"provider", "model", "type"}, // type: "prompt" / "total"
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourguide",
			Subsystem: "embedding",
			Name:      "errors_total",
			Help:      "Embedding provider failures by kind",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourguide",
			Subsystem: "embedding",
			Name:      "cache_total",
			Help:      "Embedding cache lookups per text",
		},
		[]string{"path", "result"}, // path: "query" / "batch"; result: "hit" / "miss"
	)

	EmbeddingBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tourguide",
			Subsystem: "embedding",
			Name:      "batch_size",
			Help:      "Texts per batch embedding request, before provider-side splitting",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 9),
		},
	)
)
