// Package metrics declares the Prometheus collectors of the service. Nothing is
// registered at import time; main calls the Register* functions it needs.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpOnce  sync.Once
	embOnce   sync.Once
	genOnce   sync.Once
	stateOnce sync.Once
)

func mustRegisterOnce(once *sync.Once, cs ...prometheus.Collector) {
	once.Do(func() { prometheus.MustRegister(cs...) })
}

// RegisterHTTPMetrics registers the collectors fed by Middleware.
func RegisterHTTPMetrics() {
	mustRegisterOnce(&httpOnce, httpRequestDuration, httpRequestsTotal, httpTimeToFirstByte)
}

// RegisterEmbeddingMetrics registers the embedding provider and cache collectors.
func RegisterEmbeddingMetrics() {
	mustRegisterOnce(&embOnce,
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTokensTotal,
		EmbeddingErrorsTotal,
		EmbeddingCacheTotal,
		EmbeddingBatchSize,
	)
}

// RegisterGenerationMetrics registers the chat completion and answer stream collectors.
func RegisterGenerationMetrics() {
	mustRegisterOnce(&genOnce,
		GenerationRequestsTotal,
		GenerationRequestDuration,
		GenerationFragmentsTotal,
		AnswerStreamsTotal,
	)
}

// RegisterStateMetrics registers the cache and session gauges.
func RegisterStateMetrics() {
	mustRegisterOnce(&stateOnce,
		CacheOperationsTotal,
		CacheEntries,
		SessionsActive,
		SessionsExpiredTotal,
	)
}
