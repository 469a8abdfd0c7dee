package metrics

import "github.com/prometheus/client_golang/prometheus"

// Cache and session Prometheus metrics.
var (
	CacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourguide",
			Name:      "cache_operations_total",
			Help:      "TTL cache lookups and evictions",
		},
		[]string{"cache", "result"}, // "hit" / "miss" / "expired" / "evicted"
	)

	CacheEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tourguide",
			Name:      "cache_entries",
			Help:      "Current number of entries per TTL cache",
		},
		[]string{"cache"},
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tourguide",
			Name:      "sessions_active",
			Help:      "Conversation sessions currently held in memory",
		},
	)

	SessionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tourguide",
			Name:      "sessions_expired_total",
			Help:      "Sessions dropped by the idle sweep",
		},
	)
)
