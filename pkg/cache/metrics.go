package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks entries returned from Redis by freshness ("fresh", "stale").
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rickmorty_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"freshness"},
	)

	// CacheMisses tracks lookups that found no entry.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rickmorty_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// Revalidations tracks conditional request outcomes ("not_modified", "modified").
	Revalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rickmorty_cache_revalidations_total",
			Help: "Total number of conditional requests by outcome",
		},
		[]string{"result"},
	)

	// CacheErrors tracks Redis operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rickmorty_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
