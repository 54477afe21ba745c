package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_edge_cache_hits_total",
		Help: "Total number of cache hits",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_edge_cache_misses_total",
		Help: "Total number of cache misses, including expired entries",
	})

	CacheSetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_edge_cache_sets_total",
		Help: "Total number of cache sets",
	})

	CacheExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_edge_cache_expired_total",
		Help: "Total number of entries evicted on read because they outlived the TTL",
	})
)
