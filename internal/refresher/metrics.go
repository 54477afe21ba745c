package refresher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RefreshesTotal tracks refresh runs by outcome (ok or error).
	RefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_edge_refreshes_total",
		Help: "Total number of opportunity refresh runs",
	}, []string{"status"})

	// RefreshDurationSeconds tracks refresh latency, storage included.
	RefreshDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_edge_refresh_duration_seconds",
		Help:    "Duration of opportunity refresh runs",
		Buckets: prometheus.DefBuckets,
	})

	// LastRefreshTimestamp is the unix time of the last successful refresh.
	LastRefreshTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polymarket_edge_last_refresh_timestamp_seconds",
		Help: "Unix time of the last successful opportunity refresh",
	})

	// StorageErrorsTotal tracks snapshots that failed to persist.
	StorageErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_edge_snapshot_store_errors_total",
		Help: "Total number of snapshot storage failures",
	})
)
