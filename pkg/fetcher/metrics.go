package fetcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// RequestsTotal counts upstream attempts by venue and status class ("2xx", "5xx", "error").
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_edge_fetch_requests_total",
		Help: "Total number of upstream GET attempts",
	}, []string{"venue", "status"})

	// RetriesTotal counts retried attempts.
	RetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_edge_fetch_retries_total",
		Help: "Total number of upstream GET retries",
	}, []string{"venue"})

	// RequestDurationSeconds tracks per-attempt latency.
	RequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polymarket_edge_fetch_duration_seconds",
		Help:    "Duration of upstream GET attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"venue"})
)
