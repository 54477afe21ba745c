package polymarket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketsFetchedTotal tracks unique markets returned by /markets pagination.
	MarketsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_edge_polymarket_markets_fetched_total",
		Help: "Total number of unique markets fetched from the Gamma API",
	})

	// MarketsKeptTotal tracks markets that survived normalization.
	MarketsKeptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_edge_polymarket_markets_kept_total",
		Help: "Total number of markets normalized into binary markets",
	})

	// MarketsSkippedTotal tracks markets dropped during normalization, by reason.
	MarketsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_edge_polymarket_markets_skipped_total",
		Help: "Total number of markets skipped during normalization",
	}, []string{"reason"})

	// NormalizeDurationSeconds tracks end-to-end FetchEvents latency.
	NormalizeDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_edge_polymarket_fetch_events_duration_seconds",
		Help:    "Duration of fetching and normalizing Polymarket events",
		Buckets: prometheus.DefBuckets,
	})
)
