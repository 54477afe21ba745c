package oddsapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsFetchedTotal tracks sportsbook events parsed per sport.
	EventsFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_edge_odds_api_events_total",
		Help: "Total number of sportsbook events parsed",
	}, []string{"sport"})

	// FetchErrorsTotal tracks failed odds fetches per sport.
	FetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_edge_odds_api_fetch_errors_total",
		Help: "Total number of failed sportsbook odds fetches",
	}, []string{"sport"})

	// FetchDurationSeconds tracks odds fetch latency per sport.
	FetchDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polymarket_edge_odds_api_fetch_duration_seconds",
		Help:    "Duration of sportsbook odds fetches",
		Buckets: prometheus.DefBuckets,
	}, []string{"sport"})
)
