package opportunity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesTotal tracks opportunities produced by the last engine run, by comparison basis.
	OpportunitiesTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "polymarket_edge_opportunities",
		Help: "Number of opportunities produced by the last engine run",
	}, []string{"basis"})

	// SportFailuresTotal tracks sportsbook fetches that degraded to no reference data.
	SportFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_edge_sport_failures_total",
		Help: "Total number of per-sport sportsbook fetch failures",
	}, []string{"sport"})

	// EventsDroppedTotal tracks events dropped because no sport could be resolved.
	EventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_edge_events_unresolved_sport_total",
		Help: "Total number of events dropped for lacking a sport",
	})

	// RunDurationSeconds tracks engine run latency.
	RunDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_edge_engine_run_duration_seconds",
		Help:    "Duration of opportunity engine runs",
		Buckets: prometheus.DefBuckets,
	})

	// OpportunityEVPercent tracks the EV% of sportsbook-compared opportunities.
	OpportunityEVPercent = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_edge_opportunity_ev_percent",
		Help:    "EV percent of opportunities compared against sportsbook fair probabilities",
		Buckets: []float64{-50, -20, -10, -5, 0, 5, 10, 20, 50, 100},
	})
)
