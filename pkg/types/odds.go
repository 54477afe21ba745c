package types

// Market type keys used by The Odds API.
const (
	MarketH2H     = "h2h"
	MarketSpreads = "spreads"
	MarketTotals  = "totals"
)

// BookLine is one quoted price from one bookmaker for one market side.
type BookLine struct {
	Bookmaker       string   `json:"bookmaker"`
	MarketType      string   `json:"market"`
	Side            string   `json:"side"`
	AmericanOdds    *int     `json:"american_odds"`
	DecimalOdds     *float64 `json:"decimal_odds"`
	Point           *float64 `json:"point"`
	FairProbability *float64 `json:"fair_probability"`
	FairDecimalOdds *float64 `json:"fair_decimal_odds"`
}

// EventLines bundles every BookLine the sportsbook quotes for one event.
type EventLines struct {
	Sport             string     `json:"sport"`
	EventID           string     `json:"event_id"`
	Title             string     `json:"title"`
	CommenceTime      string     `json:"commence_time,omitempty"`
	CanonicalEventKey string     `json:"canonical_event_key,omitempty"`
	Lines             []BookLine `json:"lines"`
}

// FairProbabilities returns the vig-free probability per h2h side.
// Sides without an annotated line are absent from the map.
func (e *EventLines) FairProbabilities() map[string]float64 {
	fair := make(map[string]float64)
	for i := range e.Lines {
		line := &e.Lines[i]
		if line.MarketType != MarketH2H || line.FairProbability == nil {
			continue
		}
		fair[line.Side] = *line.FairProbability
	}
	return fair
}
