package types

import "time"

// ComparisonBasis tells how an Opportunity's EV was derived.
type ComparisonBasis string

const (
	// BasisNone means no reference probability was found; EV is zero.
	BasisNone ComparisonBasis = "none"
	// BasisSportsbookFair means EV was computed against vig-free sportsbook odds.
	BasisSportsbookFair ComparisonBasis = "sportsbook_fair"
)

// SourceOddsAPI names the sportsbook reference in ComparisonSources.
const SourceOddsAPI = "odds_api"

// SourcePolymarket is the venue every Opportunity is priced on.
const SourcePolymarket = "polymarket"

// Inputs records the numbers an EV calculation was based on.
type Inputs struct {
	PMPrice          float64            `json:"pm_price"`
	PMYesProbability float64            `json:"pm_yes_probability"`
	FeeCushion       float64            `json:"fee_cushion"`
	SBFairProbs      map[string]float64 `json:"sb_fair_probs"`
}

// Opportunity is one scored binary market. It is recomputed on every engine run.
type Opportunity struct {
	ID                string          `json:"id"`
	Source            string          `json:"source"`
	Title             string          `json:"title"`
	Sport             string          `json:"sport,omitempty"`
	EventID           string          `json:"event_id"`
	MarketID          string          `json:"market_id"`
	CanonicalEventKey string          `json:"canonical_event_key,omitempty"`
	YesProbability    float64         `json:"yes_probability"`
	Price             float64         `json:"price"`
	EVUSDPerShare     *float64        `json:"ev_usd_per_share"`
	EVPercent         *float64        `json:"ev_percent"`
	ComparisonBasis   ComparisonBasis `json:"comparison_basis"`
	ComparisonSources []string        `json:"comparison_sources"`
	SourceAttribution string          `json:"source_attribution,omitempty"`
	Inputs            *Inputs         `json:"inputs,omitempty"`
	CalcNotes         string          `json:"calc_notes,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
	IsStale           bool            `json:"is_stale"`
}

// EVPercentOr returns EVPercent, or fallback when it is missing.
func (o *Opportunity) EVPercentOr(fallback float64) float64 {
	if o.EVPercent == nil {
		return fallback
	}
	return *o.EVPercent
}
