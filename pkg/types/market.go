package types

import "strings"

// Outcome is one leg of a binary contract.
type Outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// BinaryMarket is a Polymarket contract with exactly two outcomes.
// Prices are fee adjusted per leg and are not renormalized, so Yes + No may be below 1.
type BinaryMarket struct {
	MarketID string    `json:"market_id"`
	EventID  string    `json:"event_id"`
	Question string    `json:"question"`
	Outcomes []Outcome `json:"outcomes"`
}

// OutcomeByName returns the outcome whose name matches case-insensitively.
func (m *BinaryMarket) OutcomeByName(name string) *Outcome {
	for i := range m.Outcomes {
		if strings.EqualFold(m.Outcomes[i].Name, name) {
			return &m.Outcomes[i]
		}
	}
	return nil
}

// MarketEvent groups binary markets that share an embedded Polymarket event.
type MarketEvent struct {
	EventID string `json:"event_id"`
	Title   string `json:"title"`
	// Sport is the normalized sport code, empty when unresolved.
	Sport   string         `json:"sport,omitempty"`
	Ticker  string         `json:"ticker,omitempty"`
	Markets []BinaryMarket `json:"markets"`
}
