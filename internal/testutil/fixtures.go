package testutil

import "fmt"

// GammaMarket builds a Gamma /markets record with one embedded event and Yes/No outcome records.
func GammaMarket(id, question, eventID, eventTitle string, yes float64) map[string]any {
	return map[string]any{
		"id":       id,
		"question": question,
		"events":   []map[string]any{{"id": eventID, "title": eventTitle}},
		"outcomes": []map[string]any{
			{"name": "Yes", "price": yes},
			{"name": "No", "price": 1 - yes},
		},
	}
}

// GammaStringifiedMarket builds a Gamma record in the stringified outcomes/outcomePrices form.
func GammaStringifiedMarket(id, question, eventID, eventTitle string, yes float64) map[string]any {
	return map[string]any{
		"id":            id,
		"question":      question,
		"events":        []map[string]any{{"id": eventID, "title": eventTitle}},
		"outcomes":      `["Yes", "No"]`,
		"outcomePrices": fmt.Sprintf(`["%g", "%g"]`, yes, 1-yes),
	}
}

// OddsEvent builds an Odds API event with one bookmaker quoting h2h American prices per side.
func OddsEvent(id, title, bookmaker string, prices map[string]int) map[string]any {
	outcomes := make([]map[string]any, 0, len(prices))
	for side, price := range prices {
		outcomes = append(outcomes, map[string]any{"name": side, "price": price})
	}
	return map[string]any{
		"id":            id,
		"commence_time": "2025-01-02T00:00:00Z",
		"home_team":     title,
		"bookmakers": []map[string]any{{
			"key":     bookmaker,
			"markets": []map[string]any{{"key": "h2h", "outcomes": outcomes}},
		}},
	}
}
