package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mselser95/polymarket-edge/pkg/config"
	"github.com/mselser95/polymarket-edge/pkg/types"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 {
	return &v
}

func iptr(v int) *int {
	return &v
}

func TestRenderOpportunities(t *testing.T) {
	opps := []types.Opportunity{
		{Title: "Will the Lakers win?", Sport: "basketball_nba", Price: 0.51, YesProbability: 0.5,
			EVUSDPerShare: fptr(0.05), EVPercent: fptr(9.8), ComparisonBasis: types.BasisSportsbookFair},
		{Title: "Will it rain?", Price: 0.3, YesProbability: 0.29,
			EVUSDPerShare: fptr(0), EVPercent: fptr(0), ComparisonBasis: types.BasisNone},
		{Title: "Third", Price: 0.2, ComparisonBasis: types.BasisNone},
	}

	tests := []struct {
		name     string
		limit    int
		contains []string
		absent   []string
	}{
		{
			name:     "all",
			limit:    0,
			contains: []string{"Will the Lakers win?", "+9.80", "sportsbook_fair", "Third", "showing 3"},
		},
		{
			name:     "limited",
			limit:    2,
			contains: []string{"Will it rain?", "Total: 3 opportunities (showing 2)"},
			absent:   []string{"Third"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			renderOpportunities(&buf, opps, tt.limit)

			out := buf.String()
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, not := range tt.absent {
				assert.NotContains(t, out, not)
			}
		})
	}
}

func TestRenderOpportunities_Empty(t *testing.T) {
	var buf bytes.Buffer
	renderOpportunities(&buf, nil, 10)
	assert.Equal(t, "No opportunities found.\n", buf.String())
}

func TestRenderOdds(t *testing.T) {
	events := []types.EventLines{{
		Title: "Lakers vs Celtics",
		Lines: []types.BookLine{
			{Bookmaker: "draftkings", MarketType: "h2h", Side: "Lakers", AmericanOdds: iptr(150), DecimalOdds: fptr(2.5), FairProbability: fptr(0.3885)},
			{Bookmaker: "draftkings", MarketType: "spreads", Side: "Celtics", Point: fptr(-4.5)},
		},
	}}

	var buf bytes.Buffer
	renderOdds(&buf, events)

	out := buf.String()
	assert.Contains(t, out, "draftkings")
	assert.Contains(t, out, "150")
	assert.Contains(t, out, "0.3885")
	assert.Contains(t, out, "-4.5")
	assert.Contains(t, out, "Total: 1 events, 2 lines")
}

func TestWriteEvents(t *testing.T) {
	events := []types.MarketEvent{{
		EventID: "e1",
		Title:   "Lakers vs Celtics",
		Sport:   "nba",
		Markets: []types.BinaryMarket{{
			MarketID: "m1",
			Question: "Will the Lakers win?",
			Outcomes: []types.Outcome{{Name: "Yes", Price: 0.49}, {Name: "No", Price: 0.49}},
		}},
	}}

	var buf bytes.Buffer
	writeEvents(&buf, events, true)

	out := buf.String()
	assert.Contains(t, out, "e1")
	assert.Contains(t, out, "nba")
	assert.Contains(t, out, "Yes=0.4900")
	assert.Contains(t, out, "Total: 1 events, 1 markets")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate(strings.Repeat("abcdefghij", 2), 10))
	assert.Equal(t, "ñññ...", truncate(strings.Repeat("ñ", 8), 6))
}

func TestIncludeNonSports(t *testing.T) {
	newCmd := func() *cobra.Command {
		c := &cobra.Command{Use: "x"}
		c.Flags().Bool("include-non-sports", false, "")
		return c
	}

	cfg := &config.Config{IncludeNonSports: true}

	c := newCmd()
	assert.True(t, includeNonSports(c, cfg))

	c = newCmd()
	require.NoError(t, c.Flags().Set("include-non-sports", "false"))
	assert.False(t, includeNonSports(c, cfg))
}
