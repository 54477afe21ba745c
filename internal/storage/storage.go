package storage

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/polymarket-edge/pkg/types"
)

// Snapshot is the persisted form of one engine run.
type Snapshot struct {
	RunID         uuid.UUID
	CapturedAt    time.Time
	Opportunities []types.Opportunity
	// Lines holds sportsbook lines by sport key; it feeds the odds log.
	Lines    map[string][]types.EventLines
	Failures []string // sports whose odds fetch failed
}

// NewSnapshot stamps a run with a fresh id.
func NewSnapshot(capturedAt time.Time, opps []types.Opportunity, lines map[string][]types.EventLines, failures []string) *Snapshot {
	return &Snapshot{
		RunID:         uuid.New(),
		CapturedAt:    capturedAt.UTC(),
		Opportunities: opps,
		Lines:         lines,
		Failures:      failures,
	}
}

// Storage is the interface for persisting engine snapshots.
type Storage interface {
	// StoreSnapshot persists one run.
	StoreSnapshot(ctx context.Context, snap *Snapshot) error

	// Close closes the storage connection.
	Close() error
}

// NopStorage discards snapshots.
type NopStorage struct{}

// StoreSnapshot does nothing.
func (NopStorage) StoreSnapshot(context.Context, *Snapshot) error { return nil }

// Close does nothing.
func (NopStorage) Close() error { return nil }

// oddsLogRow is one flattened sportsbook line.
type oddsLogRow struct {
	Sport      string
	EventID    string
	Bookmaker  string
	MarketType string
	Side       string
	Normalized normalizedLine
}

type normalizedLine struct {
	AmericanOdds    *int     `json:"american_odds,omitempty"`
	DecimalOdds     *float64 `json:"decimal_odds,omitempty"`
	Point           *float64 `json:"point,omitempty"`
	FairProbability *float64 `json:"fair_probability,omitempty"`
	FairDecimalOdds *float64 `json:"fair_decimal_odds,omitempty"`
}

// oddsLogRows flattens snapshot lines, sports in lexical order.
func oddsLogRows(snap *Snapshot) []oddsLogRow {
	var rows []oddsLogRow
	for _, sport := range sortedKeys(snap.Lines) {
		for _, ev := range snap.Lines[sport] {
			for _, line := range ev.Lines {
				rows = append(rows, oddsLogRow{
					Sport:      sport,
					EventID:    ev.EventID,
					Bookmaker:  line.Bookmaker,
					MarketType: line.MarketType,
					Side:       line.Side,
					Normalized: normalizedLine{
						AmericanOdds:    line.AmericanOdds,
						DecimalOdds:     line.DecimalOdds,
						Point:           line.Point,
						FairProbability: line.FairProbability,
						FairDecimalOdds: line.FairDecimalOdds,
					},
				})
			}
		}
	}
	return rows
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
