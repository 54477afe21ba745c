package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/mselser95/polymarket-edge/internal/app"
	"github.com/mselser95/polymarket-edge/internal/oddsapi"
	"github.com/mselser95/polymarket-edge/pkg/types"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var oddsCmd = &cobra.Command{
	Use:   "odds <sport-key>",
	Short: "Print sportsbook lines for one sport",
	Long: `Fetches The Odds API lines for a sport key (for example basketball_nba) and prints
every quoted line. Head-to-head lines carry the vig-free fair probability when the
event has exactly two sides. Requires ODDS_API_KEY.`,
	Args: cobra.ExactArgs(1),
	RunE: runOdds,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(oddsCmd)
}

func runOdds(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	components, err := app.BuildComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	if components.Odds == nil {
		return oddsapi.ErrMissingAPIKey
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	events, err := components.Odds.FetchSportOdds(ctx, args[0])
	if err != nil {
		return fmt.Errorf("fetch odds for %s: %w", args[0], err)
	}

	renderOdds(os.Stdout, events)
	return nil
}

// renderOdds prints one row per sportsbook line.
func renderOdds(w io.Writer, events []types.EventLines) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Event", "Book", "Market", "Side", "American", "Decimal", "Point", "Fair")

	lines := 0
	for i := range events {
		ev := &events[i]
		for j := range ev.Lines {
			line := &ev.Lines[j]
			american := "-"
			if line.AmericanOdds != nil {
				american = strconv.Itoa(*line.AmericanOdds)
			}
			table.Append(
				truncate(ev.Title, 40),
				line.Bookmaker,
				line.MarketType,
				line.Side,
				american,
				formatOptional(line.DecimalOdds, "%.3f"),
				formatOptional(line.Point, "%+.1f"),
				formatOptional(line.FairProbability, "%.4f"),
			)
			lines++
		}
	}

	table.Render()

	fmt.Fprintf(w, "Total: %d events, %d lines\n", len(events), lines)
}
