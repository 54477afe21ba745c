package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mselser95/polymarket-edge/internal/app"
	"github.com/mselser95/polymarket-edge/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listEventsCmd = &cobra.Command{
	Use:   "list-events",
	Short: "List normalized Polymarket events",
	Long: `Fetches live binary markets from the Polymarket Gamma API and lists them grouped by
event, with the sport resolved from tags. Useful for checking SPORT_ALLOWLIST and
the fee-adjusted prices before they reach the engine.`,
	RunE: runListEvents,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listEventsCmd)
	listEventsCmd.Flags().BoolP("verbose", "v", false, "Show every market with its fee-adjusted prices")
}

func runListEvents(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	verbose, _ := cmd.Flags().GetBool("verbose")

	components, err := app.BuildComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fmt.Printf("Fetching up to %d pages of markets from Polymarket...\n\n", cfg.PolymarketMaxPages)

	events, err := components.Polymarket.FetchEvents(ctx)
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}

	writeEvents(os.Stdout, events, verbose)
	return nil
}

func writeEvents(out io.Writer, events []types.MarketEvent, verbose bool) {
	if len(events) == 0 {
		fmt.Fprintln(out, "No live binary markets found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "EVENT\tSPORT\tTITLE\tMARKETS\n")
	fmt.Fprintf(w, "-----\t-----\t-----\t-------\n")

	markets := 0
	for i := range events {
		ev := &events[i]
		markets += len(ev.Markets)

		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", ev.EventID, orDash(ev.Sport), truncate(ev.Title, 60), len(ev.Markets))

		if verbose {
			for j := range ev.Markets {
				m := &ev.Markets[j]
				fmt.Fprintf(w, "\t%s\t%s", m.MarketID, truncate(m.Question, 60))
				for _, o := range m.Outcomes {
					fmt.Fprintf(w, "  %s=%.4f", o.Name, o.Price)
				}
				fmt.Fprintf(w, "\n")
			}
		}
	}

	w.Flush()

	fmt.Fprintf(out, "\nTotal: %d events, %d markets\n", len(events), markets)
}
