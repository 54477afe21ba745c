package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mselser95/polymarket-edge/internal/app"
	"github.com/mselser95/polymarket-edge/internal/opportunity"
	"github.com/mselser95/polymarket-edge/pkg/types"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var opportunitiesCmd = &cobra.Command{
	Use:   "opportunities",
	Short: "Compute and print opportunities once",
	Long: `Runs the opportunity engine once and prints the results ranked by EV percent.
Sports whose sportsbook fetch failed are listed after the table.`,
	RunE: runOpportunities,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(opportunitiesCmd)
	opportunitiesCmd.Flags().IntP("limit", "l", 25, "Maximum number of rows to print (0 for all)")
	opportunitiesCmd.Flags().Bool("json", false, "Print JSON instead of a table")
}

func runOpportunities(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	components, err := app.BuildComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := components.Engine.FetchDetailed(ctx, opportunity.Options{
		IncludeNonSports: includeNonSports(cmd, cfg),
	})
	if err != nil {
		return fmt.Errorf("compute opportunities: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Opportunities)
	}

	renderOpportunities(os.Stdout, res.Opportunities, limit)
	for _, f := range res.Failures {
		fmt.Fprintf(os.Stdout, "sportsbook fetch failed for %s: %s\n", f.Sport, f.Message)
	}
	if components.Odds == nil {
		fmt.Fprintln(os.Stdout, "ODDS_API_KEY not set: EV is not compared against sportsbooks")
	}

	return nil
}

// renderOpportunities prints up to limit opportunities as a table. A limit of 0 prints all.
func renderOpportunities(w io.Writer, opps []types.Opportunity, limit int) {
	if len(opps) == 0 {
		fmt.Fprintln(w, "No opportunities found.")
		return
	}

	shown := opps
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	table := tablewriter.NewWriter(w)
	table.Header("#", "Sport", "Market", "Price", "Yes", "EV $", "EV %", "Basis")

	for i := range shown {
		opp := &shown[i]
		table.Append(
			fmt.Sprintf("%d", i+1),
			orDash(opp.Sport),
			truncate(opp.Title, 60),
			fmt.Sprintf("%.4f", opp.Price),
			fmt.Sprintf("%.4f", opp.YesProbability),
			formatOptional(opp.EVUSDPerShare, "%+.4f"),
			formatOptional(opp.EVPercent, "%+.2f"),
			string(opp.ComparisonBasis),
		)
	}

	table.Render()

	fmt.Fprintf(w, "Total: %d opportunities (showing %d)\n", len(opps), len(shown))
}

func formatOptional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
