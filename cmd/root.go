package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mselser95/polymarket-edge/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "polymarket-edge",
	Short: "Polymarket expected-value scanner",
	Long: `Polymarket expected-value scanner that compares binary Polymarket prices
against vig-free sportsbook probabilities from The Odds API.

Markets are fetched from the Polymarket Gamma API, joined to sportsbook events
by a canonical event key, and ranked by expected value per dollar staked.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().Bool("include-non-sports", false, "Keep events whose sport cannot be resolved (overrides INCLUDE_NON_SPORTS)")
}

// loadConfig reads an optional .env file, then the environment, and builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	return cfg, logger, nil
}

// includeNonSports resolves the flag against the configured default.
func includeNonSports(cmd *cobra.Command, cfg *config.Config) bool {
	if cmd.Flags().Changed("include-non-sports") {
		v, _ := cmd.Flags().GetBool("include-non-sports")
		return v
	}
	return cfg.IncludeNonSports
}
