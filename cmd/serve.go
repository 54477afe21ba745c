package cmd

import (
	"fmt"

	"github.com/mselser95/polymarket-edge/internal/app"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve opportunities over HTTP",
	Long: `Starts the HTTP API, which will:
1. Recompute opportunities every REFRESH_INTERVAL_SECONDS
2. Persist each run according to STORAGE_MODE
3. Serve /api/opportunities, /api/opportunities/meta, /api/odds/{sport}
   and /api/debug/opportunity/{id}, plus /health, /ready and /metrics`,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	opts := &app.Options{
		IncludeNonSports: includeNonSports(cmd, cfg),
	}

	application, err := app.New(cfg, logger, opts)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	// Run app
	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
