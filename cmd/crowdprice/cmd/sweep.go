package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/crowdprice/crowdprice/internal/config"
	"github.com/crowdprice/crowdprice/internal/engine"
	"github.com/crowdprice/crowdprice/internal/notify"
	"github.com/crowdprice/crowdprice/internal/store"
	"github.com/crowdprice/crowdprice/pkg/logger"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one matcher pass and exit",
	Long: "Runs a single alert-matching sweep over recent sightings. " +
		"Notifications land in the datastore for polling; push delivery is " +
		"skipped since no server is running.",
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s, err := store.NewPostgresStore(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer s.Close()

	matcher := engine.NewMatcher(s,
		notify.NewNoOpNotifier(log),
		engine.WithLogger(log),
	)

	log.Info("starting one-shot sweep")

	if err := matcher.Sweep(ctx); err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	log.Info("sweep complete")
	return nil
}
