// Package cmd defines the CLI commands for the harvester executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jobradar/harvester/internal/config"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Crawls company career pages and ingests normalized job listings",
		Long: `harvester crawls configured career pages on a tiered schedule,
extracts job listings, normalizes them, and upserts them into the job store.
Run "harvester scrape" for a one-shot crawl or "harvester schedule" to run
the recurring scheduler with the ops HTTP server.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default uses built-in defaults and HARVESTER_* env vars)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newScheduleCmd())
	return cmd
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
