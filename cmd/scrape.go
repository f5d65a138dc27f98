package cmd

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/app"
	"github.com/jobradar/harvester/internal/targets"
)

func newScrapeCmd() *cobra.Command {
	var (
		all         bool
		targetNames []string
		withProxies bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Runs one crawl cycle and exits",
		Long: `Crawls the selected targets once, ignoring tier schedules, and exits
when every target has finished. Use --all for the whole target list or
--targets for a subset.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !all && len(targetNames) == 0 {
				return fmt.Errorf("nothing to scrape: pass --all or --targets")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, withProxies, concurrency)
			if err != nil {
				return err
			}
			defer a.Close()

			selected := a.Targets
			if !all {
				selected = targets.Filter(a.Targets, targetNames)
				if len(selected) == 0 {
					return fmt.Errorf("no targets match %s", strings.Join(targetNames, ", "))
				}
			}

			a.Pool.Start(ctx)
			runID, n, err := a.Scheduler.RunTargets(ctx, selected)
			if err != nil {
				a.Pool.Drain()
				return fmt.Errorf("dispatch targets: %w", err)
			}
			a.Pool.Drain()

			a.Log.Info("scrape finished",
				zap.String("run_id", runID),
				zap.Int("targets", n))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "scrape every configured target")
	cmd.Flags().StringSliceVar(&targetNames, "targets", nil, "comma-separated target names or slugs")
	cmd.Flags().BoolVar(&withProxies, "with-proxies", false, "route fetches through the proxy pool")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "override worker count")
	return cmd
}
