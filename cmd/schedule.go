package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/app"
)

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Runs the recurring tier scheduler and ops server",
		Long: `Starts the worker pool, dispatches due targets on every scheduler tick
according to their priority tier, and serves health, metrics, and run-log
endpoints until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, false, 0)
			if err != nil {
				return err
			}
			defer a.Close()

			a.Pool.Start(ctx)
			if err := a.Scheduler.Start(ctx, cfg.Tick()); err != nil {
				return fmt.Errorf("start scheduler: %w", err)
			}
			a.Log.Info("scheduler running", zap.Duration("tick", cfg.Tick()))

			if err := a.ListenAndServe(ctx); err != nil {
				return err
			}

			a.Scheduler.Stop()
			a.Pool.Drain()
			a.Log.Info("shutdown complete")
			return nil
		},
	}
	return cmd
}
