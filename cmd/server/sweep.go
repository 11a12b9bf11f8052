package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"pickup-dispatch-service/internal/platform/logger"
	"pickup-dispatch-service/internal/services"
	"syscall"

	"github.com/spf13/cobra"
)

var sweepDays int

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Notify inactive residents and collectors once and exit",
	RunE:  runSweep,
}

func init() {
	sweepCmd.Flags().IntVar(&sweepDays, "days", 0, "inactivity window in days (default SWEEP_WINDOW_DAYS)")
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if sweepDays > 0 {
		cfg.Sweep.WindowDays = sweepDays
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	sched := services.NewSweepScheduler(a.sweep(), 0, cfg.Sweep.WindowDays, logger.Component(a.log, "sweep"))
	for _, rep := range sched.RunOnce(ctx) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: inactive=%d notified=%d failed=%d\n", rep.Role, rep.Inactive, rep.Notified, rep.Failed)
	}
	return ctx.Err()
}
