package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/offerwatch/offerwatch/pkg/logging"
	"github.com/offerwatch/offerwatch/pkg/worker"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the check loop until stopped",
		Long:  "Checks all watched offers immediately and then on every interval. Changes to the watchlist directory trigger an extra check. Stops on SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			w, cleanup, err := buildWorker(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			loop := &worker.Loop{
				Worker:    w,
				Interval:  cfg.Interval,
				Heartbeat: cfg.Heartbeat,
				WatchDir:  cfg.WatchDir,
				Log:       logging.NewLogger("loop"),
			}
			if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
