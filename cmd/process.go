package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	processLoop    bool
	processWorkers int
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process queued scrape jobs",
	Long:  "Claims the oldest pending job and runs it end to end. With --loop, polls the queue until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		proc, st, err := initProcessor(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if !processLoop {
			ran, err := proc.RunOnce(ctx)
			if err != nil {
				return err
			}
			if !ran {
				zap.L().Info("queue is empty")
			}
			return nil
		}

		interval := time.Duration(cfg.Queue.PollIntervalSecs) * time.Second
		zap.L().Info("polling queue",
			zap.Duration("interval", interval),
			zap.Int("workers", processWorkers),
		)

		g, ctx := errgroup.WithContext(ctx)
		for i := 0; i < processWorkers; i++ {
			g.Go(func() error {
				return pollLoop(ctx, proc, interval)
			})
		}
		if err := g.Wait(); err != nil && ctx.Err() == nil {
			return err
		}
		zap.L().Info("poller stopped")
		return nil
	},
}

// pollLoop drains the queue, then sleeps the poll interval whenever it
// comes up empty. Job-level failures are already recorded on the job;
// only infrastructure errors stop the loop.
func pollLoop(ctx context.Context, proc interface {
	RunOnce(ctx context.Context) (bool, error)
}, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ran, err := proc.RunOnce(ctx)
		if err != nil {
			return err
		}
		if ran {
			continue
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func init() {
	processCmd.Flags().BoolVar(&processLoop, "loop", false, "poll the queue until interrupted")
	processCmd.Flags().IntVar(&processWorkers, "workers", 1, "concurrent pollers in --loop mode")
	rootCmd.AddCommand(processCmd)
}
