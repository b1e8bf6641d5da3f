package cmd

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/nt-hours/internal/log"
)

var scheduleSpec string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run update for all sources on a cron schedule until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleSpec, "cron", "", "Cron spec (default: schedule from config)")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	spec := scheduleSpec
	if spec == "" {
		spec = cfg.Schedule
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := cron.PrintfLogger(stdlog.New(os.Stderr, "cron: ", stdlog.LstdFlags))
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(spec, func() { scheduledUpdate(ctx) }); err != nil {
		fmt.Fprintf(os.Stderr, "invalid cron spec %q: %v\n", spec, err)
		os.Exit(1)
	}

	fmt.Printf("Scheduling updates (%s). Press Ctrl+C to stop.\n", spec)
	c.Start()
	<-ctx.Done()

	fmt.Println("Shutting down scheduler")
	<-c.Stop().Done()
	return nil
}

func scheduledUpdate(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	log.Info("scheduled update", "at", time.Now().Format(time.RFC3339))
	failed, err := updateAll(ctx, "", time.Now(), false)
	if err != nil {
		log.Error("scheduled update", err)
		return
	}
	if failed > 0 {
		log.Info("scheduled update finished with failures", "failed", failed)
	}
}
