package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skewlabs/skewcapture/internal/marketdata"
	"github.com/skewlabs/skewcapture/internal/scheduler"
	"github.com/skewlabs/skewcapture/internal/scheduler/jobs"
)

// pipelineCmd runs the full daily pipeline once, or on a schedule.
var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the daily pipeline",
	Long: `Runs the full daily pass: log raw signals, collect price history,
enrich with realized vol and momentum, persist the enriched snapshot.

With --schedule the process stays up and runs the pass every day at the
configured snapshot time.

Examples:
  skew pipeline --date 2025-08-04
  skew pipeline --schedule`,
	RunE: runPipeline,
}

var (
	pipelineDate     string
	pipelineSchedule bool
)

func init() {
	rootCmd.AddCommand(pipelineCmd)
	pipelineCmd.Flags().StringVar(&pipelineDate, "date", "", "snapshot date YYYY-MM-DD (default today)")
	pipelineCmd.Flags().BoolVar(&pipelineSchedule, "schedule", false, "run in scheduled mode")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if pipelineSchedule {
		return runScheduled(a)
	}

	date, err := parseDateFlag(pipelineDate)
	if err != nil {
		return err
	}

	if err := a.runner.RunDaily(context.Background(), date); err != nil {
		a.logger.WithError(err).Error("Pipeline failed")
		return err
	}

	PrintSuccess("Pipeline completed for " + date.Format(marketdata.DateFormat))
	return nil
}

// runScheduled starts the cron scheduler and blocks until SIGINT/SIGTERM.
func runScheduled(a *app) error {
	sched := scheduler.New(a.logger)
	job := jobs.NewDailyPipelineJob(a.runner, a.cfg.Signals.SnapshotTime, a.logger)
	if err := sched.AddJob(job); err != nil {
		return err
	}

	sched.Start()
	PrintInfo("Scheduled daily run at " + a.cfg.Signals.SnapshotTime)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	sched.Stop()
	return nil
}
