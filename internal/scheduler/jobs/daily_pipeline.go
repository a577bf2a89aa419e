// Package jobs defines the scheduled jobs of the pipeline.
package jobs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skewlabs/skewcapture/internal/pipeline"
	"github.com/skewlabs/skewcapture/pkg/logger"
)

// DailyPipelineJob runs the full daily pass at the configured snapshot
// time. Each trigger processes the current day.
type DailyPipelineJob struct {
	runner       *pipeline.Runner
	snapshotTime string
	logger       *logger.Logger
}

// NewDailyPipelineJob creates the daily pipeline job. snapshotTime is HH:MM.
func NewDailyPipelineJob(runner *pipeline.Runner, snapshotTime string, log *logger.Logger) *DailyPipelineJob {
	return &DailyPipelineJob{
		runner:       runner,
		snapshotTime: snapshotTime,
		logger:       log,
	}
}

// Name returns the job name
func (j *DailyPipelineJob) Name() string {
	return "daily_pipeline"
}

// Schedule converts the HH:MM snapshot time to a daily cron expression
// with seconds. An unparseable time falls back to the 03:53 default.
func (j *DailyPipelineJob) Schedule() string {
	spec, err := SnapshotTimeToCron(j.snapshotTime)
	if err != nil {
		j.logger.WithError(err).Warn("Invalid snapshot time, using default 03:53")
		return "0 53 3 * * *"
	}
	return spec
}

// Run executes the daily pipeline for today.
func (j *DailyPipelineJob) Run(ctx context.Context) error {
	return j.runner.RunDaily(ctx, time.Now())
}

// SnapshotTimeToCron converts "HH:MM" to a six-field cron expression like
// "0 53 3 * * *".
func SnapshotTimeToCron(snapshotTime string) (string, error) {
	parts := strings.Split(snapshotTime, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("snapshot time %q is not HH:MM", snapshotTime)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("snapshot time %q has invalid hour", snapshotTime)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("snapshot time %q has invalid minute", snapshotTime)
	}
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
