// Package signallog appends annotated daily screener snapshots to the
// rolling signal log CSV used for forward-testing.
package signallog

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/skewlabs/skewcapture/internal/marketdata"
	"github.com/skewlabs/skewcapture/internal/table"
	"github.com/skewlabs/skewcapture/pkg/logger"
)

// ErrDuplicateRun indicates the log already holds rows for the batch's run
// date and duplicate runs are not allowed.
var ErrDuplicateRun = errors.New("signal log already contains this run date")

// expectedMetrics are back-filled with the missing marker when the screener
// output does not carry them. Their absence is never an error.
var expectedMetrics = []string{"IV_short", "IV_long", "skew_z", "momentum"}

// ScreenerSource loads the raw screener output for a date.
type ScreenerSource interface {
	LoadForDate(date time.Time) (*table.Frame, error)
}

// Log appends annotated daily snapshots to a persistent rolling CSV.
// Append is the last step of each batch (open-append-close): a crash before
// it loses the batch but never corrupts the existing log.
type Log struct {
	path            string
	allowDuplicates bool
	source          ScreenerSource
	logger          *logger.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates a signal log writing to path.
func New(path string, allowDuplicates bool, source ScreenerSource, log *logger.Logger) *Log {
	return &Log{
		path:            path,
		allowDuplicates: allowDuplicates,
		source:          source,
		logger:          log,
		now:             time.Now,
	}
}

// Annotate stamps run_date and a UTC fetch timestamp on a copy of the
// frame, and back-fills the expected metric columns when absent.
func (l *Log) Annotate(frame *table.Frame, runDate time.Time) *table.Frame {
	out := frame.Clone()
	out.AddConstColumn("run_date", runDate.Format(marketdata.DateFormat))
	out.AddConstColumn("run_timestamp", l.now().UTC().Format(time.RFC3339))

	for _, metric := range expectedMetrics {
		if out.Col(metric) < 0 {
			out.AddConstColumn(metric, "")
		}
	}
	return out
}

// Append adds the batch to the log, creating the file with a header when it
// does not exist and appending without one otherwise. When the log already
// holds rows for the batch's run date and duplicates are not allowed, the
// batch is rejected with ErrDuplicateRun.
func (l *Log) Append(frame *table.Frame) error {
	if frame.Empty() {
		return nil
	}

	if !l.allowDuplicates {
		if err := l.checkDuplicate(frame); err != nil {
			return err
		}
	}

	if err := table.AppendCSV(frame, l.path); err != nil {
		return fmt.Errorf("append signal log: %w", err)
	}

	l.logger.WithFields(map[string]interface{}{
		"rows": frame.NumRows(),
		"path": l.path,
	}).Info("Appended batch to signal log")
	return nil
}

// LoadForDate reads the persisted log filtered to one run date.
func (l *Log) LoadForDate(runDate time.Time) (*table.Frame, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		return nil, fmt.Errorf("signal log %s: %w", l.path, marketdata.ErrMissingInputFile)
	}

	frame, err := table.ReadCSV(l.path)
	if err != nil {
		return nil, fmt.Errorf("read signal log: %w", err)
	}

	idx := frame.Col("run_date")
	if idx < 0 {
		return nil, fmt.Errorf("signal log %s has no run_date column", l.path)
	}

	want := runDate.Format(marketdata.DateFormat)
	return frame.Filter(func(row []string) bool {
		return row[idx] == want
	}), nil
}

// LogDay runs the full batch for one date: load the screener output,
// annotate it, append it to the log. Returns the annotated frame.
func (l *Log) LogDay(runDate time.Time) (*table.Frame, error) {
	raw, err := l.source.LoadForDate(runDate)
	if err != nil {
		return nil, err
	}

	annotated := l.Annotate(raw, runDate)
	if err := l.Append(annotated); err != nil {
		return nil, err
	}

	l.logger.WithFields(map[string]interface{}{
		"run_date": runDate.Format(marketdata.DateFormat),
		"rows":     annotated.NumRows(),
	}).Info("Logged daily signals")
	return annotated, nil
}

// checkDuplicate scans the existing log for the batch's run date.
func (l *Log) checkDuplicate(frame *table.Frame) error {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		return nil
	}

	batchIdx := frame.Col("run_date")
	if batchIdx < 0 {
		return nil
	}
	batchDate := frame.Cell(0, batchIdx)

	existing, err := table.ReadCSV(l.path)
	if err != nil {
		return fmt.Errorf("read signal log for dedup check: %w", err)
	}
	existingIdx := existing.Col("run_date")
	if existingIdx < 0 {
		return nil
	}
	for _, row := range existing.Rows {
		if existingIdx < len(row) && row[existingIdx] == batchDate {
			return fmt.Errorf("run date %s: %w", batchDate, ErrDuplicateRun)
		}
	}
	return nil
}
