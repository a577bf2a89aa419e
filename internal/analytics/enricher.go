package analytics

import (
	"fmt"
	"time"

	"github.com/skewlabs/skewcapture/internal/marketdata"
	"github.com/skewlabs/skewcapture/internal/table"
	"github.com/skewlabs/skewcapture/pkg/logger"
)

// Enricher merges the latest available rolling statistics into a snapshot
// of screener signals for a single run date.
type Enricher struct {
	engine *Engine
	logger *logger.Logger
}

// NewEnricher creates an Enricher around the given stats engine.
func NewEnricher(engine *Engine, log *logger.Logger) *Enricher {
	return &Enricher{engine: engine, logger: log}
}

// Merge left-joins realized volatility and momentum columns onto the signal
// batch by symbol (matched case-insensitively against symbol/Symbol).
//
//   - Either input empty: returns signals unchanged.
//   - All signal rows must share one run_date; a mixed batch is a caller
//     contract violation and returns an error.
//   - Price history is filtered to dates <= run_date. Stats are taken at
//     the latest available date <= run_date, which may lag the run date
//     when the history does.
//   - Every signal row survives the join; symbols without history keep
//     missing stat cells.
func (e *Enricher) Merge(signals *table.Frame, history []marketdata.PriceBar) (*table.Frame, error) {
	if signals.Empty() || len(history) == 0 {
		return signals, nil
	}

	runDate, err := e.batchRunDate(signals)
	if err != nil {
		return nil, err
	}

	filtered := make([]marketdata.PriceBar, 0, len(history))
	for _, bar := range history {
		if !bar.Date.After(runDate) {
			filtered = append(filtered, bar)
		}
	}
	if len(filtered) == 0 {
		e.logger.WithField("run_date", runDate.Format(marketdata.DateFormat)).
			Warn("No price history on or before run date")
		return signals, nil
	}

	rv := e.engine.RealizedVolatility(filtered)
	mom := e.engine.Momentum(filtered)

	latest := latestDate(rv)
	if latest == "" {
		e.logger.Warn("No stat dates available, returning signals unmodified")
		return signals, nil
	}
	if latest != runDate.Format(marketdata.DateFormat) {
		e.logger.WithFields(map[string]interface{}{
			"run_date":  runDate.Format(marketdata.DateFormat),
			"stat_date": latest,
		}).Warn("Using stats from latest available date, run date not in history")
	}

	merged := signals
	for _, stats := range []*table.Frame{rv, mom} {
		daily := statsAtDate(stats, latest)
		if daily.Empty() {
			continue
		}
		merged, err = merged.LeftJoin(daily, "symbol", "symbol")
		if err != nil {
			return nil, fmt.Errorf("merge stats: %w", err)
		}
	}

	return merged, nil
}

// batchRunDate extracts and validates the single run_date of the batch.
func (e *Enricher) batchRunDate(signals *table.Frame) (time.Time, error) {
	idx := signals.ColFold("run_date")
	if idx < 0 {
		return time.Time{}, fmt.Errorf("signals batch has no run_date column")
	}

	first := signals.Cell(0, idx)
	for i := range signals.Rows {
		if signals.Cell(i, idx) != first {
			return time.Time{}, fmt.Errorf("signals batch mixes run dates %q and %q",
				first, signals.Cell(i, idx))
		}
	}

	runDate, err := time.Parse(marketdata.DateFormat, first)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid run_date %q: %w", first, err)
	}
	return runDate, nil
}

// latestDate returns the maximum value of the date column, or "".
// Dates are in the canonical format, so string ordering is date ordering.
func latestDate(stats *table.Frame) string {
	latest := ""
	for _, v := range stats.Column("date") {
		if v > latest {
			latest = v
		}
	}
	return latest
}

// statsAtDate filters a stats frame to one date and drops the date column.
func statsAtDate(stats *table.Frame, date string) *table.Frame {
	idx := stats.Col("date")
	if idx < 0 {
		return table.New()
	}
	daily := stats.Filter(func(row []string) bool {
		return row[idx] == date
	})

	keep := make([]string, 0, len(daily.Columns)-1)
	for _, c := range daily.Columns {
		if c != "date" {
			keep = append(keep, c)
		}
	}
	selected, err := daily.Select(keep...)
	if err != nil {
		return table.New()
	}
	return selected
}
