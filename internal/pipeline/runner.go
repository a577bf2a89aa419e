// Package pipeline sequences the daily run: log signals, fetch price
// history, enrich, persist, plus the side pipeline for options data.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skewlabs/skewcapture/internal/analytics"
	"github.com/skewlabs/skewcapture/internal/marketdata"
	"github.com/skewlabs/skewcapture/internal/options"
	"github.com/skewlabs/skewcapture/internal/signallog"
	"github.com/skewlabs/skewcapture/internal/store"
	"github.com/skewlabs/skewcapture/internal/table"
	"github.com/skewlabs/skewcapture/pkg/logger"
)

// priceLookbackDays is how far back price history is fetched. A calendar
// year comfortably covers the 60-trading-day windows.
const priceLookbackDays = 365

// PriceSource fetches daily bars for one symbol.
type PriceSource interface {
	FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]marketdata.PriceBar, error)
}

// OptionsSource fetches option definitions and chain quotes.
type OptionsSource interface {
	GetDefinitions(ctx context.Context, underlyings []string, date time.Time) (*table.Frame, error)
	GetChainCBBO(ctx context.Context, underlyings []string, date time.Time) (*table.Frame, error)
}

// Runner orchestrates the daily pipeline. One pass runs to completion
// before the next trigger; nothing here is concurrent. The multi-step run
// is not transactional: a failure mid-pipeline leaves whatever earlier
// steps already persisted.
type Runner struct {
	signalLog *signallog.Log
	prices    PriceSource
	opts      OptionsSource
	store     *store.Store
	enricher  *analytics.Enricher
	parser    *options.Parser
	logger    *logger.Logger
}

// NewRunner wires the pipeline components together.
func NewRunner(
	signalLog *signallog.Log,
	prices PriceSource,
	opts OptionsSource,
	st *store.Store,
	enricher *analytics.Enricher,
	parser *options.Parser,
	log *logger.Logger,
) *Runner {
	return &Runner{
		signalLog: signalLog,
		prices:    prices,
		opts:      opts,
		store:     st,
		enricher:  enricher,
		parser:    parser,
		logger:    log.WithField("module", "pipeline"),
	}
}

// RunDaily executes the full daily pass for a date:
//  1. log raw signals (load screener, annotate, append to the log)
//  2. load today's batch back from the log
//  3. collect price history (reusing a stored file when present)
//  4. enrich the batch with realized vol and momentum
//  5. persist the enriched snapshot
func (r *Runner) RunDaily(ctx context.Context, date time.Time) error {
	dateStr := date.Format(marketdata.DateFormat)
	r.logger.WithField("date", dateStr).Info("Starting daily pipeline")

	// Step 1: log raw signals. A duplicate run date means the batch is
	// already in the log; rerunning the pipeline still re-enriches it.
	batch, err := r.signalLog.LogDay(date)
	if err != nil {
		if !errors.Is(err, signallog.ErrDuplicateRun) {
			return fmt.Errorf("log signals: %w", err)
		}
		r.logger.WithField("date", dateStr).Warn("Signals already logged for date, reusing logged batch")
	}

	// Step 2: load today's batch from the log.
	todays, err := r.signalLog.LoadForDate(date)
	if err != nil || todays.Empty() {
		if batch.Empty() {
			if err != nil {
				return fmt.Errorf("no signals for %s: %w", dateStr, err)
			}
			return fmt.Errorf("no signals for %s", dateStr)
		}
		todays = batch
	}
	r.logger.WithFields(map[string]interface{}{
		"date": dateStr,
		"rows": todays.NumRows(),
	}).Info("Loaded today's signals")

	// Step 3: price history.
	bars, err := r.collectPriceHistory(ctx, todays, date)
	if err != nil {
		return err
	}

	// Step 4: enrich.
	enriched := todays
	if len(bars) > 0 {
		enriched, err = r.enricher.Merge(todays, bars)
		if err != nil {
			return fmt.Errorf("enrich signals: %w", err)
		}
	} else {
		r.logger.Warn("No price data available, persisting raw signals")
	}

	// Step 5: persist.
	if err := r.store.SaveEnriched(enriched, date); err != nil {
		return err
	}

	r.logger.WithField("date", dateStr).Info("Daily pipeline completed")
	return nil
}

// collectPriceHistory loads the stored price history for the date when one
// exists, otherwise fetches bars per symbol sequentially. A failed symbol
// is logged and skipped, never aborting the batch.
func (r *Runner) collectPriceHistory(ctx context.Context, signals *table.Frame, date time.Time) ([]marketdata.PriceBar, error) {
	if r.store.HasPriceHistory(date) {
		bars, err := r.store.LoadPriceHistory(date)
		if err == nil {
			r.logger.WithField("bars", len(bars)).Info("Reusing stored price history")
			return bars, nil
		}
	}

	symbols := uniqueSymbols(signals)
	if len(symbols) == 0 {
		return nil, nil
	}

	from := date.AddDate(0, 0, -priceLookbackDays)
	all := make([]marketdata.PriceBar, 0, len(symbols)*priceLookbackDays/2)
	fetched := 0
	for _, symbol := range symbols {
		bars, err := r.prices.FetchDailyBars(ctx, symbol, from, date)
		if err != nil {
			r.logger.WithError(err).WithField("symbol", symbol).
				Warn("Price fetch failed, skipping symbol")
			continue
		}
		all = append(all, bars...)
		fetched++
	}
	r.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"fetched": fetched,
		"bars":    len(all),
	}).Info("Collected price history")

	if len(all) > 0 {
		if err := r.store.SavePriceHistory(all, date); err != nil {
			return nil, err
		}
	}
	return all, nil
}

// RunOptions executes the options side pipeline: read the enriched
// snapshot, fetch definitions and close quotes for its symbols (capped at
// maxSymbols), decode the fixed-width tickers, and persist both tables.
// A vendor failure yields an empty table for that leg, not an aborted run.
func (r *Runner) RunOptions(ctx context.Context, date time.Time, maxSymbols int) error {
	dateStr := date.Format(marketdata.DateFormat)

	enriched, err := r.store.LoadEnriched(date)
	if err != nil {
		return fmt.Errorf("load enriched signals: %w", err)
	}

	symbols := uniqueSymbols(enriched)
	if maxSymbols > 0 && len(symbols) > maxSymbols {
		r.logger.WithFields(map[string]interface{}{
			"total": len(symbols),
			"cap":   maxSymbols,
		}).Info("Capping symbols for options fetch")
		symbols = symbols[:maxSymbols]
	}
	if len(symbols) == 0 {
		r.logger.Warn("No symbols for options fetch")
		return nil
	}

	defs := r.fetchOptionFrame(ctx, "definitions", date, func() (*table.Frame, error) {
		return r.opts.GetDefinitions(ctx, symbols, date)
	})
	chain := r.fetchOptionFrame(ctx, "chain", date, func() (*table.Frame, error) {
		return r.opts.GetChainCBBO(ctx, symbols, date)
	})

	if !defs.Empty() {
		if defs, err = r.parser.Enrich(defs, date); err != nil {
			return fmt.Errorf("enrich definitions: %w", err)
		}
		if err := r.store.SaveOptionDefinitions(defs, date); err != nil {
			return err
		}
	}
	if !chain.Empty() {
		if chain, err = r.parser.Enrich(chain, date); err != nil {
			return fmt.Errorf("enrich chain: %w", err)
		}
		if err := r.store.SaveOptionChain(chain, date); err != nil {
			return err
		}
	}

	r.logger.WithFields(map[string]interface{}{
		"date":        dateStr,
		"definitions": defs.NumRows(),
		"chain":       chain.NumRows(),
	}).Info("Options pipeline completed")
	return nil
}

func (r *Runner) fetchOptionFrame(ctx context.Context, kind string, date time.Time, fetch func() (*table.Frame, error)) *table.Frame {
	frame, err := fetch()
	if err != nil {
		r.logger.WithError(err).WithField("kind", kind).
			Error("Options fetch failed, continuing with empty table")
		return table.New()
	}
	return frame
}

// uniqueSymbols extracts the distinct non-empty symbols of a frame in first
// appearance order.
func uniqueSymbols(frame *table.Frame) []string {
	if frame.Empty() {
		return nil
	}
	idx := frame.ColFold("symbol")
	if idx < 0 {
		return nil
	}

	seen := make(map[string]bool)
	symbols := make([]string, 0, frame.NumRows())
	for _, row := range frame.Rows {
		s := strings.TrimSpace(row[idx])
		if s == "" {
			continue
		}
		key := strings.ToUpper(s)
		if !seen[key] {
			seen[key] = true
			symbols = append(symbols, s)
		}
	}
	return symbols
}
