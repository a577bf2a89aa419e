package commands

import (
	"fmt"
	"time"

	"github.com/skewlabs/skewcapture/internal/analytics"
	"github.com/skewlabs/skewcapture/internal/external/barchart"
	"github.com/skewlabs/skewcapture/internal/external/databento"
	"github.com/skewlabs/skewcapture/internal/external/stooq"
	"github.com/skewlabs/skewcapture/internal/marketdata"
	"github.com/skewlabs/skewcapture/internal/options"
	"github.com/skewlabs/skewcapture/internal/pipeline"
	"github.com/skewlabs/skewcapture/internal/signallog"
	"github.com/skewlabs/skewcapture/internal/store"
	"github.com/skewlabs/skewcapture/pkg/config"
	"github.com/skewlabs/skewcapture/pkg/httputil"
	"github.com/skewlabs/skewcapture/pkg/logger"
)

// app holds the wired pipeline components for one command invocation.
type app struct {
	cfg       *config.Config
	logger    *logger.Logger
	runner    *pipeline.Runner
	signalLog *signallog.Log
	store     *store.Store
	prices    pipeline.PriceSource
}

// newApp loads configuration and wires every component. All construction
// happens here; commands only call into the runner.
func newApp() (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)
	httpClient := httputil.New(log)
	// Historical range queries return whole option chains and can run
	// well past the default timeout.
	optionsHTTP := httputil.NewWithTimeout(log, 2*time.Minute)

	screener := barchart.NewLoader(
		cfg.Barchart.DataDir,
		cfg.Barchart.FilenamePattern,
		cfg.RawSignalsDir,
		log,
	)
	signalLog := signallog.New(cfg.SignalLogCSV, cfg.Signals.AllowDuplicateRuns, screener, log)

	prices := stooq.NewClient(httpClient, cfg.Stooq.BaseURL, log)
	opts := databento.NewClient(optionsHTTP, cfg.Databento.BaseURL, cfg.Databento.APIKey, cfg.Databento.Dataset, log)

	st := store.New(cfg.Data.OutputDir, cfg.Data.ProcessedDir, log)
	engine := analytics.NewEngine(cfg.RealizedVolWindows, cfg.MomentumWindows, log)
	enricher := analytics.NewEnricher(engine, log)
	parser := options.NewParser(log)

	runner := pipeline.NewRunner(signalLog, prices, opts, st, enricher, parser, log)

	return &app{
		cfg:       cfg,
		logger:    log,
		runner:    runner,
		signalLog: signalLog,
		store:     st,
		prices:    prices,
	}, nil
}

// parseDateFlag parses a --date value; empty means today.
func parseDateFlag(value string) (time.Time, error) {
	if value == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse(marketdata.DateFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", value)
	}
	return date, nil
}
