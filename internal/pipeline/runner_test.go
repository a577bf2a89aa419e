package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skewlabs/skewcapture/internal/analytics"
	"github.com/skewlabs/skewcapture/internal/marketdata"
	"github.com/skewlabs/skewcapture/internal/options"
	"github.com/skewlabs/skewcapture/internal/signallog"
	"github.com/skewlabs/skewcapture/internal/store"
	"github.com/skewlabs/skewcapture/internal/table"
	"github.com/skewlabs/skewcapture/pkg/logger"
)

var runDate = time.Date(2024, 8, 13, 0, 0, 0, 0, time.UTC)

type fakeScreener struct {
	frame *table.Frame
	err   error
}

func (f *fakeScreener) LoadForDate(time.Time) (*table.Frame, error) {
	return f.frame, f.err
}

type fakePrices struct {
	calls []string
	fail  map[string]bool
}

func (f *fakePrices) FetchDailyBars(_ context.Context, symbol string, from, to time.Time) ([]marketdata.PriceBar, error) {
	f.calls = append(f.calls, symbol)
	if f.fail[symbol] {
		return nil, errors.New("vendor unavailable")
	}
	bars := make([]marketdata.PriceBar, 0, 6)
	price := 100.0
	for i := 5; i >= 0; i-- {
		bars = append(bars, marketdata.PriceBar{
			Symbol: symbol,
			Date:   to.AddDate(0, 0, -i),
			Close:  price,
		})
		price *= 1.01
	}
	return bars, nil
}

type fakeOptions struct {
	defs     *table.Frame
	chain    *table.Frame
	defsErr  error
	chainErr error
	gotSyms  []string
}

func (f *fakeOptions) GetDefinitions(_ context.Context, underlyings []string, _ time.Time) (*table.Frame, error) {
	f.gotSyms = underlyings
	return f.defs, f.defsErr
}

func (f *fakeOptions) GetChainCBBO(_ context.Context, underlyings []string, _ time.Time) (*table.Frame, error) {
	return f.chain, f.chainErr
}

type testHarness struct {
	runner *Runner
	store  *store.Store
	prices *fakePrices
	opts   *fakeOptions
}

func newHarness(t *testing.T, screener signallog.ScreenerSource, opts *fakeOptions) *testHarness {
	t.Helper()
	log := logger.NewTest()

	signalLog := signallog.New(t.TempDir()+"/signal_log.csv", false, screener, log)
	st := store.New(t.TempDir(), t.TempDir(), log)
	engine := analytics.NewEngine([]int{2}, []int{2}, log)
	prices := &fakePrices{fail: map[string]bool{}}
	if opts == nil {
		opts = &fakeOptions{defs: table.New(), chain: table.New()}
	}

	runner := NewRunner(
		signalLog,
		prices,
		opts,
		st,
		analytics.NewEnricher(engine, log),
		options.NewParser(log),
		log,
	)
	return &testHarness{runner: runner, store: st, prices: prices, opts: opts}
}

func screenerBatch(symbols ...string) *table.Frame {
	frame := table.New("Symbol", "Price")
	for _, s := range symbols {
		frame.AppendRow(s, "100")
	}
	return frame
}

func TestRunDaily(t *testing.T) {
	h := newHarness(t, &fakeScreener{frame: screenerBatch("AAPL", "MSFT")}, nil)

	require.NoError(t, h.runner.RunDaily(context.Background(), runDate))

	// One fetch per distinct symbol.
	assert.Equal(t, []string{"AAPL", "MSFT"}, h.prices.calls)

	enriched, err := h.store.LoadEnriched(runDate)
	require.NoError(t, err)
	require.Equal(t, 2, enriched.NumRows())

	// Annotation plus stat columns made it to disk.
	for _, col := range []string{"run_date", "run_timestamp", "rv_2", "mom_2"} {
		assert.GreaterOrEqual(t, enriched.Col(col), 0, "missing column %s", col)
	}
	assert.NotEqual(t, "", enriched.Cell(0, enriched.Col("rv_2")))

	// Price history was persisted for reuse.
	assert.True(t, h.store.HasPriceHistory(runDate))
}

func TestRunDaily_RerunReusesLoggedBatch(t *testing.T) {
	h := newHarness(t, &fakeScreener{frame: screenerBatch("AAPL")}, nil)

	require.NoError(t, h.runner.RunDaily(context.Background(), runDate))
	firstCalls := len(h.prices.calls)

	// Second pass on the same date: duplicate batch rejected by the log,
	// stored price history reused, snapshot still re-persisted.
	require.NoError(t, h.runner.RunDaily(context.Background(), runDate))
	assert.Equal(t, firstCalls, len(h.prices.calls), "rerun must not re-fetch prices")

	enriched, err := h.store.LoadEnriched(runDate)
	require.NoError(t, err)
	assert.Equal(t, 1, enriched.NumRows(), "rerun must not duplicate rows")
}

func TestRunDaily_FailedSymbolIsSkipped(t *testing.T) {
	h := newHarness(t, &fakeScreener{frame: screenerBatch("AAPL", "ZZZQ")}, nil)
	h.prices.fail["ZZZQ"] = true

	require.NoError(t, h.runner.RunDaily(context.Background(), runDate))

	enriched, err := h.store.LoadEnriched(runDate)
	require.NoError(t, err)
	require.Equal(t, 2, enriched.NumRows())

	// AAPL got stats, the failed symbol kept missing cells but survived.
	rv := enriched.Col("rv_2")
	assert.NotEqual(t, "", enriched.Cell(0, rv))
	assert.Equal(t, "", enriched.Cell(1, rv))
}

func TestRunDaily_EmptyScreenerWithExistingLog(t *testing.T) {
	screener := &fakeScreener{frame: screenerBatch("AAPL")}
	h := newHarness(t, screener, nil)

	require.NoError(t, h.runner.RunDaily(context.Background(), runDate))

	// Next day the screener returns no rows: the log file exists but holds
	// nothing for the date, so the run fails with a clean message.
	screener.frame = table.New("Symbol", "Price")
	err := h.runner.RunDaily(context.Background(), runDate.AddDate(0, 0, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no signals for 2024-08-14")
	assert.NotContains(t, err.Error(), "%!w")
}

func TestRunDaily_NoScreenerData(t *testing.T) {
	h := newHarness(t, &fakeScreener{err: marketdata.ErrMissingInputFile}, nil)

	err := h.runner.RunDaily(context.Background(), runDate)
	assert.ErrorIs(t, err, marketdata.ErrMissingInputFile)
}

func TestRunOptions(t *testing.T) {
	defs := table.New("symbol", "strike_price")
	defs.AppendRow("ALGN  240823C00165000", "165000000000")
	chain := table.New("symbol", "bid_px", "ask_px")
	chain.AppendRow("ALGN  240823P00160000", "2.10", "2.25")

	opts := &fakeOptions{defs: defs, chain: chain}
	h := newHarness(t, &fakeScreener{frame: screenerBatch("ALGN", "AAPL")}, opts)

	require.NoError(t, h.runner.RunDaily(context.Background(), runDate))
	require.NoError(t, h.runner.RunOptions(context.Background(), runDate, 1))

	// The cap keeps only the first symbol of the snapshot.
	assert.Equal(t, []string{"ALGN"}, opts.gotSyms)

	gotDefs, err := h.store.LoadOptionDefinitions(runDate)
	require.NoError(t, err)
	require.Equal(t, 1, gotDefs.NumRows())
	assert.Equal(t, "C", gotDefs.Cell(0, gotDefs.Col("option_type")))
	assert.Equal(t, "165", gotDefs.Cell(0, gotDefs.Col("strike_price_parsed")))
	assert.Equal(t, "10", gotDefs.Cell(0, gotDefs.Col("days_to_expiry")))

	gotChain, err := h.store.LoadOptionChain(runDate)
	require.NoError(t, err)
	assert.Equal(t, "P", gotChain.Cell(0, gotChain.Col("option_type")))
}

func TestRunOptions_VendorFailureYieldsNoTables(t *testing.T) {
	opts := &fakeOptions{defsErr: errors.New("auth failed"), chainErr: errors.New("auth failed")}
	h := newHarness(t, &fakeScreener{frame: screenerBatch("ALGN")}, opts)

	require.NoError(t, h.runner.RunDaily(context.Background(), runDate))
	require.NoError(t, h.runner.RunOptions(context.Background(), runDate, 10),
		"vendor failures degrade to empty tables, not errors")

	_, err := h.store.LoadOptionDefinitions(runDate)
	assert.ErrorIs(t, err, marketdata.ErrMissingInputFile)
}

func TestRunOptions_NoEnrichedSnapshot(t *testing.T) {
	h := newHarness(t, &fakeScreener{frame: screenerBatch("ALGN")}, nil)

	err := h.runner.RunOptions(context.Background(), runDate, 10)
	assert.ErrorIs(t, err, marketdata.ErrMissingInputFile)
}

func TestSummarizeOptions(t *testing.T) {
	defs := table.New("symbol", "strike_price")
	defs.AppendRow("ALGN  240823C00165000", "x")
	defs.AppendRow("ALGN  240823P00160000", "x")
	defs.AppendRow("SPY   240920C00550000", "x")

	opts := &fakeOptions{defs: defs, chain: table.New()}
	h := newHarness(t, &fakeScreener{frame: screenerBatch("ALGN", "SPY")}, opts)

	require.NoError(t, h.runner.RunDaily(context.Background(), runDate))
	require.NoError(t, h.runner.RunOptions(context.Background(), runDate, 10))

	summary, err := h.runner.SummarizeOptions(runDate)
	require.NoError(t, err)
	require.NotNil(t, summary.Definitions)
	assert.Nil(t, summary.Chain, "missing table leaves a nil summary")

	d := summary.Definitions
	assert.Equal(t, 3, d.Records)
	assert.Equal(t, 2, d.Calls)
	assert.Equal(t, 1, d.Puts)
	assert.True(t, d.HasStrikes)
	assert.Equal(t, 160.0, d.MinStrike)
	assert.Equal(t, 550.0, d.MaxStrike)
	assert.True(t, d.HasDays)
	assert.Equal(t, 10, d.MinDays)
	assert.Equal(t, 38, d.MaxDays)
}
