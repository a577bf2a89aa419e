package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skewlabs/skewcapture/internal/marketdata"
	"github.com/skewlabs/skewcapture/internal/table"
)

// pricesCmd fetches historical prices for a ticker list.
var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Fetch price history for a ticker list",
	Long: `Fetches daily close bars for every symbol in a CSV with a Symbol
column and saves the combined history as price_history_<YYYYMMDD>.csv.
Without --tickers-csv the symbols come from the signal log for the date.

Example:
  skew prices --date 2025-08-04 --tickers-csv data/raw/signals_20250804.csv`,
	RunE: runPrices,
}

var (
	pricesDate       string
	pricesTickersCSV string
)

func init() {
	rootCmd.AddCommand(pricesCmd)
	pricesCmd.Flags().StringVar(&pricesDate, "date", "", "snapshot date YYYY-MM-DD (default today)")
	pricesCmd.Flags().StringVar(&pricesTickersCSV, "tickers-csv", "", "CSV with a Symbol column")
}

func runPrices(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	date, err := parseDateFlag(pricesDate)
	if err != nil {
		return err
	}

	var frame *table.Frame
	if pricesTickersCSV != "" {
		frame, err = table.ReadCSV(pricesTickersCSV)
	} else {
		frame, err = a.signalLog.LoadForDate(date)
	}
	if err != nil {
		return err
	}

	symIdx := frame.ColFold("symbol")
	if symIdx < 0 {
		return fmt.Errorf("no Symbol column in ticker source")
	}

	seen := make(map[string]bool)
	var symbols []string
	for _, row := range frame.Rows {
		s := row[symIdx]
		if s != "" && !seen[s] {
			seen[s] = true
			symbols = append(symbols, s)
		}
	}

	from := date.AddDate(-1, 0, 0)
	ctx := context.Background()
	var all []marketdata.PriceBar
	for _, symbol := range symbols {
		bars, err := a.prices.FetchDailyBars(ctx, symbol, from, date)
		if err != nil {
			a.logger.WithError(err).WithField("symbol", symbol).Warn("Price fetch failed, skipping")
			continue
		}
		all = append(all, bars...)
	}

	if err := a.store.SavePriceHistory(all, date); err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("Saved price data for %d symbols (%d bars) for %s",
		len(symbols), len(all), date.Format(marketdata.DateFormat)))
	return nil
}
