package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/skewlabs/skewcapture/internal/marketdata"
)

// optionsCmd fetches option definitions and chain data for the enriched
// symbols of a date.
var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Fetch options data for enriched symbols",
	Long: `Reads the enriched signals snapshot for a date, fetches option
definitions and close CBBO quotes for its symbols from Databento, decodes
the fixed-width option tickers, and persists both tables.

Example:
  skew options --date 2025-08-04 --max-symbols 10`,
	RunE: runOptions,
}

var (
	optionsDate       string
	optionsMaxSymbols int
)

func init() {
	rootCmd.AddCommand(optionsCmd)
	optionsCmd.Flags().StringVar(&optionsDate, "date", "", "date YYYY-MM-DD (default today)")
	optionsCmd.Flags().IntVar(&optionsMaxSymbols, "max-symbols", 10, "maximum number of underlyings to fetch")
}

func runOptions(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.cfg.ValidateOptions(); err != nil {
		return err
	}

	date, err := parseDateFlag(optionsDate)
	if err != nil {
		return err
	}

	if err := a.runner.RunOptions(context.Background(), date, optionsMaxSymbols); err != nil {
		a.logger.WithError(err).Error("Options pipeline failed")
		return err
	}

	PrintSuccess("Options data fetch completed for " + date.Format(marketdata.DateFormat))
	return nil
}
