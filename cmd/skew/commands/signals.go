package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skewlabs/skewcapture/internal/marketdata"
)

// signalsCmd logs the day's screener output to the rolling signal log.
var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Log daily screener signals",
	Long: `Loads the screener CSV for a date, annotates it with run_date and a
fetch timestamp, and appends it to the rolling signal log.

Example:
  skew signals --date 2025-08-04`,
	RunE: runSignals,
}

var signalsDate string

func init() {
	rootCmd.AddCommand(signalsCmd)
	signalsCmd.Flags().StringVar(&signalsDate, "date", "", "snapshot date YYYY-MM-DD (default today)")
}

func runSignals(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	date, err := parseDateFlag(signalsDate)
	if err != nil {
		return err
	}

	frame, err := a.signalLog.LogDay(date)
	if err != nil {
		a.logger.WithError(err).Error("Signal logging failed")
		return err
	}

	PrintSuccess(fmt.Sprintf("Logged %d signals for %s",
		frame.NumRows(), date.Format(marketdata.DateFormat)))
	return nil
}
