package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skewlabs/skewcapture/internal/pipeline"
)

// summaryCmd summarizes the persisted option data for a date.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize persisted options data",
	Long: `Prints headline statistics for the persisted option definitions and
chain tables of a date: record counts, call/put split, strike and
days-to-expiry ranges.

Example:
  skew summary --date 2025-08-04`,
	RunE: runSummary,
}

var summaryDate string

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringVar(&summaryDate, "date", "", "date YYYY-MM-DD (default today)")
}

func runSummary(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	date, err := parseDateFlag(summaryDate)
	if err != nil {
		return err
	}

	summary, err := a.runner.SummarizeOptions(date)
	if err != nil {
		return err
	}

	PrintDoubleSeparator()
	fmt.Println("  Options Data Summary")
	PrintDoubleSeparator()

	printTableSummary("Option Chain Data", summary.Chain)
	printTableSummary("Option Definitions", summary.Definitions)

	if summary.Chain == nil && summary.Definitions == nil {
		PrintWarning("No persisted options data for " + date.Format("2006-01-02"))
	}
	return nil
}

func printTableSummary(title string, s *pipeline.TableSummary) {
	if s == nil {
		return
	}
	fmt.Println()
	fmt.Printf("  %s\n", title)
	PrintSeparator()
	PrintKeyValue("Total records", fmt.Sprintf("%d", s.Records), 18)
	PrintKeyValue("Unique underlyings", fmt.Sprintf("%d", s.Underlyings), 18)
	PrintKeyValue("Call options", fmt.Sprintf("%d", s.Calls), 18)
	PrintKeyValue("Put options", fmt.Sprintf("%d", s.Puts), 18)
	if s.HasStrikes {
		PrintKeyValue("Strike range", fmt.Sprintf("$%.1f - $%.1f", s.MinStrike, s.MaxStrike), 18)
	}
	if s.HasDays {
		PrintKeyValue("Days to expiry", fmt.Sprintf("%d - %d days", s.MinDays, s.MaxDays), 18)
	}
}
