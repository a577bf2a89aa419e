package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "skew",
	Short: "SkewCapture - daily signal enrichment pipeline",
	Long: `SkewCapture daily market-data pipeline.

Logs the daily screener output to a rolling signal log, enriches it with
realized volatility and momentum computed from price history, and fetches
option-chain metadata for the enriched symbols.

Examples:
  skew pipeline --date 2025-08-04
  skew pipeline --schedule
  skew signals --date 2025-08-04
  skew options --date 2025-08-04 --max-symbols 10
  skew summary --date 2025-08-04`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default config/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
