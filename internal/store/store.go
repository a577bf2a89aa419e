// Package store persists pipeline inputs and outputs as date-stamped CSV
// files. Filenames are normalized to one canonical YYYYMMDD stamp; readers
// also accept the legacy YYYY-MM-DD stamp left behind by earlier runs.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/skewlabs/skewcapture/internal/marketdata"
	"github.com/skewlabs/skewcapture/internal/table"
	"github.com/skewlabs/skewcapture/pkg/logger"
)

// Store reads and writes the date-stamped CSV artifacts of the pipeline.
type Store struct {
	outputDir    string
	processedDir string
	logger       *logger.Logger
}

// New creates a Store writing raw artifacts to outputDir and enriched
// snapshots to processedDir.
func New(outputDir, processedDir string, log *logger.Logger) *Store {
	return &Store{
		outputDir:    outputDir,
		processedDir: processedDir,
		logger:       log,
	}
}

// PriceHistoryPath returns the canonical price history path for a date.
func (s *Store) PriceHistoryPath(date time.Time) string {
	return filepath.Join(s.outputDir,
		fmt.Sprintf("price_history_%s.csv", date.Format(marketdata.FileDateFormat)))
}

// SavePriceHistory writes bars as a date,symbol,close CSV.
func (s *Store) SavePriceHistory(bars []marketdata.PriceBar, date time.Time) error {
	frame := table.New("date", "symbol", "close")
	for _, bar := range bars {
		frame.AppendRow(
			bar.Date.Format(marketdata.DateFormat),
			bar.Symbol,
			strconv.FormatFloat(bar.Close, 'g', -1, 64),
		)
	}

	path := s.PriceHistoryPath(date)
	if err := table.WriteCSV(frame, path); err != nil {
		return fmt.Errorf("save price history: %w", err)
	}
	s.logger.WithFields(map[string]interface{}{
		"path": path,
		"rows": len(bars),
	}).Info("Saved price history")
	return nil
}

// LoadPriceHistory reads the price history for a date, trying the canonical
// filename first and the legacy dashed stamp second.
func (s *Store) LoadPriceHistory(date time.Time) ([]marketdata.PriceBar, error) {
	candidates := []string{
		s.PriceHistoryPath(date),
		filepath.Join(s.outputDir,
			fmt.Sprintf("price_history_%s.csv", date.Format(marketdata.DateFormat))),
	}

	var path string
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			path = p
			break
		}
	}
	if path == "" {
		return nil, fmt.Errorf("price history for %s: %w",
			date.Format(marketdata.DateFormat), marketdata.ErrMissingInputFile)
	}

	frame, err := table.ReadCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load price history: %w", err)
	}
	return framesToBars(frame)
}

// HasPriceHistory reports whether a stored price history exists for a date.
func (s *Store) HasPriceHistory(date time.Time) bool {
	_, err := s.LoadPriceHistory(date)
	return err == nil
}

// SaveEnriched writes the enriched signal snapshot for a date.
func (s *Store) SaveEnriched(frame *table.Frame, date time.Time) error {
	path := s.enrichedPath(date)
	if err := table.WriteCSV(frame, path); err != nil {
		return fmt.Errorf("save enriched signals: %w", err)
	}
	s.logger.WithFields(map[string]interface{}{
		"path": path,
		"rows": frame.NumRows(),
	}).Info("Saved enriched signals")
	return nil
}

// LoadEnriched reads the enriched signal snapshot for a date.
func (s *Store) LoadEnriched(date time.Time) (*table.Frame, error) {
	path := s.enrichedPath(date)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("enriched signals %s: %w", path, marketdata.ErrMissingInputFile)
	}
	return table.ReadCSV(path)
}

// SaveOptionDefinitions writes the option definitions table for a date.
func (s *Store) SaveOptionDefinitions(frame *table.Frame, date time.Time) error {
	return s.saveOptionFrame(frame, "option_definitions", date)
}

// SaveOptionChain writes the option chain CBBO table for a date.
func (s *Store) SaveOptionChain(frame *table.Frame, date time.Time) error {
	return s.saveOptionFrame(frame, "option_chain_data", date)
}

// LoadOptionDefinitions reads the option definitions table for a date.
func (s *Store) LoadOptionDefinitions(date time.Time) (*table.Frame, error) {
	return s.loadOptionFrame("option_definitions", date)
}

// LoadOptionChain reads the option chain CBBO table for a date.
func (s *Store) LoadOptionChain(date time.Time) (*table.Frame, error) {
	return s.loadOptionFrame("option_chain_data", date)
}

func (s *Store) enrichedPath(date time.Time) string {
	return filepath.Join(s.processedDir,
		fmt.Sprintf("enriched_signals_%s.csv", date.Format(marketdata.FileDateFormat)))
}

func (s *Store) optionPath(prefix string, date time.Time) string {
	return filepath.Join(s.outputDir,
		fmt.Sprintf("%s_%s.csv", prefix, date.Format(marketdata.FileDateFormat)))
}

func (s *Store) saveOptionFrame(frame *table.Frame, prefix string, date time.Time) error {
	if frame.Empty() {
		s.logger.WithField("kind", prefix).Warn("Skipping empty option table")
		return nil
	}
	path := s.optionPath(prefix, date)
	if err := table.WriteCSV(frame, path); err != nil {
		return fmt.Errorf("save %s: %w", prefix, err)
	}
	s.logger.WithFields(map[string]interface{}{
		"path": path,
		"rows": frame.NumRows(),
	}).Info("Saved option data")
	return nil
}

func (s *Store) loadOptionFrame(prefix string, date time.Time) (*table.Frame, error) {
	path := s.optionPath(prefix, date)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s %s: %w", prefix, path, marketdata.ErrMissingInputFile)
	}
	return table.ReadCSV(path)
}

// framesToBars converts a date,symbol,close frame to typed bars. The symbol
// column is matched case-insensitively. Rows with malformed dates or closes
// are skipped.
func framesToBars(frame *table.Frame) ([]marketdata.PriceBar, error) {
	dateIdx := frame.ColFold("date")
	symbolIdx := frame.ColFold("symbol")
	closeIdx := frame.ColFold("close")
	if dateIdx < 0 || symbolIdx < 0 || closeIdx < 0 {
		return nil, fmt.Errorf("price history missing date/symbol/close columns (have %v)", frame.Columns)
	}

	bars := make([]marketdata.PriceBar, 0, frame.NumRows())
	for _, row := range frame.Rows {
		date, err := time.Parse(marketdata.DateFormat, row[dateIdx])
		if err != nil {
			continue
		}
		closePrice, err := strconv.ParseFloat(row[closeIdx], 64)
		if err != nil {
			continue
		}
		bars = append(bars, marketdata.PriceBar{
			Symbol: row[symbolIdx],
			Date:   date,
			Close:  closePrice,
		})
	}
	return bars, nil
}
