// Package barchart loads the daily stock screener CSV exported by the
// Barchart screener.
package barchart

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skewlabs/skewcapture/internal/marketdata"
	"github.com/skewlabs/skewcapture/internal/table"
	"github.com/skewlabs/skewcapture/pkg/logger"
)

// Loader reads screener output for a date. It tries the Barchart export
// first and falls back to a plain signals_<YYYYMMDD>.csv under the raw
// signals directory.
type Loader struct {
	dataDir         string
	filenamePattern string
	rawSignalsDir   string
	logger          *logger.Logger
}

// NewLoader creates a screener CSV loader.
func NewLoader(dataDir, filenamePattern, rawSignalsDir string, log *logger.Logger) *Loader {
	return &Loader{
		dataDir:         dataDir,
		filenamePattern: filenamePattern,
		rawSignalsDir:   rawSignalsDir,
		logger:          log,
	}
}

// LoadForDate reads the screener CSV for the given date. When neither the
// Barchart export nor the fallback file exists the run cannot proceed and
// marketdata.ErrMissingInputFile is returned.
func (l *Loader) LoadForDate(date time.Time) (*table.Frame, error) {
	barchartPath := filepath.Join(l.dataDir, l.filename(date))
	if _, err := os.Stat(barchartPath); err == nil {
		l.logger.WithField("path", barchartPath).Info("Loading Barchart screener data")
		return table.ReadCSV(barchartPath)
	}

	fallback := filepath.Join(l.rawSignalsDir,
		fmt.Sprintf("signals_%s.csv", date.Format(marketdata.FileDateFormat)))
	if _, err := os.Stat(fallback); err == nil {
		l.logger.WithField("path", fallback).Info("Loading fallback signals data")
		return table.ReadCSV(fallback)
	}

	return nil, fmt.Errorf("no screener data for %s (tried %s, %s): %w",
		date.Format(marketdata.DateFormat), barchartPath, fallback,
		marketdata.ErrMissingInputFile)
}

// filename expands the {MM}/{DD}/{YYYY} placeholders of the configured
// pattern, e.g. stocks-screener-skewcapture-screener-08-04-2025.csv.
func (l *Loader) filename(date time.Time) string {
	name := l.filenamePattern
	name = strings.ReplaceAll(name, "{MM}", date.Format("01"))
	name = strings.ReplaceAll(name, "{DD}", date.Format("02"))
	name = strings.ReplaceAll(name, "{YYYY}", date.Format("2006"))
	return name
}
