// Package marketdata defines the shared types and errors that flow between
// the vendor clients, the analytics engine, and the persistence layer.
package marketdata

import (
	"errors"
	"fmt"
	"time"
)

// DateFormat is the canonical date format for cell values ("2006-01-02").
const DateFormat = "2006-01-02"

// FileDateFormat is the canonical date stamp for filenames ("20060102").
const FileDateFormat = "20060102"

// ErrMissingInputFile indicates a required CSV input is absent. Fatal for
// the run that needs it.
var ErrMissingInputFile = errors.New("missing input file")

// PriceBar is one daily close for a symbol. Bars are ordered chronologically
// per symbol and immutable once fetched.
type PriceBar struct {
	Symbol string
	Date   time.Time
	Close  float64
}

// OptionType distinguishes calls from puts.
type OptionType byte

const (
	Call OptionType = 'C'
	Put  OptionType = 'P'
)

// String returns "C" or "P".
func (t OptionType) String() string {
	return string(byte(t))
}

// OptionSymbol is a decoded fixed-width OCC option ticker.
type OptionSymbol struct {
	Raw        string
	Underlying string
	Expiry     time.Time
	Type       OptionType
	// Strike is the strike price in dollars (the wire field is scaled x1000).
	Strike float64
}

// ParseError reports a malformed option ticker. It carries the original
// string so callers can log it and continue with the rest of the batch.
type ParseError struct {
	Symbol string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse option symbol %q: %s", e.Symbol, e.Reason)
}
