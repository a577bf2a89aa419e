// Package options decodes fixed-width OCC option tickers and enriches
// option tables with the decoded fields.
package options

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/skewlabs/skewcapture/internal/marketdata"
	"github.com/skewlabs/skewcapture/internal/table"
	"github.com/skewlabs/skewcapture/pkg/logger"
)

// symbolLength is the fixed OCC ticker width: 6-char space-padded
// underlying, 6-digit YYMMDD expiry, 1-char C/P, 8-digit strike x1000.
const symbolLength = 21

// Parser decodes OCC option tickers.
type Parser struct {
	logger *logger.Logger
}

// NewParser creates a new Parser.
func NewParser(log *logger.Logger) *Parser {
	return &Parser{logger: log}
}

// Parse decodes a 21-character OCC ticker like "ALGN  240823C00165000".
// Malformed input yields a *marketdata.ParseError carrying the original
// string; callers log and continue, a bad ticker never aborts a batch.
//
// The two-digit year is interpreted as 2000+YY. Contracts expiring before
// 2000 or after 2099 cannot be represented; this matches the wire format
// and is a known limitation.
func (p *Parser) Parse(symbol string) (marketdata.OptionSymbol, error) {
	if len(symbol) != symbolLength {
		return marketdata.OptionSymbol{}, &marketdata.ParseError{
			Symbol: symbol,
			Reason: fmt.Sprintf("length %d, want %d", len(symbol), symbolLength),
		}
	}

	underlying := strings.TrimSpace(symbol[0:6])
	if underlying == "" {
		return marketdata.OptionSymbol{}, &marketdata.ParseError{
			Symbol: symbol,
			Reason: "empty underlying",
		}
	}

	expiry, err := parseExpiry(symbol[6:12])
	if err != nil {
		return marketdata.OptionSymbol{}, &marketdata.ParseError{
			Symbol: symbol,
			Reason: fmt.Sprintf("bad expiry %q", symbol[6:12]),
		}
	}

	var optType marketdata.OptionType
	switch symbol[12] {
	case 'C':
		optType = marketdata.Call
	case 'P':
		optType = marketdata.Put
	default:
		return marketdata.OptionSymbol{}, &marketdata.ParseError{
			Symbol: symbol,
			Reason: fmt.Sprintf("unknown option type %q", string(symbol[12])),
		}
	}

	// Atoi alone would accept a signed field, which Encode cannot
	// round-trip; the wire layout allows digits only.
	strikeRaw := symbol[13:21]
	if !allDigits(strikeRaw) {
		return marketdata.OptionSymbol{}, &marketdata.ParseError{
			Symbol: symbol,
			Reason: fmt.Sprintf("bad strike %q", strikeRaw),
		}
	}
	strikeField, err := strconv.Atoi(strikeRaw)
	if err != nil {
		return marketdata.OptionSymbol{}, &marketdata.ParseError{
			Symbol: symbol,
			Reason: fmt.Sprintf("bad strike %q", strikeRaw),
		}
	}

	return marketdata.OptionSymbol{
		Raw:        symbol,
		Underlying: underlying,
		Expiry:     expiry,
		Type:       optType,
		Strike:     float64(strikeField) / 1000.0,
	}, nil
}

// Encode renders a decoded symbol back to the 21-character wire layout.
// For every well-formed input, Encode(Parse(s)) == s.
func (p *Parser) Encode(sym marketdata.OptionSymbol) string {
	strikeField := int(math.Round(sym.Strike * 1000))
	return fmt.Sprintf("%-6s%s%s%08d",
		sym.Underlying,
		sym.Expiry.Format("060102"),
		sym.Type.String(),
		strikeField,
	)
}

// Result is one element of a batch decode: either a decoded symbol or the
// error for that position.
type Result struct {
	Symbol marketdata.OptionSymbol
	Err    error
}

// DecodeBatch decodes symbols preserving input order and length (1:1), so
// results can be re-attached column-wise to the source table.
func (p *Parser) DecodeBatch(symbols []string) []Result {
	results := make([]Result, len(symbols))
	for i, s := range symbols {
		sym, err := p.Parse(s)
		results[i] = Result{Symbol: sym, Err: err}
	}
	return results
}

// Enrich adds expiry_date, option_type, strike_price_parsed and
// days_to_expiry columns to a frame holding a fixed-width symbol column.
// days_to_expiry is signed whole days relative to referenceDate; negative
// means the contract was already expired on that date. Rows that fail to
// parse keep missing cells and are logged, never dropped.
func (p *Parser) Enrich(frame *table.Frame, referenceDate time.Time) (*table.Frame, error) {
	symIdx := frame.ColFold("symbol")
	if symIdx < 0 {
		return nil, fmt.Errorf("enrich options: symbol column not found")
	}

	refDay := truncateDay(referenceDate)

	expiry := make([]string, frame.NumRows())
	optType := make([]string, frame.NumRows())
	strike := make([]string, frame.NumRows())
	daysToExpiry := make([]string, frame.NumRows())

	failures := 0
	for i, row := range frame.Rows {
		sym, err := p.Parse(row[symIdx])
		if err != nil {
			failures++
			p.logger.WithError(err).Debug("Skipping unparseable option symbol")
			continue
		}
		expiry[i] = sym.Expiry.Format(marketdata.DateFormat)
		optType[i] = sym.Type.String()
		strike[i] = strconv.FormatFloat(sym.Strike, 'f', -1, 64)
		days := int(truncateDay(sym.Expiry).Sub(refDay).Hours() / 24)
		daysToExpiry[i] = strconv.Itoa(days)
	}

	out := frame.Clone()
	out.AddColumn("expiry_date", expiry)
	out.AddColumn("option_type", optType)
	out.AddColumn("strike_price_parsed", strike)
	out.AddColumn("days_to_expiry", daysToExpiry)

	if failures > 0 {
		p.logger.WithFields(map[string]interface{}{
			"failures": failures,
			"total":    frame.NumRows(),
		}).Warn("Some option symbols could not be parsed")
	}
	return out, nil
}

// parseExpiry decodes a YYMMDD expiry with the year mapped to 2000+YY.
// time.Parse's two-digit-year rule would put YY >= 69 in the 1900s.
func parseExpiry(s string) (time.Time, error) {
	if len(s) != 6 || !allDigits(s) {
		return time.Time{}, fmt.Errorf("non-numeric expiry %q", s)
	}
	yy, _ := strconv.Atoi(s[0:2])
	mm, _ := strconv.Atoi(s[2:4])
	dd, _ := strconv.Atoi(s[4:6])

	expiry := time.Date(2000+yy, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	if expiry.Year() != 2000+yy || int(expiry.Month()) != mm || expiry.Day() != dd {
		return time.Time{}, fmt.Errorf("no such date %q", s)
	}
	return expiry, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
