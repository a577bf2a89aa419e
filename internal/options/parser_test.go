package options

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skewlabs/skewcapture/internal/marketdata"
	"github.com/skewlabs/skewcapture/internal/table"
	"github.com/skewlabs/skewcapture/pkg/logger"
)

func TestParse(t *testing.T) {
	parser := NewParser(logger.NewTest())

	sym, err := parser.Parse("ALGN  240823C00165000")
	require.NoError(t, err)

	assert.Equal(t, "ALGN", sym.Underlying)
	assert.Equal(t, time.Date(2024, 8, 23, 0, 0, 0, 0, time.UTC), sym.Expiry)
	assert.Equal(t, marketdata.Call, sym.Type)
	assert.InDelta(t, 165.00, sym.Strike, 1e-9)
}

func TestParse_Put(t *testing.T) {
	parser := NewParser(logger.NewTest())

	sym, err := parser.Parse("F     251219P00012500")
	require.NoError(t, err)

	assert.Equal(t, "F", sym.Underlying)
	assert.Equal(t, time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC), sym.Expiry)
	assert.Equal(t, marketdata.Put, sym.Type)
	assert.InDelta(t, 12.50, sym.Strike, 1e-9)
}

func TestParse_LateCenturyExpiry(t *testing.T) {
	parser := NewParser(logger.NewTest())

	// YY >= 69 stays in the 2000s; a naive two-digit-year parse would
	// land this contract in 1969.
	sym, err := parser.Parse("ALGN  690823C00165000")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2069, 8, 23, 0, 0, 0, 0, time.UTC), sym.Expiry)
	assert.Equal(t, "ALGN  690823C00165000", parser.Encode(sym))

	sym, err = parser.Parse("SPY   991231P00400000")
	require.NoError(t, err)
	assert.Equal(t, 2099, sym.Expiry.Year())
}

func TestParse_Malformed(t *testing.T) {
	parser := NewParser(logger.NewTest())

	tests := []struct {
		name   string
		symbol string
	}{
		{"too short", "ALGN 240823C0016500"},
		{"too long", "ALGN  240823C001650000"},
		{"bad date", "ALGN  24AB23C00165000"},
		{"unknown type", "ALGN  240823X00165000"},
		{"bad strike", "ALGN  240823C0016500x"},
		{"signed strike", "ALGN  240823C-0165000"},
		{"plus-signed strike", "ALGN  240823C+0165000"},
		{"impossible date", "ALGN  240230C00165000"},
		{"empty underlying", "      240823C00165000"},
		{"empty string", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.symbol)
			require.Error(t, err)

			var parseErr *marketdata.ParseError
			require.True(t, errors.As(err, &parseErr), "expected *ParseError, got %T", err)
			assert.Equal(t, tt.symbol, parseErr.Symbol)
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	parser := NewParser(logger.NewTest())

	symbols := []string{
		"ALGN  240823C00165000",
		"F     251219P00012500",
		"SPY   260116C00500000",
		"BRKB  240920P01234500",
		"A     250101C00000500",
	}

	for _, raw := range symbols {
		sym, err := parser.Parse(raw)
		require.NoError(t, err, "parse %q", raw)
		assert.Equal(t, raw, parser.Encode(sym), "round trip %q", raw)
	}
}

func TestDecodeBatch_PreservesOrderAndLength(t *testing.T) {
	parser := NewParser(logger.NewTest())

	input := []string{
		"ALGN  240823C00165000",
		"not an option symbol",
		"F     251219P00012500",
	}

	results := parser.DecodeBatch(input)
	require.Len(t, results, len(input))

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "ALGN", results[0].Symbol.Underlying)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "F", results[2].Symbol.Underlying)
}

func TestEnrich(t *testing.T) {
	parser := NewParser(logger.NewTest())

	frame := table.New("symbol", "bid")
	frame.AppendRow("ALGN  240823C00165000", "1.25")
	frame.AppendRow("garbage", "0.10")
	frame.AppendRow("F     240809P00012500", "0.55")

	reference := time.Date(2024, 8, 13, 0, 0, 0, 0, time.UTC)
	out, err := parser.Enrich(frame, reference)
	require.NoError(t, err)

	// Input rows survive 1:1.
	require.Equal(t, 3, out.NumRows())

	assert.Equal(t, "2024-08-23", out.Cell(0, out.Col("expiry_date")))
	assert.Equal(t, "C", out.Cell(0, out.Col("option_type")))
	assert.Equal(t, "165", out.Cell(0, out.Col("strike_price_parsed")))
	assert.Equal(t, "10", out.Cell(0, out.Col("days_to_expiry")))

	// Unparseable row keeps missing cells.
	assert.Equal(t, "", out.Cell(1, out.Col("expiry_date")))
	assert.Equal(t, "", out.Cell(1, out.Col("days_to_expiry")))

	// Already expired relative to the reference date: negative days.
	assert.Equal(t, "-4", out.Cell(2, out.Col("days_to_expiry")))
}

func TestEnrich_NoSymbolColumn(t *testing.T) {
	parser := NewParser(logger.NewTest())

	frame := table.New("bid", "ask")
	frame.AppendRow("1.0", "1.1")

	_, err := parser.Enrich(frame, time.Now())
	assert.Error(t, err)
}
