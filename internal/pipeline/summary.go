package pipeline

import (
	"strconv"
	"time"

	"github.com/skewlabs/skewcapture/internal/table"
)

// TableSummary describes one persisted option table.
type TableSummary struct {
	Records     int
	Underlyings int
	Calls       int
	Puts        int
	MinStrike   float64
	MaxStrike   float64
	MinDays     int
	MaxDays     int
	HasStrikes  bool
	HasDays     bool
}

// OptionsSummary describes the persisted option data for a date.
type OptionsSummary struct {
	Definitions *TableSummary
	Chain       *TableSummary
}

// SummarizeOptions reads the persisted option tables for a date and
// computes headline statistics. A missing table leaves its summary nil.
func (r *Runner) SummarizeOptions(date time.Time) (*OptionsSummary, error) {
	summary := &OptionsSummary{}

	if defs, err := r.store.LoadOptionDefinitions(date); err == nil {
		summary.Definitions = summarizeFrame(defs)
	}
	if chain, err := r.store.LoadOptionChain(date); err == nil {
		summary.Chain = summarizeFrame(chain)
	}
	return summary, nil
}

func summarizeFrame(frame *table.Frame) *TableSummary {
	s := &TableSummary{Records: frame.NumRows()}

	underlyings := make(map[string]bool)
	for _, u := range frame.Column("underlying") {
		if u != "" {
			underlyings[u] = true
		}
	}
	s.Underlyings = len(underlyings)

	for _, t := range frame.Column("option_type") {
		switch t {
		case "C":
			s.Calls++
		case "P":
			s.Puts++
		}
	}

	for _, v := range frame.Column("strike_price_parsed") {
		strike, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		if !s.HasStrikes || strike < s.MinStrike {
			s.MinStrike = strike
		}
		if !s.HasStrikes || strike > s.MaxStrike {
			s.MaxStrike = strike
		}
		s.HasStrikes = true
	}

	for _, v := range frame.Column("days_to_expiry") {
		days, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		if !s.HasDays || days < s.MinDays {
			s.MinDays = days
		}
		if !s.HasDays || days > s.MaxDays {
			s.MaxDays = days
		}
		s.HasDays = true
	}

	return s
}
