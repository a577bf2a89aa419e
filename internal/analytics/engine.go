// Package analytics computes rolling statistics from price history and
// merges them into daily signal snapshots.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/skewlabs/skewcapture/internal/marketdata"
	"github.com/skewlabs/skewcapture/internal/table"
	"github.com/skewlabs/skewcapture/pkg/logger"
)

// tradingDaysPerYear annualizes daily return volatility.
const tradingDaysPerYear = 252

// Engine computes per-symbol rolling realized volatility and momentum.
// Both operations are pure functions of the input bars: no external state,
// deterministic output, safe to call repeatedly.
type Engine struct {
	realizedWindows []int
	momentumWindows []int
	logger          *logger.Logger
}

// NewEngine creates an Engine with the configured window sizes.
func NewEngine(realizedWindows, momentumWindows []int, log *logger.Logger) *Engine {
	return &Engine{
		realizedWindows: append([]int{}, realizedWindows...),
		momentumWindows: append([]int{}, momentumWindows...),
		logger:          log,
	}
}

// RealizedVolatility computes annualized rolling stdev of log returns for
// each symbol and window. Output columns: date, symbol, rv_<w>... with one
// row per (date, symbol). The first w rows per symbol for window w carry
// the missing marker: a window is only well-formed once w returns exist.
func (e *Engine) RealizedVolatility(bars []marketdata.PriceBar) *table.Frame {
	columns := []string{"date", "symbol"}
	for _, w := range e.realizedWindows {
		columns = append(columns, fmt.Sprintf("rv_%d", w))
	}
	frame := table.New(columns...)

	for _, group := range groupBySymbol(bars) {
		returns := logReturns(group.bars)
		for i, bar := range group.bars {
			row := []string{bar.Date.Format(marketdata.DateFormat), group.symbol}
			for _, w := range e.realizedWindows {
				row = append(row, rollingStdev(returns, i, w))
			}
			frame.AppendRow(row...)
		}
	}
	return frame
}

// Momentum computes total return over each trailing window:
// mom_w(t) = close_t/close_{t-w} - 1. Same missing-head behavior as
// RealizedVolatility.
func (e *Engine) Momentum(bars []marketdata.PriceBar) *table.Frame {
	columns := []string{"date", "symbol"}
	for _, w := range e.momentumWindows {
		columns = append(columns, fmt.Sprintf("mom_%d", w))
	}
	frame := table.New(columns...)

	for _, group := range groupBySymbol(bars) {
		for i, bar := range group.bars {
			row := []string{bar.Date.Format(marketdata.DateFormat), group.symbol}
			for _, w := range e.momentumWindows {
				cell := ""
				if i >= w && group.bars[i-w].Close != 0 {
					mom := bar.Close/group.bars[i-w].Close - 1
					cell = formatStat(mom)
				}
				row = append(row, cell)
			}
			frame.AppendRow(row...)
		}
	}
	return frame
}

type symbolGroup struct {
	symbol string
	bars   []marketdata.PriceBar
}

// groupBySymbol splits bars per symbol and sorts each series ascending by
// date. Groups come back in symbol order for deterministic output.
func groupBySymbol(bars []marketdata.PriceBar) []symbolGroup {
	bySymbol := make(map[string][]marketdata.PriceBar)
	for _, b := range bars {
		bySymbol[b.Symbol] = append(bySymbol[b.Symbol], b)
	}

	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	groups := make([]symbolGroup, 0, len(symbols))
	for _, s := range symbols {
		series := bySymbol[s]
		sort.Slice(series, func(i, j int) bool {
			return series[i].Date.Before(series[j].Date)
		})
		groups = append(groups, symbolGroup{symbol: s, bars: series})
	}
	return groups
}

// logReturns computes r_t = ln(close_t / close_{t-1}) aligned to the bar
// index; index 0 has no return and holds NaN.
func logReturns(bars []marketdata.PriceBar) []float64 {
	returns := make([]float64, len(bars))
	for i := range bars {
		if i == 0 || bars[i-1].Close <= 0 || bars[i].Close <= 0 {
			returns[i] = math.NaN()
			continue
		}
		returns[i] = math.Log(bars[i].Close / bars[i-1].Close)
	}
	return returns
}

// rollingStdev returns the annualized sample stdev of the w returns ending
// at index i, or the missing marker while the head of the series is short.
func rollingStdev(returns []float64, i, w int) string {
	if i < w {
		return ""
	}
	window := returns[i-w+1 : i+1]
	for _, r := range window {
		if math.IsNaN(r) {
			return ""
		}
	}
	sd := stat.StdDev(window, nil)
	return formatStat(sd * math.Sqrt(tradingDaysPerYear))
}

func formatStat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
