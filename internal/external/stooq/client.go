// Package stooq fetches daily price bars from the Stooq CSV endpoint.
package stooq

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/skewlabs/skewcapture/internal/marketdata"
	"github.com/skewlabs/skewcapture/pkg/httputil"
	"github.com/skewlabs/skewcapture/pkg/logger"
)

// Client handles communication with Stooq.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Stooq client.
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
	}
}

// FetchDailyBars fetches daily close bars for one symbol over [from, to].
// The call blocks until the HTTP client returns; there is no retry here,
// the caller decides whether a failed symbol aborts anything.
func (c *Client) FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]marketdata.PriceBar, error) {
	fullURL := fmt.Sprintf("%s/q/d/l/?s=%s.us&d1=%s&d2=%s&i=d",
		c.baseURL,
		strings.ToLower(symbol),
		from.Format(marketdata.FileDateFormat),
		to.Format(marketdata.FileDateFormat),
	)

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	bars, err := c.parseCSV(symbol, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(bars),
	}).Debug("Fetched daily bars")
	return bars, nil
}

// parseCSV parses Stooq's Date,Open,High,Low,Close,Volume CSV. Rows with
// an unparseable date or close are skipped.
func (c *Client) parseCSV(symbol string, r io.Reader) ([]marketdata.PriceBar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("no data rows for %s", symbol)
	}

	header := records[0]
	dateIdx, closeIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "date":
			dateIdx = i
		case "close":
			closeIdx = i
		}
	}
	if dateIdx < 0 || closeIdx < 0 {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	bars := make([]marketdata.PriceBar, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) <= dateIdx || len(record) <= closeIdx {
			continue
		}
		date, err := time.Parse(marketdata.DateFormat, record[dateIdx])
		if err != nil {
			continue
		}
		closePrice, err := strconv.ParseFloat(record[closeIdx], 64)
		if err != nil {
			continue
		}
		bars = append(bars, marketdata.PriceBar{
			Symbol: strings.ToUpper(symbol),
			Date:   date,
			Close:  closePrice,
		})
	}
	return bars, nil
}
