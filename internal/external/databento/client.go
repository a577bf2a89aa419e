// Package databento fetches option definitions and chain quotes from the
// Databento Historical API.
package databento

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/skewlabs/skewcapture/internal/table"
	"github.com/skewlabs/skewcapture/pkg/httputil"
	"github.com/skewlabs/skewcapture/pkg/logger"
)

// Client handles communication with the Databento Historical API.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
	dataset    string
}

// NewClient creates a new Databento client. The dataset is typically
// OPRA.PILLAR for US equity options.
func NewClient(httpClient *httputil.Client, baseURL, apiKey, dataset string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
		apiKey:     apiKey,
		dataset:    dataset,
	}
}

// GetDefinitions fetches option definitions for the given underlyings on a
// date. Rows without a strike price (the underlying itself) are dropped and
// an underlying column is attached.
func (c *Client) GetDefinitions(ctx context.Context, underlyings []string, date time.Time) (*table.Frame, error) {
	start := date.Format("2006-01-02")
	end := date.AddDate(0, 0, 1).Format("2006-01-02")

	frame, err := c.getRange(ctx, "definition", underlyings, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch definitions: %w", err)
	}

	if idx := frame.Col("strike_price"); idx >= 0 {
		frame = frame.Filter(func(row []string) bool {
			return idx < len(row) && strings.TrimSpace(row[idx]) != ""
		})
	}
	attachUnderlying(frame)

	c.logger.WithFields(map[string]interface{}{
		"underlyings": len(underlyings),
		"records":     frame.NumRows(),
	}).Info("Fetched option definitions")
	return frame, nil
}

// GetChainCBBO fetches one minute of consolidated BBO quotes at the 20:00
// UTC market close for the given underlyings.
func (c *Client) GetChainCBBO(ctx context.Context, underlyings []string, date time.Time) (*table.Frame, error) {
	day := date.Format("2006-01-02")
	start := day + "T20:00:00Z"
	end := day + "T20:01:00Z"

	frame, err := c.getRange(ctx, "cbbo-1m", underlyings, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch chain cbbo: %w", err)
	}
	attachUnderlying(frame)

	c.logger.WithFields(map[string]interface{}{
		"underlyings": len(underlyings),
		"records":     frame.NumRows(),
	}).Info("Fetched option chain CBBO data")
	return frame, nil
}

// getRange calls timeseries.get_range with CSV encoding and parses the
// response into a frame. Underlyings are addressed in parent notation
// (SYM.OPT) so the whole chain comes back per symbol.
func (c *Client) getRange(ctx context.Context, schema string, underlyings []string, start, end string) (*table.Frame, error) {
	parents := make([]string, len(underlyings))
	for i, u := range underlyings {
		parents[i] = strings.ToUpper(u) + ".OPT"
	}

	params := url.Values{}
	params.Set("dataset", c.dataset)
	params.Set("schema", schema)
	params.Set("symbols", strings.Join(parents, ","))
	params.Set("stype_in", "parent")
	params.Set("start", start)
	params.Set("end", end)
	params.Set("encoding", "csv")

	fullURL := fmt.Sprintf("%s/v0/timeseries.get_range?%s", c.baseURL, params.Encode())

	resp, err := c.httpClient.GetWithAuth(ctx, fullURL, c.apiKey, "")
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV body: %w", err)
	}
	if len(records) == 0 {
		return table.New(), nil
	}

	frame := table.New(records[0]...)
	for _, record := range records[1:] {
		frame.AppendRow(record...)
	}
	return frame, nil
}

// attachUnderlying derives the underlying from the first token of the raw
// option symbol column.
func attachUnderlying(frame *table.Frame) {
	idx := frame.ColFold("symbol")
	if idx < 0 || frame.Empty() {
		return
	}
	underlyings := make([]string, frame.NumRows())
	for i, row := range frame.Rows {
		if idx < len(row) {
			fields := strings.Fields(row[idx])
			if len(fields) > 0 {
				underlyings[i] = fields[0]
			}
		}
	}
	frame.AddColumn("underlying", underlyings)
}
