// Package marketdata is the HTTP client for the external daily-price feed.
// Data retrieval is an external collaborator: quantfolio only depends on the
// shape of the responses, not on any particular vendor.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	requestTimeout = 30 * time.Second

	// maxConcurrentFetches bounds parallel feed requests per batch.
	maxConcurrentFetches = 4
)

// PricePoint is one daily close observation from the feed.
type PricePoint struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Close float64 `json:"close"`
}

// Client fetches daily closes from the price feed.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// New creates a new market data client.
func New(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log.With().Str("component", "marketdata_client").Logger(),
	}
}

// DailyCloses fetches the close series for one symbol over a lookback window.
func (c *Client) DailyCloses(ctx context.Context, symbol string, lookbackDays int) ([]PricePoint, error) {
	if symbol == "" {
		return nil, fmt.Errorf("empty symbol")
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -lookbackDays)

	endpoint := fmt.Sprintf("%s/v1/daily?%s", c.baseURL, url.Values{
		"symbol": []string{symbol},
		"start":  []string{start.Format("2006-01-02")},
		"end":    []string{end.Format("2006-01-02")},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", symbol, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price feed request failed for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price feed returned status %d for %s", resp.StatusCode, symbol)
	}

	var points []PricePoint
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil {
		return nil, fmt.Errorf("failed to decode price feed response for %s: %w", symbol, err)
	}

	return points, nil
}

// DailyClosesBatch fetches close series for several symbols concurrently.
// A failed symbol fails the whole batch; the sync job retries on its next run.
func (c *Client) DailyClosesBatch(ctx context.Context, symbols []string, lookbackDays int) (map[string][]PricePoint, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols provided")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	var mu sync.Mutex
	result := make(map[string][]PricePoint, len(symbols))

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			points, err := c.DailyCloses(gctx, symbol, lookbackDays)
			if err != nil {
				return err
			}
			mu.Lock()
			result[symbol] = points
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch price fetch failed: %w", err)
	}

	c.log.Debug().
		Int("num_symbols", len(symbols)).
		Int("lookback_days", lookbackDays).
		Msg("Fetched daily closes")

	return result, nil
}
