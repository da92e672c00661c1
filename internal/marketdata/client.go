// Package marketdata fetches quotes and closing price history for the
// underlying the dashboard tracks, with a Redis cache in front of the
// provider and a simulator fallback when the provider is unreachable.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrPriceUnavailable is returned when neither the provider nor the cache
// can produce a quote.
var ErrPriceUnavailable = errors.New("price unavailable")

// Quote is a point-in-time price for a symbol
type Quote struct {
	Symbol         string  `json:"symbol"`
	Price          float64 `json:"price"`
	PreviousClose  float64 `json:"previous_close"`
	DailyChangePct float64 `json:"daily_change_pct"`
}

// Client talks to a Polygon-style aggregates API
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a market data API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

type aggsResponse struct {
	Ticker  string `json:"ticker"`
	Results []struct {
		Close float64 `json:"c"`
		Open  float64 `json:"o"`
	} `json:"results"`
}

// FetchQuote retrieves the latest price and previous close for a symbol
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	// Last two daily bars: previous close plus the most recent close.
	closes, err := c.fetchCloses(ctx, symbol, 2)
	if err != nil {
		return nil, err
	}
	if len(closes) < 2 {
		return nil, fmt.Errorf("%w: insufficient bars for %s", ErrPriceUnavailable, symbol)
	}

	prev, last := closes[len(closes)-2], closes[len(closes)-1]
	q := &Quote{
		Symbol:        symbol,
		Price:         last,
		PreviousClose: prev,
	}
	if prev > 0 {
		q.DailyChangePct = (last - prev) / prev * 100
	}
	return q, nil
}

// FetchHistory retrieves up to days of daily closing prices, oldest first
func (c *Client) FetchHistory(ctx context.Context, symbol string, days int) ([]float64, error) {
	return c.fetchCloses(ctx, symbol, days)
}

func (c *Client) fetchCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	end := time.Now()
	// Pad for weekends and holidays so enough trading days come back
	start := end.AddDate(0, 0, -(days*2 + 5))

	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&sort=asc&apiKey=%s",
		c.baseURL, url.PathEscape(symbol),
		start.Format("2006-01-02"), end.Format("2006-01-02"),
		url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d", ErrPriceUnavailable, resp.StatusCode)
	}

	var parsed aggsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	closes := make([]float64, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		closes = append(closes, r.Close)
	}
	if len(closes) > days {
		closes = closes[len(closes)-days:]
	}
	return closes, nil
}
