package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"leapsdash/internal/config"
)

// Client wraps the Redis client with market data caching operations
type Client struct {
	rdb *redis.Client
}

// New creates a new Redis client
func New(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Quote caching

// Quote is a cached market quote
type Quote struct {
	Symbol         string    `json:"symbol"`
	Price          float64   `json:"price"`
	PreviousClose  float64   `json:"previous_close"`
	DailyChangePct float64   `json:"daily_change_pct"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SetQuote caches a quote with TTL
func (c *Client) SetQuote(ctx context.Context, q *Quote, ttl time.Duration) error {
	key := fmt.Sprintf("market:%s:quote", q.Symbol)
	jsonData, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}
	return c.rdb.Set(ctx, key, jsonData, ttl).Err()
}

// GetQuote retrieves a cached quote
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	key := fmt.Sprintf("market:%s:quote", symbol)
	jsonData, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var q Quote
	if err := json.Unmarshal(jsonData, &q); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote: %w", err)
	}
	return &q, nil
}

// Price history caching

// SetPriceHistory caches a closing price series with TTL
func (c *Client) SetPriceHistory(ctx context.Context, symbol string, prices []float64, ttl time.Duration) error {
	key := fmt.Sprintf("market:%s:history", symbol)
	jsonData, err := json.Marshal(prices)
	if err != nil {
		return fmt.Errorf("failed to marshal price history: %w", err)
	}
	return c.rdb.Set(ctx, key, jsonData, ttl).Err()
}

// GetPriceHistory retrieves a cached closing price series
func (c *Client) GetPriceHistory(ctx context.Context, symbol string) ([]float64, error) {
	key := fmt.Sprintf("market:%s:history", symbol)
	jsonData, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var prices []float64
	if err := json.Unmarshal(jsonData, &prices); err != nil {
		return nil, fmt.Errorf("failed to unmarshal price history: %w", err)
	}
	return prices, nil
}

// Indicator caching

// SetIndicators caches a computed indicator set keyed by indicator name
func (c *Client) SetIndicators(ctx context.Context, symbol string, values map[string]float64, ttl time.Duration) error {
	key := fmt.Sprintf("market:%s:indicators", symbol)
	jsonData, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal indicators: %w", err)
	}
	return c.rdb.Set(ctx, key, jsonData, ttl).Err()
}

// GetIndicators retrieves a cached indicator set
func (c *Client) GetIndicators(ctx context.Context, symbol string) (map[string]float64, error) {
	key := fmt.Sprintf("market:%s:indicators", symbol)
	jsonData, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var values map[string]float64
	if err := json.Unmarshal(jsonData, &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal indicators: %w", err)
	}
	return values, nil
}
