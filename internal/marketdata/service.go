package marketdata

import (
	"context"
	"log"
	"time"

	"leapsdash/internal/analytics"
	"leapsdash/internal/metrics"
	"leapsdash/internal/redis"
)

// HistoryDays is the closing series length fetched for indicator math
const HistoryDays = 20

// Service layers a Redis cache and simulator fallback over the provider.
// Lookup order is cache, provider, simulator; provider results are written
// back to the cache.
type Service struct {
	client    *Client
	cache     *redis.Client // may be nil, cache is best effort
	simulator *Simulator
	symbol    string
	cacheTTL  time.Duration
}

// NewService creates the market data service for one tracked symbol
func NewService(client *Client, cache *redis.Client, simulator *Simulator, symbol string, cacheTTL time.Duration) *Service {
	return &Service{
		client:    client,
		cache:     cache,
		simulator: simulator,
		symbol:    symbol,
		cacheTTL:  cacheTTL,
	}
}

// Symbol returns the tracked symbol
func (s *Service) Symbol() string {
	return s.symbol
}

// Quote returns the current quote. Simulated reports whether the value came
// from the simulator rather than the provider or cache.
func (s *Service) Quote(ctx context.Context) (q *Quote, simulated bool) {
	if s.cache != nil {
		if cached, err := s.cache.GetQuote(ctx, s.symbol); err == nil {
			metrics.QuoteFetches.WithLabelValues("cache").Inc()
			return &Quote{
				Symbol:         cached.Symbol,
				Price:          cached.Price,
				PreviousClose:  cached.PreviousClose,
				DailyChangePct: cached.DailyChangePct,
			}, false
		}
	}

	if s.client != nil {
		quote, err := s.client.FetchQuote(ctx, s.symbol)
		if err == nil {
			s.cacheQuote(ctx, quote)
			metrics.QuoteFetches.WithLabelValues("provider").Inc()
			return quote, false
		}
		log.Printf("Quote fetch failed for %s, using simulator: %v", s.symbol, err)
	}

	metrics.QuoteFetches.WithLabelValues("simulator").Inc()
	return s.simulator.Quote(s.symbol), true
}

// History returns the closing price series for indicator math, oldest first.
func (s *Service) History(ctx context.Context) (prices []float64, simulated bool) {
	if s.cache != nil {
		if cached, err := s.cache.GetPriceHistory(ctx, s.symbol); err == nil && len(cached) > 0 {
			return cached, false
		}
	}

	if s.client != nil {
		history, err := s.client.FetchHistory(ctx, s.symbol, HistoryDays)
		if err == nil && len(history) > 0 {
			if s.cache != nil {
				if err := s.cache.SetPriceHistory(ctx, s.symbol, history, s.cacheTTL); err != nil {
					log.Printf("Failed to cache price history: %v", err)
				}
			}
			return history, false
		}
		log.Printf("History fetch failed for %s, using simulator: %v", s.symbol, err)
	}

	// Backfill a series consistent with whatever quote the dashboard shows.
	q, _ := s.Quote(ctx)
	return s.simulator.History(q.Price, q.DailyChangePct, HistoryDays), true
}

// Cache field names for the indicator set.
const (
	indRSI     = "rsi"
	indEMAFast = "ema_fast"
	indEMASlow = "ema_slow"
	indMACD    = "macd_line"
)

// Indicators returns the indicator set for the tracked symbol, computed over
// History and cached alongside the quote. Simulated reports whether the
// underlying series came from the simulator; simulated values are not cached.
func (s *Service) Indicators(ctx context.Context, opts analytics.IndicatorOptions) (analytics.Indicators, bool) {
	if s.cache != nil {
		if values, err := s.cache.GetIndicators(ctx, s.symbol); err == nil {
			if ind, ok := indicatorsFromCache(values); ok {
				return ind, false
			}
		}
	}

	history, simulated := s.History(ctx)
	ind := analytics.ComputeIndicators(history, opts)

	if s.cache != nil && !simulated {
		values := map[string]float64{
			indRSI:     ind.RSI,
			indEMAFast: ind.EMAFast,
			indEMASlow: ind.EMASlow,
			indMACD:    ind.MACDLine,
		}
		if err := s.cache.SetIndicators(ctx, s.symbol, values, s.cacheTTL); err != nil {
			log.Printf("Failed to cache indicators: %v", err)
		}
	}

	return ind, simulated
}

func indicatorsFromCache(values map[string]float64) (analytics.Indicators, bool) {
	rsi, okRSI := values[indRSI]
	fast, okFast := values[indEMAFast]
	slow, okSlow := values[indEMASlow]
	macd, okMACD := values[indMACD]
	if !okRSI || !okFast || !okSlow || !okMACD {
		return analytics.Indicators{}, false
	}
	return analytics.Indicators{RSI: rsi, EMAFast: fast, EMASlow: slow, MACDLine: macd}, true
}

func (s *Service) cacheQuote(ctx context.Context, q *Quote) {
	if s.cache == nil {
		return
	}
	err := s.cache.SetQuote(ctx, &redis.Quote{
		Symbol:         q.Symbol,
		Price:          q.Price,
		PreviousClose:  q.PreviousClose,
		DailyChangePct: q.DailyChangePct,
		UpdatedAt:      time.Now(),
	}, s.cacheTTL)
	if err != nil {
		log.Printf("Failed to cache quote: %v", err)
	}
}
