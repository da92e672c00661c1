// Package scheduler runs the recurring dashboard jobs.
package scheduler

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"leapsdash/internal/marketdata"
)

// Scheduler owns the cron runner and the jobs it drives.
type Scheduler struct {
	cron    *cron.Cron
	market  *marketdata.Service
	baseCtx context.Context
}

// New creates a scheduler over the given market data service.
func New(market *marketdata.Service, baseCtx context.Context) *Scheduler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Scheduler{
		cron:    cron.New(),
		market:  market,
		baseCtx: baseCtx,
	}
}

// AddMorningUpdate schedules the market-open refresh: fetch a fresh quote
// and price history so the first dashboard load of the day hits a warm
// cache.
func (s *Scheduler) AddMorningUpdate(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.MorningUpdate(s.baseCtx)
	})
	return err
}

// MorningUpdate refreshes quotes and warms the caches.
func (s *Scheduler) MorningUpdate(ctx context.Context) {
	quote, simulated := s.market.Quote(ctx)
	if simulated {
		log.Printf("Morning update: provider unavailable, simulated quote for %s", s.market.Symbol())
	} else {
		log.Printf("Morning update: %s at %.2f (%.2f%%)", quote.Symbol, quote.Price, quote.DailyChangePct)
	}

	if _, simulated := s.market.History(ctx); simulated {
		log.Printf("Morning update: price history simulated for %s", s.market.Symbol())
	}
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	log.Println("Scheduler started")
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}
