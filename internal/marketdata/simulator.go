package marketdata

import (
	"math"
	"math/rand"
)

// Simulator produces plausible quotes and price history when no provider is
// configured or the provider is down. The dashboard keeps working against
// simulated data rather than erroring out.
type Simulator struct {
	rng       *rand.Rand
	basePrice float64
}

// NewSimulator creates a simulator centered on basePrice. The seed is
// injectable so tests get deterministic series.
func NewSimulator(basePrice float64, seed int64) *Simulator {
	if basePrice <= 0 {
		basePrice = 580
	}
	return &Simulator{
		rng:       rand.New(rand.NewSource(seed)),
		basePrice: basePrice,
	}
}

// Quote produces a simulated quote within a few percent of the base price
func (s *Simulator) Quote(symbol string) *Quote {
	prev := s.basePrice * (1 + (s.rng.Float64()-0.5)*0.02)
	price := prev * (1 + (s.rng.Float64()-0.5)*0.03)

	return &Quote{
		Symbol:         symbol,
		Price:          round2(price),
		PreviousClose:  round2(prev),
		DailyChangePct: round2((price - prev) / prev * 100),
	}
}

// History backfills a closing series behind the current price, oldest
// first. The series trends into the day's move, each point carries a small
// bounded variation, nothing drops below 90% of the base, and the last
// point is pinned to the current price so indicators line up with the
// quote.
func (s *Simulator) History(currentPrice, dailyChangePct float64, points int) []float64 {
	if points <= 0 {
		points = 20
	}
	if currentPrice <= 0 {
		currentPrice = s.basePrice
	}
	if points == 1 {
		return []float64{round2(currentPrice)}
	}

	base := currentPrice / (1 + dailyChangePct/100)
	floor := base * 0.9

	prices := make([]float64, points)
	for i := 0; i < points; i++ {
		progress := float64(i) / float64(points-1)
		trend := base * (dailyChangePct / 100) * progress
		variation := base * (s.rng.Float64() - 0.5) * 0.01
		prices[i] = round2(math.Max(floor, base+trend+variation))
	}
	prices[points-1] = round2(currentPrice)
	return prices
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
