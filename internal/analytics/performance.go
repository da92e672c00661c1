package analytics

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"leapsdash/internal/models"
)

// PositionPerformance nets the premium flow of one position's ledger.
type PositionPerformance struct {
	TotalPremiumCollected decimal.Decimal `json:"total_premium_collected"`
	TotalPremiumPaid      decimal.Decimal `json:"total_premium_paid"`
	NetPremium            decimal.Decimal `json:"net_premium"`
	TradesThisMonth       int             `json:"trades_this_month"`
}

// AggregatePerformance sums premium credits (sell) and debits
// (buy_to_close) over a position's non-deleted trades and counts the trades
// dated in now's calendar month. Soft-deleted trades are skipped so the
// function accepts an unfiltered ledger.
func AggregatePerformance(trades []models.Trade, now time.Time) PositionPerformance {
	perf := PositionPerformance{
		TotalPremiumCollected: decimal.Zero,
		TotalPremiumPaid:      decimal.Zero,
		NetPremium:            decimal.Zero,
	}

	month, year := now.Month(), now.Year()
	for _, t := range trades {
		if t.IsDeleted {
			continue
		}
		switch t.Action {
		case models.ActionSell:
			perf.TotalPremiumCollected = perf.TotalPremiumCollected.Add(t.Premium)
		case models.ActionBuyToClose:
			perf.TotalPremiumPaid = perf.TotalPremiumPaid.Add(t.Premium)
		}
		if t.TradeDate.Month() == month && t.TradeDate.Year() == year {
			perf.TradesThisMonth++
		}
	}

	perf.NetPremium = perf.TotalPremiumCollected.Sub(perf.TotalPremiumPaid)
	return perf
}

// NetPnL is a position's net profit: net premium plus the LEAPS' current
// value minus what it cost.
func NetPnL(perf PositionPerformance, currentValue, costBasis decimal.Decimal) decimal.Decimal {
	return perf.NetPremium.Add(currentValue).Sub(costBasis)
}

// PortfolioPerformance rolls per-position performance up to the portfolio.
type PortfolioPerformance struct {
	TotalPremiumCollected decimal.Decimal `json:"total_premium_collected"`
	TotalPremiumPaid      decimal.Decimal `json:"total_premium_paid"`
	NetPremium            decimal.Decimal `json:"net_premium"`
	TotalCurrentValue     decimal.Decimal `json:"total_current_value"`
	TotalNetPnL           decimal.Decimal `json:"total_net_pnl"`
	TradesThisMonth       int             `json:"trades_this_month"`
	Positions             int             `json:"positions"`
}

// AggregatePortfolio sums position performance across the portfolio.
// Aggregation is additive: summing two disjoint trade sets equals summing
// their union.
func AggregatePortfolio(positions []models.Position, perfByID map[int]PositionPerformance) PortfolioPerformance {
	total := PortfolioPerformance{
		TotalPremiumCollected: decimal.Zero,
		TotalPremiumPaid:      decimal.Zero,
		NetPremium:            decimal.Zero,
		TotalCurrentValue:     decimal.Zero,
		TotalNetPnL:           decimal.Zero,
	}

	for _, p := range positions {
		perf, ok := perfByID[p.ID]
		if !ok {
			continue
		}
		total.Positions++
		total.TotalPremiumCollected = total.TotalPremiumCollected.Add(perf.TotalPremiumCollected)
		total.TotalPremiumPaid = total.TotalPremiumPaid.Add(perf.TotalPremiumPaid)
		total.NetPremium = total.NetPremium.Add(perf.NetPremium)
		total.TotalCurrentValue = total.TotalCurrentValue.Add(p.CurrentValue)
		total.TotalNetPnL = total.TotalNetPnL.Add(NetPnL(perf, p.CurrentValue, p.LeapsCostBasis))
	}

	return total
}

// EstimateShortCallValue approximates what an open short call is worth:
// intrinsic value plus a crude linear time-value term. This is a display
// heuristic, not a pricing model; it is reproduced as-is from the
// dashboard it replaces.
func EstimateShortCallValue(currentPrice, strike float64, daysToExpiry int) float64 {
	if daysToExpiry <= 0 {
		return 0
	}

	intrinsic := math.Max(0, currentPrice-strike)
	timeValue := math.Max(0.1, float64(daysToExpiry)/7) * 2

	return intrinsic + timeValue
}

// ShortCallUnrealizedPnL is the paper gain on an open short leg: premium
// collected minus what it would cost to close at the estimated value.
func ShortCallUnrealizedPnL(premiumCollected decimal.Decimal, estimatedValue float64) decimal.Decimal {
	return premiumCollected.Sub(decimal.NewFromFloat(estimatedValue))
}

// DaysToExpiry counts whole days from now until expiry, rounding partial
// days up. Past expiries come back negative.
func DaysToExpiry(expiry, now time.Time) int {
	return int(math.Ceil(expiry.Sub(now).Hours() / 24))
}
