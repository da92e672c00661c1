package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leapsdash/internal/models"
)

func perfTrade(action string, date time.Time, premium float64) models.Trade {
	return models.Trade{
		Action:    action,
		TradeDate: date,
		Premium:   decimal.NewFromFloat(premium),
	}
}

func TestAggregatePerformance(t *testing.T) {
	now := time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC)
	trades := []models.Trade{
		perfTrade(models.ActionSell, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), 4.50),
		perfTrade(models.ActionSell, time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC), 3.25),
		perfTrade(models.ActionBuyToClose, time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC), 1.10),
	}

	perf := AggregatePerformance(trades, now)
	assert.True(t, perf.TotalPremiumCollected.Equal(decimal.NewFromFloat(7.75)))
	assert.True(t, perf.TotalPremiumPaid.Equal(decimal.NewFromFloat(1.10)))
	assert.True(t, perf.NetPremium.Equal(decimal.NewFromFloat(6.65)))
	assert.Equal(t, 2, perf.TradesThisMonth)
}

func TestAggregatePerformance_RollActionsDoNotMovePremiumTotals(t *testing.T) {
	now := time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC)
	trades := []models.Trade{
		perfTrade(models.ActionRollUp, time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC), 2.00),
	}

	perf := AggregatePerformance(trades, now)
	assert.True(t, perf.NetPremium.IsZero())
	assert.Equal(t, 1, perf.TradesThisMonth, "non-premium actions still count toward activity")
}

func TestAggregatePerformance_SkipsDeleted(t *testing.T) {
	now := time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC)
	deleted := perfTrade(models.ActionSell, now, 9.99)
	deleted.IsDeleted = true
	trades := []models.Trade{
		deleted,
		perfTrade(models.ActionSell, now, 2.00),
	}

	perf := AggregatePerformance(trades, now)
	assert.True(t, perf.TotalPremiumCollected.Equal(decimal.NewFromFloat(2.00)))
	assert.Equal(t, 1, perf.TradesThisMonth)
}

func TestAggregatePerformance_MonthBoundaryUsesMonthAndYear(t *testing.T) {
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	trades := []models.Trade{
		perfTrade(models.ActionSell, time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC), 1.00),
	}

	perf := AggregatePerformance(trades, now)
	assert.Equal(t, 0, perf.TradesThisMonth, "same month of a prior year does not count")
}

func TestAggregatePerformance_Empty(t *testing.T) {
	perf := AggregatePerformance(nil, time.Now())
	assert.True(t, perf.TotalPremiumCollected.IsZero())
	assert.True(t, perf.NetPremium.IsZero())
	assert.Equal(t, 0, perf.TradesThisMonth)
}

func TestNetPnL(t *testing.T) {
	perf := PositionPerformance{NetPremium: decimal.NewFromFloat(6.65)}
	pnl := NetPnL(perf, decimal.NewFromInt(9500), decimal.NewFromInt(8200))
	assert.True(t, pnl.Equal(decimal.NewFromFloat(1306.65)))
}

// Summing two disjoint ledgers must equal summing their union.
func TestAggregatePerformance_Additive(t *testing.T) {
	now := time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC)
	a := []models.Trade{
		perfTrade(models.ActionSell, now, 4.50),
		perfTrade(models.ActionBuyToClose, now, 1.00),
	}
	b := []models.Trade{
		perfTrade(models.ActionSell, now.AddDate(0, -1, 0), 3.00),
	}

	union := append(append([]models.Trade{}, a...), b...)
	pa, pb, pu := AggregatePerformance(a, now), AggregatePerformance(b, now), AggregatePerformance(union, now)

	assert.True(t, pa.NetPremium.Add(pb.NetPremium).Equal(pu.NetPremium))
	assert.True(t, pa.TotalPremiumCollected.Add(pb.TotalPremiumCollected).Equal(pu.TotalPremiumCollected))
	assert.Equal(t, pa.TradesThisMonth+pb.TradesThisMonth, pu.TradesThisMonth)
}

func TestAggregatePortfolio(t *testing.T) {
	positions := []models.Position{
		{ID: 1, CurrentValue: decimal.NewFromInt(9500), LeapsCostBasis: decimal.NewFromInt(8200)},
		{ID: 2, CurrentValue: decimal.NewFromInt(4100), LeapsCostBasis: decimal.NewFromInt(4600)},
	}
	perfByID := map[int]PositionPerformance{
		1: {
			TotalPremiumCollected: decimal.NewFromInt(10),
			NetPremium:            decimal.NewFromInt(10),
			TradesThisMonth:       2,
		},
		2: {
			TotalPremiumCollected: decimal.NewFromInt(5),
			TotalPremiumPaid:      decimal.NewFromInt(2),
			NetPremium:            decimal.NewFromInt(3),
			TradesThisMonth:       1,
		},
	}

	total := AggregatePortfolio(positions, perfByID)
	require.Equal(t, 2, total.Positions)
	assert.True(t, total.TotalPremiumCollected.Equal(decimal.NewFromInt(15)))
	assert.True(t, total.NetPremium.Equal(decimal.NewFromInt(13)))
	assert.True(t, total.TotalCurrentValue.Equal(decimal.NewFromInt(13600)))
	// (10 + 9500 - 8200) + (3 + 4100 - 4600)
	assert.True(t, total.TotalNetPnL.Equal(decimal.NewFromInt(813)))
	assert.Equal(t, 3, total.TradesThisMonth)
}

func TestAggregatePortfolio_SkipsPositionsWithoutPerformance(t *testing.T) {
	positions := []models.Position{
		{ID: 1, CurrentValue: decimal.NewFromInt(9500)},
		{ID: 7, CurrentValue: decimal.NewFromInt(1000)},
	}
	perfByID := map[int]PositionPerformance{
		1: {NetPremium: decimal.NewFromInt(10)},
	}

	total := AggregatePortfolio(positions, perfByID)
	assert.Equal(t, 1, total.Positions)
	assert.True(t, total.TotalCurrentValue.Equal(decimal.NewFromInt(9500)))
}

func TestEstimateShortCallValue(t *testing.T) {
	// OTM: intrinsic 0, time value (14/7)*2 = 4.
	assert.InDelta(t, 4.0, EstimateShortCallValue(580, 590, 14), 1e-9)

	// ITM: intrinsic 10 plus time value.
	assert.InDelta(t, 14.0, EstimateShortCallValue(600, 590, 14), 1e-9)
}

func TestEstimateShortCallValue_ShortDTEFloor(t *testing.T) {
	// dte=1: 1/7 > 0.1, so time value is 2/7.
	assert.InDelta(t, 2.0/7.0, EstimateShortCallValue(580, 590, 1), 1e-9)
}

func TestEstimateShortCallValue_Expired(t *testing.T) {
	assert.Zero(t, EstimateShortCallValue(600, 590, 0))
	assert.Zero(t, EstimateShortCallValue(600, 590, -5))
}

func TestShortCallUnrealizedPnL(t *testing.T) {
	pnl := ShortCallUnrealizedPnL(decimal.NewFromFloat(4.50), 2.0)
	assert.True(t, pnl.Equal(decimal.NewFromFloat(2.50)))

	pnl = ShortCallUnrealizedPnL(decimal.NewFromFloat(4.50), 14.0)
	assert.True(t, pnl.Equal(decimal.NewFromFloat(-9.50)))
}

func TestDaysToExpiry(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 10, DaysToExpiry(now.AddDate(0, 0, 10), now))

	// Partial days round up.
	assert.Equal(t, 1, DaysToExpiry(now.Add(6*time.Hour), now))

	assert.Equal(t, -5, DaysToExpiry(now.AddDate(0, 0, -5), now))
}
