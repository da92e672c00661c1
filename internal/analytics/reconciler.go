// Package analytics holds the pure computations behind the dashboard:
// short-call reconciliation, technical indicators, market classification,
// risk scoring, performance aggregation and position health. Every function
// here operates on already-fetched data and has no side effects.
package analytics

import (
	"sort"

	"leapsdash/internal/models"
)

// DefaultSellScanWindow bounds how many recent sells the reconciler
// inspects. Sells older than the window are invisible to reconciliation,
// which matters only on ledgers with more than this many unclosed sells.
const DefaultSellScanWindow = 10

// ReconcileShortCall determines the currently open short call for a
// position from its trade ledger. It scans the most recent `window` sells
// (newest first) and returns the first one with no buy_to_close dated on or
// after it. Soft-deleted trades are ignored. The second return value is
// false when every scanned sell has been closed or there are no sells.
//
// If the ledger holds several overlapping unclosed sells, the most recent
// one wins; the reconciler does not attempt to repair an inconsistent
// ledger. A buy_to_close dated before every sell closes nothing.
func ReconcileShortCall(trades []models.Trade, window int) (models.ShortCallLeg, bool) {
	if window <= 0 {
		window = DefaultSellScanWindow
	}

	var sells []models.Trade
	var closes []models.Trade
	for _, t := range trades {
		if t.IsDeleted {
			continue
		}
		switch t.Action {
		case models.ActionSell:
			sells = append(sells, t)
		case models.ActionBuyToClose:
			closes = append(closes, t)
		}
	}
	if len(sells) == 0 {
		return models.ShortCallLeg{}, false
	}

	// Newest first; same-day sells replay in reverse creation order so the
	// scan stays deterministic.
	sort.SliceStable(sells, func(i, j int) bool {
		if sells[i].TradeDate.Equal(sells[j].TradeDate) {
			return sells[i].ID > sells[j].ID
		}
		return sells[i].TradeDate.After(sells[j].TradeDate)
	})
	if len(sells) > window {
		sells = sells[:window]
	}

	for _, sell := range sells {
		if !hasCloseOnOrAfter(closes, sell) {
			return models.ShortCallLeg{
				TradeID:          sell.ID,
				Strike:           sell.Strike,
				PremiumCollected: sell.Premium,
				Expiry:           sell.Expiry,
				TradeDate:        sell.TradeDate,
			}, true
		}
	}

	return models.ShortCallLeg{}, false
}

func hasCloseOnOrAfter(closes []models.Trade, sell models.Trade) bool {
	for _, c := range closes {
		if !c.TradeDate.Before(sell.TradeDate) {
			return true
		}
	}
	return false
}
