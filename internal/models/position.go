package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position status values.
const (
	PositionActive = "active"
	PositionClosed = "closed"
)

// Position represents a LEAPS holding that weekly calls are sold against.
// Positions are never physically removed by the normal workflow; closing a
// position flips its status and keeps the trade ledger for history.
type Position struct {
	ID             int             `json:"id"`
	PositionName   string          `json:"position_name,omitempty"`
	Symbol         string          `json:"symbol"`
	LeapsStrike    decimal.Decimal `json:"leaps_strike"`
	LeapsExpiry    time.Time       `json:"leaps_expiry"`
	LeapsCostBasis decimal.Decimal `json:"leaps_cost_basis"`
	CurrentValue   decimal.Decimal `json:"current_value"`
	CurrentDelta   float64         `json:"current_delta"` // percent, 0-100
	AccountName    string          `json:"account_name,omitempty"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ShortCallLeg is the currently open short call reconstructed from a
// position's trade ledger. It is derived state: recomputed on every load,
// never stored.
type ShortCallLeg struct {
	TradeID          int             `json:"trade_id"`
	Strike           decimal.Decimal `json:"strike"`
	PremiumCollected decimal.Decimal `json:"premium_collected"`
	Expiry           *time.Time      `json:"expiry,omitempty"`
	TradeDate        time.Time       `json:"trade_date"`
}
