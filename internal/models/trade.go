package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade actions. Premium is a credit on a sell and a debit on a buy_to_close;
// the remaining actions carry premium only for record keeping.
const (
	ActionSell          = "sell"
	ActionBuyToClose    = "buy_to_close"
	ActionRollLeaps     = "roll_leaps"
	ActionRollUp        = "roll_up"
	ActionRollDown      = "roll_down"
	ActionRollOut       = "roll_out"
	ActionAssignedStock = "assigned_stock"
	ActionCalledAway    = "called_away"
)

// ValidActions lists every accepted trade action.
var ValidActions = []string{
	ActionSell, ActionBuyToClose, ActionRollLeaps, ActionRollUp,
	ActionRollDown, ActionRollOut, ActionAssignedStock, ActionCalledAway,
}

// IsValidAction reports whether action is one of the known trade actions.
func IsValidAction(action string) bool {
	for _, a := range ValidActions {
		if a == action {
			return true
		}
	}
	return false
}

// Trade is an immutable ledger entry for a position. Trades are never
// physically removed; "deleting" a trade sets is_deleted and all reads
// filter on it.
type Trade struct {
	ID         int             `json:"id"`
	PositionID int             `json:"position_id"`
	Action     string          `json:"action"`
	TradeDate  time.Time       `json:"trade_date"`
	Strike     decimal.Decimal `json:"strike"`
	Premium    decimal.Decimal `json:"premium"`
	Expiry     *time.Time      `json:"expiry,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	IsDeleted  bool            `json:"is_deleted"`
	CreatedAt  time.Time       `json:"created_at"`
}

// TradeEvent is a Kafka message carrying a trade fill from an external
// recorder (broker sync, manual entry tool).
type TradeEvent struct {
	EventType string         `json:"event_type"`
	Source    string         `json:"source"`
	Timestamp string         `json:"timestamp"`
	Data      TradeEventData `json:"data"`
}

// TradeEventData contains the fill details. Numeric fields arrive as strings
// and are parsed with decimal to avoid float drift.
type TradeEventData struct {
	PositionID int    `json:"position_id"`
	Action     string `json:"action"`
	TradeDate  string `json:"trade_date"`
	Strike     string `json:"strike"`
	Premium    string `json:"premium"`
	Expiry     string `json:"expiry,omitempty"`
	Notes      string `json:"notes,omitempty"`
}
