package analytics

import "leapsdash/internal/models"

var actionIcons = map[string]string{
	models.ActionSell:          "✅",
	models.ActionBuyToClose:    "❌",
	models.ActionRollUp:        "⬆️",
	models.ActionRollDown:      "⬇️",
	models.ActionRollOut:       "➡️",
	models.ActionRollLeaps:     "🔄",
	models.ActionAssignedStock: "📉",
	models.ActionCalledAway:    "📞",
}

// ActionIcon returns the display icon for a trade action, with a generic
// fallback for anything unknown.
func ActionIcon(action string) string {
	if icon, ok := actionIcons[action]; ok {
		return icon
	}
	return "📝"
}
