package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"leapsdash/internal/models"
)

// Health tiers.
const (
	HealthGood     = "GOOD"
	HealthWarning  = "WARNING"
	HealthCritical = "CRITICAL"
)

// HealthScore is the 3-tier position health read shown on the dashboard.
type HealthScore struct {
	Score int    `json:"score"`
	Tier  string `json:"tier"`
	Label string `json:"label"`
	Badge string `json:"badge"`
}

// ScoreHealth grades a position by delta, LEAPS time remaining and the
// price cushion above the LEAPS strike. Each component contributes points
// on a fixed ladder; the 100-point total maps to GOOD / WARNING / CRITICAL.
func ScoreHealth(pos models.Position, currentPrice float64, now time.Time) HealthScore {
	dte := DaysToExpiry(pos.LeapsExpiry, now)
	strike, _ := pos.LeapsStrike.Float64()
	cushion := currentPrice - strike
	return scoreHealthParts(pos.CurrentDelta, dte, cushion)
}

// scoreHealthParts takes the three components directly; delta is the
// stored percent value (0-100).
func scoreHealthParts(delta float64, dte int, cushion float64) HealthScore {
	score := 0

	switch {
	case delta > 80:
		score += 40
	case delta > 75:
		score += 30
	case delta > 72:
		score += 20
	default:
		score += 10
	}

	switch {
	case dte > 120:
		score += 30
	case dte > 90:
		score += 20
	default:
		score += 10
	}

	switch {
	case cushion > 30:
		score += 30
	case cushion > 20:
		score += 20
	default:
		score += 10
	}

	switch {
	case score > 70:
		return HealthScore{Score: score, Tier: HealthGood, Label: "Healthy", Badge: ""}
	case score > 50:
		return HealthScore{Score: score, Tier: HealthWarning, Label: "Warning", Badge: "warning"}
	default:
		return HealthScore{Score: score, Tier: HealthCritical, Label: "Critical", Badge: "danger"}
	}
}

// Cushion is how far the current price sits above the LEAPS strike.
func Cushion(currentPrice float64, leapsStrike decimal.Decimal) float64 {
	strike, _ := leapsStrike.Float64()
	return currentPrice - strike
}
