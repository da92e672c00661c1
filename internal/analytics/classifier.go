package analytics

import (
	"fmt"
	"math"
)

// Market conditions, ordered roughly from strongest to weakest.
const (
	ConditionStrongBull = "STRONG_BULL"
	ConditionOverbought = "OVERBOUGHT"
	ConditionBull       = "BULL"
	ConditionCorrection = "CORRECTION"
	ConditionWeak       = "WEAK"
	ConditionNeutral    = "NEUTRAL"
)

// Strike placement relative to the current price.
const (
	StrikeITM = "ITM"
	StrikeATM = "ATM"
	StrikeOTM = "OTM"
)

// Recommendation confidence.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// highPriceLevel is where the classifier shaves an extra half point off the
// strike adjustment; a conservative bias at elevated index levels.
const highPriceLevel = 600

// Recommendation is the output of one classification pass: the market
// condition label plus the weekly-call strike the condition maps to.
type Recommendation struct {
	MarketCondition  string  `json:"market_condition"`
	StrikeType       string  `json:"strike_type"`
	StrikeAdjustment float64 `json:"strike_adjustment"`
	SuggestedStrike  float64 `json:"suggested_strike"`
	Rationale        string  `json:"rationale"`
	Confidence       string  `json:"confidence"`
}

// classifierRule pairs a predicate with the recommendation it produces.
// Rules are evaluated in order; the first match wins, so precedence lives
// in the slice, not in nested conditionals.
type classifierRule struct {
	match  func(ind Indicators, change float64) bool
	result Recommendation
}

var classifierRules = []classifierRule{
	{
		match: func(ind Indicators, change float64) bool {
			return change > 1.5 && ind.EMAFast > ind.EMASlow && ind.RSI <= 70
		},
		result: Recommendation{
			MarketCondition:  ConditionStrongBull,
			StrikeType:       StrikeATM,
			StrikeAdjustment: 0,
			Rationale:        "Strong bullish momentum with healthy RSI - ATM for maximum premium",
			Confidence:       ConfidenceHigh,
		},
	},
	{
		match: func(ind Indicators, change float64) bool {
			return change > 1.5 && ind.RSI > 70
		},
		result: Recommendation{
			MarketCondition:  ConditionOverbought,
			StrikeType:       StrikeITM,
			StrikeAdjustment: -2,
			Rationale:        "Overbought conditions suggest pullback risk - ITM for protection",
			Confidence:       ConfidenceHigh,
		},
	},
	{
		match: func(ind Indicators, change float64) bool {
			return change > 0.5 && ind.EMAFast > ind.EMASlow && ind.RSI < 65
		},
		result: Recommendation{
			MarketCondition:  ConditionBull,
			StrikeType:       StrikeATM,
			StrikeAdjustment: 1,
			Rationale:        "Moderate bullish trend with room to run - slight OTM",
			Confidence:       ConfidenceHigh,
		},
	},
	{
		match: func(ind Indicators, change float64) bool {
			return change < -1.5 || ind.RSI < 30
		},
		result: Recommendation{
			MarketCondition:  ConditionCorrection,
			StrikeType:       StrikeITM,
			StrikeAdjustment: -3,
			Rationale:        "Market correction or oversold - deep ITM for protection",
			Confidence:       ConfidenceHigh,
		},
	},
	{
		match: func(ind Indicators, change float64) bool {
			return change < -0.5 || (ind.EMAFast <= ind.EMASlow && ind.RSI < 50)
		},
		result: Recommendation{
			MarketCondition:  ConditionWeak,
			StrikeType:       StrikeITM,
			StrikeAdjustment: -1,
			Rationale:        "Weak market signals - slight ITM for safety",
			Confidence:       ConfidenceMedium,
		},
	},
	{
		match: func(Indicators, float64) bool { return true },
		result: Recommendation{
			MarketCondition:  ConditionNeutral,
			StrikeType:       StrikeATM,
			StrikeAdjustment: 1,
			Rationale:        "Mixed signals suggest neutral positioning - slight OTM",
			Confidence:       ConfidenceMedium,
		},
	},
}

// Classify maps indicator values and the daily percent change to a market
// condition and a strike recommendation. Above highPriceLevel the strike
// adjustment is pulled in an extra half point; the suggested strike snaps
// to the nearest half point.
func Classify(ind Indicators, dailyChangePct, currentPrice float64) Recommendation {
	var rec Recommendation
	for _, rule := range classifierRules {
		if rule.match(ind, dailyChangePct) {
			rec = rule.result
			break
		}
	}

	if currentPrice > highPriceLevel {
		rec.StrikeAdjustment -= 0.5
		rec.Rationale += " (Conservative adjustment for elevated levels)"
	}

	rec.SuggestedStrike = math.Round((currentPrice+rec.StrikeAdjustment)*2) / 2

	return rec
}

// TradingRules renders the commentary lines shown next to a
// recommendation: the RSI zone, EMA trend, momentum and MACD reads plus
// the condition-specific guidance.
func TradingRules(rec Recommendation, ind Indicators, dailyChangePct float64) []string {
	var rules []string

	switch {
	case ind.RSI > 70:
		rules = append(rules, fmt.Sprintf("RSI > 70 (%.1f) = Overbought: use ITM calls for protection", ind.RSI))
	case ind.RSI < 30:
		rules = append(rules, fmt.Sprintf("RSI < 30 (%.1f) = Oversold: market may bounce, consider ATM calls", ind.RSI))
	case ind.RSI > 50:
		rules = append(rules, fmt.Sprintf("RSI %.1f = Bullish zone: safe to sell ATM/OTM calls", ind.RSI))
	default:
		rules = append(rules, fmt.Sprintf("RSI %.1f = Neutral: standard positioning applies", ind.RSI))
	}

	if ind.EMAFast > ind.EMASlow {
		spread := (ind.EMAFast - ind.EMASlow) / ind.EMASlow * 100
		if spread > 1 {
			rules = append(rules, fmt.Sprintf("Strong EMA bullish trend (+%.2f%%): can use ATM calls for max premium", spread))
		} else {
			rules = append(rules, fmt.Sprintf("EMA bullish trend (+%.2f%%): slight OTM acceptable", spread))
		}
	} else if ind.EMASlow != 0 {
		spread := (ind.EMASlow - ind.EMAFast) / ind.EMASlow * 100
		rules = append(rules, fmt.Sprintf("EMA bearish trend (-%.2f%%): use ITM calls for protection", spread))
	}

	switch {
	case math.Abs(dailyChangePct) > 2:
		rules = append(rules, fmt.Sprintf("High volatility (%.2f%%): reduce position size, use protective strikes", dailyChangePct))
	case math.Abs(dailyChangePct) > 1:
		rules = append(rules, fmt.Sprintf("Moderate momentum (%.2f%%): standard position sizing", dailyChangePct))
	default:
		rules = append(rules, fmt.Sprintf("Low volatility (%.2f%%): can be more aggressive with strikes", dailyChangePct))
	}

	switch {
	case ind.MACDLine > 0.5:
		rules = append(rules, fmt.Sprintf("Strong MACD bullish (+%.2f): momentum supports call selling", ind.MACDLine))
	case ind.MACDLine > 0:
		rules = append(rules, fmt.Sprintf("MACD bullish (+%.2f): trend supports strategy", ind.MACDLine))
	case ind.MACDLine > -0.5:
		rules = append(rules, fmt.Sprintf("MACD neutral (%.2f): be cautious with strikes", ind.MACDLine))
	default:
		rules = append(rules, fmt.Sprintf("MACD bearish (%.2f): use protective ITM strikes", ind.MACDLine))
	}

	if guidance, ok := conditionGuidance[rec.MarketCondition]; ok {
		rules = append(rules, guidance)
	}

	return rules
}

var conditionGuidance = map[string]string{
	ConditionStrongBull: "STRONG BULL market: sell ATM calls to maximize premium while trend is strong",
	ConditionOverbought: "OVERBOUGHT conditions: sell ITM calls for protection against pullback",
	ConditionBull:       "BULL market: slight OTM calls to benefit from continued upward momentum",
	ConditionCorrection: "CORRECTION mode: deep ITM calls for maximum downside protection",
	ConditionWeak:       "WEAK market: ITM calls to reduce assignment risk",
	ConditionNeutral:    "NEUTRAL market: slight OTM for optimal risk/reward balance",
}
