package analytics

import "math"

// IndicatorOptions tunes the indicator periods. Zero values fall back to
// the classic 14/12/26 configuration.
type IndicatorOptions struct {
	RSIPeriod int
	EMAFast   int
	EMASlow   int
}

// DefaultIndicatorOptions returns the standard RSI(14) / EMA(12,26) setup.
func DefaultIndicatorOptions() IndicatorOptions {
	return IndicatorOptions{RSIPeriod: 14, EMAFast: 12, EMASlow: 26}
}

func (o IndicatorOptions) withDefaults() IndicatorOptions {
	d := DefaultIndicatorOptions()
	if o.RSIPeriod <= 0 {
		o.RSIPeriod = d.RSIPeriod
	}
	if o.EMAFast <= 0 {
		o.EMAFast = d.EMAFast
	}
	if o.EMASlow <= 0 {
		o.EMASlow = d.EMASlow
	}
	return o
}

// Indicators is the output of one indicator pass over a price series.
// Values are rounded to two decimals so downstream threshold comparisons
// behave the same everywhere they are displayed.
type Indicators struct {
	RSI      float64 `json:"rsi"`
	EMAFast  float64 `json:"ema_fast"`
	EMASlow  float64 `json:"ema_slow"`
	MACDLine float64 `json:"macd_line"`
}

// ComputeIndicators computes RSI, fast/slow EMA and the MACD line over a
// price series ordered oldest first. Short series do not error: RSI falls
// back to a neutral 50 and EMA to the last price.
func ComputeIndicators(prices []float64, opts IndicatorOptions) Indicators {
	opts = opts.withDefaults()
	emaFast := calculateEMA(prices, opts.EMAFast)
	emaSlow := calculateEMA(prices, opts.EMASlow)
	return Indicators{
		RSI:      calculateRSI(prices, opts.RSIPeriod),
		EMAFast:  emaFast,
		EMASlow:  emaSlow,
		MACDLine: round2(emaFast - emaSlow),
	}
}

// calculateRSI implements Wilder's RSI: simple average gain/loss over the
// first `period` deltas, then smoothed forward one bar at a time. A series
// shorter than period+1 yields the neutral 50; an all-gain series yields
// exactly 100.
func calculateRSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += math.Abs(change)
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		var gain, loss float64
		if change > 0 {
			gain = change
		} else {
			loss = math.Abs(change)
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return round2(100 - (100 / (1 + rs)))
}

// calculateEMA seeds with the simple average of the first `period` prices
// and smooths forward with k = 2/(period+1). A series shorter than the
// period returns the last price unchanged.
func calculateEMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return prices[len(prices)-1]
	}

	k := 2.0 / (float64(period) + 1.0)
	var sum float64
	for _, p := range prices[:period] {
		sum += p
	}
	ema := sum / float64(period)

	for i := period; i < len(prices); i++ {
		ema = prices[i]*k + ema*(1-k)
	}

	return round2(ema)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
