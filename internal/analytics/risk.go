package analytics

import "github.com/shopspring/decimal"

// RiskLevel is an ordered severity scale. Comparisons go through the rank,
// never through string ordering.
type RiskLevel int

const (
	RiskLow RiskLevel = iota + 1
	RiskModerate
	RiskHigh
	RiskExtreme
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "LOW_RISK"
	case RiskModerate:
		return "MODERATE_RISK"
	case RiskHigh:
		return "HIGH_RISK"
	case RiskExtreme:
		return "EXTREME_RISK"
	default:
		return "UNKNOWN"
	}
}

// MarshalText lets RiskLevel serialize as its label in JSON responses.
func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// MarketRisk is the market-condition risk vocabulary. It is deliberately a
// separate scale from RiskLevel (it has a LOW_MODERATE step the deployment
// scale lacks); the two are reconciled only through the action matrix.
type MarketRisk string

const (
	MarketRiskLow         MarketRisk = "LOW_RISK"
	MarketRiskLowModerate MarketRisk = "LOW_MODERATE_RISK"
	MarketRiskModerate    MarketRisk = "MODERATE_RISK"
	MarketRiskHigh        MarketRisk = "HIGH_RISK"
	MarketRiskExtreme     MarketRisk = "EXTREME_RISK"
)

// RiskAction is the portfolio-level recommended action.
type RiskAction string

const (
	ActionMaintainPositions     RiskAction = "MAINTAIN_POSITIONS"
	ActionReduceExposure        RiskAction = "REDUCE_EXPOSURE"
	ActionSignificantReduction  RiskAction = "SIGNIFICANT_REDUCTION"
	ActionDefensivePosition     RiskAction = "DEFENSIVE_POSITION"
	ActionMonitorClosely        RiskAction = "MONITOR_CLOSELY"
)

// marketRiskMap maps a market condition label to its risk read. OVERBOUGHT
// deliberately reads as high risk for call sellers even though the tape is
// green.
var marketRiskMap = map[string]MarketRisk{
	ConditionStrongBull: MarketRiskLow,
	ConditionBull:       MarketRiskLowModerate,
	ConditionNeutral:    MarketRiskModerate,
	ConditionOverbought: MarketRiskHigh,
	ConditionWeak:       MarketRiskHigh,
	ConditionCorrection: MarketRiskExtreme,
}

type riskPair struct {
	deployment RiskLevel
	market     MarketRisk
}

// riskActionMatrix is intentionally sparse. Unmapped combinations fall
// through to MONITOR_CLOSELY; completing the matrix would change behavior
// for pairs the original never decided on.
var riskActionMatrix = map[riskPair]RiskAction{
	{RiskLow, MarketRiskLow}:           ActionMaintainPositions,
	{RiskLow, MarketRiskLowModerate}:   ActionMaintainPositions,
	{RiskModerate, MarketRiskModerate}: ActionReduceExposure,
	{RiskHigh, MarketRiskHigh}:         ActionSignificantReduction,
	{RiskExtreme, MarketRiskExtreme}:   ActionDefensivePosition,
}

// PortfolioRisk combines capital deployment and market condition into a
// recommended action.
type PortfolioRisk struct {
	DeploymentRisk RiskLevel  `json:"deployment_risk"`
	MarketRisk     MarketRisk `json:"market_risk"`
	Action         RiskAction `json:"recommended_action"`
}

// AssessPortfolioRisk scores the portfolio from its deployment percentage
// and the current market condition label.
func AssessPortfolioRisk(deploymentPct float64, marketCondition string) PortfolioRisk {
	dep := deploymentRisk(deploymentPct)
	mkt, ok := marketRiskMap[marketCondition]
	if !ok {
		mkt = MarketRiskModerate
	}

	action, ok := riskActionMatrix[riskPair{dep, mkt}]
	if !ok {
		action = ActionMonitorClosely
	}

	return PortfolioRisk{DeploymentRisk: dep, MarketRisk: mkt, Action: action}
}

func deploymentRisk(pct float64) RiskLevel {
	switch {
	case pct < 30:
		return RiskLow
	case pct < 50:
		return RiskModerate
	case pct < 70:
		return RiskHigh
	default:
		return RiskExtreme
	}
}

// PositionRisk scores a single position from its delta and time to expiry.
type PositionRisk struct {
	DeltaRisk   RiskLevel `json:"delta_risk"`
	TimeRisk    RiskLevel `json:"time_risk"`
	OverallRisk RiskLevel `json:"overall_risk"`
}

// AssessPositionRisk scores a position. Delta is on the 0-1 scale (a stored
// percent delta must be divided by 100 first). Overall risk is the worse of
// the two components.
func AssessPositionRisk(delta float64, daysToExpiry int) PositionRisk {
	dr := deltaRisk(delta)
	tr := timeRisk(daysToExpiry)
	overall := dr
	if tr > overall {
		overall = tr
	}
	return PositionRisk{DeltaRisk: dr, TimeRisk: tr, OverallRisk: overall}
}

func deltaRisk(delta float64) RiskLevel {
	switch {
	case delta > 0.80:
		return RiskLow
	case delta > 0.70:
		return RiskModerate
	case delta > 0.60:
		return RiskHigh
	default:
		return RiskExtreme
	}
}

func timeRisk(daysToExpiry int) RiskLevel {
	switch {
	case daysToExpiry > 120:
		return RiskLow
	case daysToExpiry > 90:
		return RiskModerate
	case daysToExpiry > 60:
		return RiskHigh
	default:
		return RiskExtreme
	}
}

// CanRoll reports whether a position is allowed to roll. Extreme overall
// risk blocks the automated roll path.
func CanRoll(risk PositionRisk) bool {
	return risk.OverallRisk != RiskExtreme
}

// Deployment returns the deployed-capital percentage of an account. The
// percentage is only meaningful for a positive balance; ok is false
// otherwise and callers must not score it.
func Deployment(deployedCapital, balance decimal.Decimal) (float64, bool) {
	if balance.Sign() <= 0 {
		return 0, false
	}
	pct, _ := deployedCapital.Div(balance).Mul(decimal.NewFromInt(100)).Float64()
	return pct, true
}
