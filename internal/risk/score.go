package risk

// BPScale is the basis-point scale: 10000bp = 100%.
const BPScale = 10000

// HighRiskThreshold marks an asset or position as high risk. The threshold
// is inclusive: a score of exactly 7000 is high risk.
const HighRiskThreshold = 7000

// Score weights in percent. Liquidity contributes inverted: lower liquidity
// raises the score.
const (
	weightVolatility  = 40
	weightCorrelation = 30
	weightLiquidity   = 30
)

// Hard caps on self-configured profile limits, in basis points.
const (
	MaxDrawdownCapBP      = 2000
	MaxLeverageCapBP      = 1000
	MaxConcentrationCapBP = 5000
	MaxCorrelationCapBP   = 8000
)

// Large-position step penalty: positions whose value crosses the threshold
// get their score scaled by 120/100. A step function, not a curve.
const (
	sizePenaltyPct     = 120
	sizeNeutralPct     = 100
	largePositionValue = 1_000_000
)

// CalculateRiskScore combines the three asset risk signals into a single
// basis-point score: 0.40*volatility + 0.30*correlation + 0.30*(10000-liquidity).
//
// Inputs are expected in [0, 10000] but are deliberately not clamped or
// rejected here; out-of-range inputs produce out-of-range scores. Callers
// that accept untrusted input validate before calling.
func CalculateRiskScore(volatilityBP, correlationBP, liquidityBP int64) int64 {
	return (weightVolatility*volatilityBP +
		weightCorrelation*correlationBP +
		weightLiquidity*(BPScale-liquidityBP)) / 100
}
