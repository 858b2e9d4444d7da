package risk

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetRisk is the live risk classification for one token. One record per
// token, overwritten on each update; history is a collaborator concern.
type AssetRisk struct {
	Token         string    `json:"token"`
	VolatilityBP  int64     `json:"volatility_bp"`
	CorrelationBP int64     `json:"correlation_bp"`
	LiquidityBP   int64     `json:"liquidity_bp"`
	RiskScore     int64     `json:"risk_score"`
	HighRisk      bool      `json:"high_risk"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProfileLimits are the user-configured risk limits, all in basis points.
type ProfileLimits struct {
	MaxDrawdownBP      int64 `json:"max_drawdown_bp"`
	MaxLeverageBP      int64 `json:"max_leverage_bp"`
	MaxConcentrationBP int64 `json:"max_concentration_bp"`
	MaxCorrelationBP   int64 `json:"max_correlation_bp"`
	StopLossBP         int64 `json:"stop_loss_bp"`
	TakeProfitBP       int64 `json:"take_profit_bp"`
}

// RiskProfile is a user's stored limits. One per user, self-configured,
// overwritten on each set. An absent or inactive profile means the user has
// not opted into risk limits.
type RiskProfile struct {
	Owner     string        `json:"owner"`
	Limits    ProfileLimits `json:"limits"`
	Active    bool          `json:"active"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// PositionRisk is the per-(user, token) assessment snapshot. It is valid
// only as of AssessedAt; nothing refreshes it automatically.
type PositionRisk struct {
	Owner        string          `json:"owner"`
	Token        string          `json:"token"`
	Amount       decimal.Decimal `json:"amount"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	PnL          decimal.Decimal `json:"pnl"`
	RiskScore    int64           `json:"risk_score"`
	AtRisk       bool            `json:"at_risk"`
	AssessedAt   time.Time       `json:"assessed_at"`
}

type positionKey struct {
	owner string
	token string
}
