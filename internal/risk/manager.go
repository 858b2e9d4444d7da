// Package risk implements the position risk engine: per-asset risk
// classification, user risk profiles and per-position risk assessment with
// threshold breach detection.
package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/defivault/riskcore/internal/auth"
	"github.com/defivault/riskcore/internal/events"
	"github.com/defivault/riskcore/internal/metrics"
)

// Authorizer is the capability surface the manager needs.
type Authorizer interface {
	Require(actor string, role auth.Role) error
	Grant(actor, target string, role auth.Role) error
	Revoke(actor, target string, role auth.Role) error
}

// PriceSource supplies trusted current prices. The oracle is the production
// implementation; its freshness gate is what makes the price trusted here.
type PriceSource interface {
	GetPrice(token string) (decimal.Decimal, error)
}

// Config holds the manager's tunables.
type Config struct {
	// UpdateInterval rate-limits global risk score recomputation.
	UpdateInterval time.Duration
	// Aggregator computes the global score; nil selects the static default.
	Aggregator Aggregator
}

// DefaultConfig returns the manager defaults: hourly global updates with the
// placeholder aggregator.
func DefaultConfig() Config {
	return Config{
		UpdateInterval: time.Hour,
		Aggregator:     StaticAggregator(DefaultGlobalRiskScore),
	}
}

// Manager owns the asset risk registry, the profile store and the position
// risk snapshots. All mutations serialize through a single write lock; each
// call is atomic relative to every other call.
type Manager struct {
	mu        sync.RWMutex
	assets    map[string]AssetRisk
	profiles  map[string]RiskProfile
	positions map[positionKey]PositionRisk

	globalScore      int64
	lastGlobalUpdate time.Time
	updateInterval   time.Duration
	aggregator       Aggregator

	authz   Authorizer
	prices  PriceSource
	pub     events.Publisher
	metrics *metrics.Metrics
	logger  *zap.Logger
	nowFn   func() time.Time
}

// NewManager creates a risk manager.
func NewManager(authz Authorizer, prices PriceSource, pub events.Publisher, m *metrics.Metrics, logger *zap.Logger, cfg Config) *Manager {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = DefaultConfig().UpdateInterval
	}
	if cfg.Aggregator == nil {
		cfg.Aggregator = StaticAggregator(DefaultGlobalRiskScore)
	}

	return &Manager{
		assets:         make(map[string]AssetRisk),
		profiles:       make(map[string]RiskProfile),
		positions:      make(map[positionKey]PositionRisk),
		updateInterval: cfg.UpdateInterval,
		aggregator:     cfg.Aggregator,
		authz:          authz,
		prices:         prices,
		pub:            pub,
		metrics:        m,
		logger:         logger,
		nowFn:          time.Now,
	}
}

// UpdateAssetRisk records the three risk signals for a token and derives its
// score and high-risk flag. Authorized assessors only.
func (m *Manager) UpdateAssetRisk(ctx context.Context, actor, token string, volatilityBP, correlationBP, liquidityBP int64) error {
	if err := m.authz.Require(actor, auth.RoleAssessor); err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidArgument)
	}

	score := CalculateRiskScore(volatilityBP, correlationBP, liquidityBP)

	m.mu.Lock()
	m.assets[token] = AssetRisk{
		Token:         token,
		VolatilityBP:  volatilityBP,
		CorrelationBP: correlationBP,
		LiquidityBP:   liquidityBP,
		RiskScore:     score,
		HighRisk:      score >= HighRiskThreshold,
		UpdatedAt:     m.nowFn(),
	}
	m.mu.Unlock()

	m.logger.Info("asset risk updated",
		zap.String("token", token),
		zap.Int64("volatility_bp", volatilityBP),
		zap.Int64("correlation_bp", correlationBP),
		zap.Int64("liquidity_bp", liquidityBP),
		zap.Int64("risk_score", score))
	m.publish(ctx, events.New(events.TypeAssetRiskUpdated, "", token, map[string]interface{}{
		"risk_score": score,
		"high_risk":  score >= HighRiskThreshold,
	}))
	return nil
}

// GetAssetRisk returns the live classification for a token.
func (m *Manager) GetAssetRisk(token string) (AssetRisk, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	risk, ok := m.assets[token]
	return risk, ok
}

// SetRiskProfile stores the caller's risk limits, enforcing the hard caps.
// Self-service: owner is the acting identity. Overwrites any prior profile.
func (m *Manager) SetRiskProfile(_ context.Context, owner string, limits ProfileLimits) error {
	if owner == "" {
		return fmt.Errorf("%w: empty owner", ErrInvalidArgument)
	}
	if limits.MaxDrawdownBP < 0 || limits.MaxDrawdownBP > MaxDrawdownCapBP {
		return fmt.Errorf("%w: max drawdown %dbp outside [0, %d]", ErrInvalidArgument, limits.MaxDrawdownBP, MaxDrawdownCapBP)
	}
	if limits.MaxLeverageBP < 0 || limits.MaxLeverageBP > MaxLeverageCapBP {
		return fmt.Errorf("%w: max leverage %dbp outside [0, %d]", ErrInvalidArgument, limits.MaxLeverageBP, MaxLeverageCapBP)
	}
	if limits.MaxConcentrationBP < 0 || limits.MaxConcentrationBP > MaxConcentrationCapBP {
		return fmt.Errorf("%w: max concentration %dbp outside [0, %d]", ErrInvalidArgument, limits.MaxConcentrationBP, MaxConcentrationCapBP)
	}
	if limits.MaxCorrelationBP < 0 || limits.MaxCorrelationBP > MaxCorrelationCapBP {
		return fmt.Errorf("%w: max correlation %dbp outside [0, %d]", ErrInvalidArgument, limits.MaxCorrelationBP, MaxCorrelationCapBP)
	}
	if limits.StopLossBP < 0 || limits.TakeProfitBP < 0 {
		return fmt.Errorf("%w: negative stop-loss or take-profit", ErrInvalidArgument)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[owner] = RiskProfile{
		Owner:     owner,
		Limits:    limits,
		Active:    true,
		UpdatedAt: m.nowFn(),
	}
	m.logger.Info("risk profile set", zap.String("owner", owner))
	return nil
}

// GetRiskProfile returns a user's stored profile.
func (m *Manager) GetRiskProfile(owner string) (RiskProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profile, ok := m.profiles[owner]
	return profile, ok
}

// AssessPositionRisk computes and persists the risk snapshot for a
// (user, token) position of the given size, returning the score. Authorized
// assessors only. The at-risk alert is fire-and-forget: the snapshot is
// written and the call succeeds whether or not the alert is delivered.
func (m *Manager) AssessPositionRisk(ctx context.Context, actor, user, token string, amount decimal.Decimal) (int64, error) {
	if err := m.authz.Require(actor, auth.RoleAssessor); err != nil {
		return 0, err
	}
	if user == "" || token == "" {
		return 0, fmt.Errorf("%w: empty user or token", ErrInvalidArgument)
	}
	if !amount.IsPositive() {
		return 0, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.profiles[user]
	if !ok || !profile.Active {
		m.observeAssessment("no_profile")
		return 0, fmt.Errorf("%w: %s", ErrProfileNotSet, user)
	}
	asset, ok := m.assets[token]
	if !ok {
		m.observeAssessment("no_asset_risk")
		return 0, fmt.Errorf("%w: %s", ErrAssetRiskNotAssessed, token)
	}

	price, err := m.prices.GetPrice(token)
	if err != nil {
		m.observeAssessment("price_error")
		return 0, fmt.Errorf("fetch price for %s: %w", token, err)
	}

	value := amount.Mul(price)
	base := CalculateRiskScore(asset.VolatilityBP, asset.CorrelationBP, asset.LiquidityBP)

	multiplier := int64(sizeNeutralPct)
	if value.GreaterThan(decimal.NewFromInt(largePositionValue)) {
		multiplier = sizePenaltyPct
	}
	score := base * multiplier / 100
	atRisk := score >= HighRiskThreshold

	m.positions[positionKey{owner: user, token: token}] = PositionRisk{
		Owner:        user,
		Token:        token,
		Amount:       amount,
		EntryPrice:   price,
		CurrentPrice: price,
		PnL:          decimal.Zero,
		RiskScore:    score,
		AtRisk:       atRisk,
		AssessedAt:   m.nowFn(),
	}
	m.observeAssessment("ok")

	m.logger.Info("position assessed",
		zap.String("user", user),
		zap.String("token", token),
		zap.String("value", value.String()),
		zap.Int64("risk_score", score),
		zap.Bool("at_risk", atRisk))

	if atRisk {
		if m.metrics != nil {
			m.metrics.PositionAlerts.Inc()
		}
		m.publish(ctx, events.New(events.TypePositionRiskAlert, user, token, map[string]interface{}{
			"risk_score": score,
			"amount":     amount.String(),
			"value":      value.String(),
		}))
	}
	return score, nil
}

// MarkPosition refreshes a snapshot's current price and PnL from the price
// source without re-entering the position: amount, entry price, score and
// the at-risk flag are untouched. Authorized assessors only.
func (m *Manager) MarkPosition(ctx context.Context, actor, user, token string) error {
	if err := m.authz.Require(actor, auth.RoleAssessor); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := positionKey{owner: user, token: token}
	pos, ok := m.positions[key]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrPositionNotFound, user, token)
	}

	price, err := m.prices.GetPrice(token)
	if err != nil {
		return fmt.Errorf("fetch price for %s: %w", token, err)
	}

	pos.CurrentPrice = price
	pos.PnL = price.Sub(pos.EntryPrice).Mul(pos.Amount)
	m.positions[key] = pos

	m.logger.Debug("position marked",
		zap.String("user", user),
		zap.String("token", token),
		zap.String("pnl", pos.PnL.String()))
	return nil
}

// GetPositionRisk returns the stored snapshot for a (user, token) pair.
func (m *Manager) GetPositionRisk(user, token string) (PositionRisk, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pos, ok := m.positions[positionKey{owner: user, token: token}]
	return pos, ok
}

// CheckRiskThresholds reports whether the user's position on token is within
// their profile limits. A user with no active profile or no recorded position
// passes. The position's own score is checked against the concentration
// limit; true portfolio-level concentration would need aggregation across
// all of the user's positions and is out of scope here.
func (m *Manager) CheckRiskThresholds(ctx context.Context, user, token string) bool {
	m.mu.RLock()
	profile, hasProfile := m.profiles[user]
	pos, hasPosition := m.positions[positionKey{owner: user, token: token}]
	m.mu.RUnlock()

	if !hasProfile || !profile.Active {
		return true
	}
	if !hasPosition {
		return true
	}

	if pos.PnL.IsNegative() {
		drawdownBP := pos.PnL.Abs().
			Mul(decimal.NewFromInt(BPScale)).
			Div(pos.Amount)
		if drawdownBP.GreaterThan(decimal.NewFromInt(profile.Limits.MaxDrawdownBP)) {
			m.breach(ctx, user, token, "max_drawdown", drawdownBP.Round(0).String())
			return false
		}
	}

	if pos.RiskScore > profile.Limits.MaxConcentrationBP {
		m.breach(ctx, user, token, "max_concentration", fmt.Sprintf("%d", pos.RiskScore))
		return false
	}
	return true
}

func (m *Manager) breach(ctx context.Context, user, token, limit, value string) {
	if m.metrics != nil {
		m.metrics.ThresholdBreaches.Inc()
	}
	m.logger.Warn("risk threshold breached",
		zap.String("user", user),
		zap.String("token", token),
		zap.String("limit", limit),
		zap.String("value", value))
	m.publish(ctx, events.New(events.TypeRiskThresholdBreached, user, token, map[string]interface{}{
		"limit": limit,
		"value": value,
	}))
}

// TriggerEmergencyStop emits an emergency stop signal for a user. It does not
// freeze anything itself; enforcement belongs to an external collaborator.
// Authorized assessors only.
func (m *Manager) TriggerEmergencyStop(ctx context.Context, actor, user, reason string) error {
	if err := m.authz.Require(actor, auth.RoleAssessor); err != nil {
		return err
	}
	if user == "" {
		return fmt.Errorf("%w: empty user", ErrInvalidArgument)
	}

	if m.metrics != nil {
		m.metrics.EmergencyStops.Inc()
	}
	m.logger.Warn("emergency stop triggered",
		zap.String("user", user),
		zap.String("reason", reason))
	m.publish(ctx, events.New(events.TypeEmergencyStop, user, "", map[string]interface{}{
		"reason": reason,
	}))
	return nil
}

// UpdateGlobalRiskScore recomputes the global score through the configured
// aggregation strategy, at most once per update interval. Authorized
// assessors only.
func (m *Manager) UpdateGlobalRiskScore(_ context.Context, actor string) (int64, error) {
	if err := m.authz.Require(actor, auth.RoleAssessor); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFn()
	if !m.lastGlobalUpdate.IsZero() && now.Sub(m.lastGlobalUpdate) < m.updateInterval {
		return 0, fmt.Errorf("%w: next update at %s", ErrTooEarly,
			m.lastGlobalUpdate.Add(m.updateInterval).UTC().Format(time.RFC3339))
	}

	assets := make([]AssetRisk, 0, len(m.assets))
	for _, a := range m.assets {
		assets = append(assets, a)
	}
	positions := make([]PositionRisk, 0, len(m.positions))
	for _, p := range m.positions {
		positions = append(positions, p)
	}

	m.globalScore = m.aggregator.Aggregate(assets, positions)
	m.lastGlobalUpdate = now
	if m.metrics != nil {
		m.metrics.GlobalRiskScore.Set(float64(m.globalScore))
	}

	m.logger.Info("global risk score updated", zap.Int64("score", m.globalScore))
	return m.globalScore, nil
}

// GlobalRiskScore returns the last computed global score.
func (m *Manager) GlobalRiskScore() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.globalScore
}

// SetUpdateInterval changes the global score rate limit. Owner only.
func (m *Manager) SetUpdateInterval(ctx context.Context, actor string, interval time.Duration) error {
	if err := m.authz.Require(actor, auth.RoleOwner); err != nil {
		return err
	}
	if interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidArgument)
	}

	m.mu.Lock()
	m.updateInterval = interval
	m.mu.Unlock()

	m.logger.Info("update interval changed", zap.Duration("interval", interval))
	m.publish(ctx, events.New(events.TypeIntervalChanged, "", "", map[string]interface{}{
		"interval_seconds": int64(interval.Seconds()),
	}))
	return nil
}

// AuthorizeAssessor grants the assessor role to target. Owner only.
func (m *Manager) AuthorizeAssessor(ctx context.Context, actor, target string) error {
	if err := m.authz.Grant(actor, target, auth.RoleAssessor); err != nil {
		return err
	}
	m.publish(ctx, events.New(events.TypeAssessorAuthorized, target, "", nil))
	return nil
}

// DeauthorizeAssessor revokes the assessor role from target. Owner only.
func (m *Manager) DeauthorizeAssessor(ctx context.Context, actor, target string) error {
	if err := m.authz.Revoke(actor, target, auth.RoleAssessor); err != nil {
		return err
	}
	m.publish(ctx, events.New(events.TypeAssessorDeauthorized, target, "", nil))
	return nil
}

func (m *Manager) publish(ctx context.Context, ev events.Event) {
	if err := m.pub.Publish(ctx, ev); err != nil {
		m.logger.Warn("failed to publish risk event",
			zap.Error(err),
			zap.String("type", string(ev.Type)))
	}
}

func (m *Manager) observeAssessment(result string) {
	if m.metrics != nil {
		m.metrics.Assessments.WithLabelValues(result).Inc()
	}
}
