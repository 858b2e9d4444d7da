// Package oracle is the single source of truth for asset prices. Every read
// is gated on record validity and freshness; callers can never observe a
// stale or invalid price.
package oracle

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

const bpScale = 10000

// Authorizer is the capability surface the oracle needs.
type Authorizer interface {
	Require(actor string, role auth.Role) error
	Grant(actor, target string, role auth.Role) error
	Revoke(actor, target string, role auth.Role) error
}

// RecordSink receives committed price records. Delivery is best effort and
// must never fail the update that produced the record.
type RecordSink interface {
	Store(ctx context.Context, token string, rec PriceRecord)
}

// Config holds the oracle's freshness and sanity policies.
type Config struct {
	// ValidityWindow is how long a stored price stays usable.
	ValidityWindow time.Duration
	// MaxDeviationBP caps the relative change between consecutive updates.
	MaxDeviationBP int64
	// MinConfidence is the per-update confidence floor in percent.
	MinConfidence int64
}

// DefaultConfig returns the policy defaults: one-hour validity, 10%
// deviation cap, 95% confidence floor.
func DefaultConfig() Config {
	return Config{
		ValidityWindow: time.Hour,
		MaxDeviationBP: 1000,
		MinConfidence:  95,
	}
}

// Oracle validates, caches and serves per-token prices.
type Oracle struct {
	mu        sync.RWMutex
	tokens    map[string]*TokenInfo
	prices    map[string]PriceRecord
	supported []string
	index     map[string]int

	authz   Authorizer
	feed    PriceFeed
	pub     events.Publisher
	metrics *metrics.Metrics
	mirror  RecordSink
	logger  *zap.Logger
	cfg     Config
	nowFn   func() time.Time
}

// New creates a price oracle. feed may be nil if UpdatePriceFromFeed is not used.
func New(authz Authorizer, feed PriceFeed, pub events.Publisher, m *metrics.Metrics, logger *zap.Logger, cfg Config) *Oracle {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ValidityWindow <= 0 {
		cfg.ValidityWindow = DefaultConfig().ValidityWindow
	}
	if cfg.MaxDeviationBP <= 0 {
		cfg.MaxDeviationBP = DefaultConfig().MaxDeviationBP
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultConfig().MinConfidence
	}

	return &Oracle{
		tokens:  make(map[string]*TokenInfo),
		prices:  make(map[string]PriceRecord),
		index:   make(map[string]int),
		authz:   authz,
		feed:    feed,
		pub:     pub,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
		nowFn:   time.Now,
	}
}

// AttachMirror sets the committed-record sink. Call before serving traffic.
func (o *Oracle) AttachMirror(sink RecordSink) {
	o.mirror = sink
}

// AddToken registers a token with its feed reference. Owner only.
func (o *Oracle) AddToken(ctx context.Context, actor, token, feedRef string, decimals int32) error {
	if err := o.authz.Require(actor, auth.RoleOwner); err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidArgument)
	}
	if feedRef == "" {
		return fmt.Errorf("%w: empty feed reference", ErrInvalidArgument)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if info, ok := o.tokens[token]; ok && info.Active {
		return fmt.Errorf("%w: %s", ErrDuplicateToken, token)
	}

	o.tokens[token] = &TokenInfo{
		Token:    token,
		FeedRef:  feedRef,
		Decimals: decimals,
		Active:   true,
	}
	o.index[token] = len(o.supported)
	o.supported = append(o.supported, token)
	o.observeTokenCount()

	o.logger.Info("token registered",
		zap.String("token", token),
		zap.String("feed_ref", feedRef),
		zap.Int32("decimals", decimals))
	o.publish(ctx, events.New(events.TypeTokenAdded, "", token, map[string]interface{}{
		"feed_ref": feedRef,
		"decimals": decimals,
	}))
	return nil
}

// RemoveToken deactivates a token. Its price record is retained but becomes
// unreachable from reads. Owner only.
func (o *Oracle) RemoveToken(ctx context.Context, actor, token string) error {
	if err := o.authz.Require(actor, auth.RoleOwner); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	info, ok := o.tokens[token]
	if !ok || !info.Active {
		return fmt.Errorf("%w: %s", ErrNotFound, token)
	}

	info.Active = false

	// Swap-with-last removal from the enumerable set; order among the
	// remaining entries is not preserved.
	pos := o.index[token]
	last := len(o.supported) - 1
	if pos != last {
		moved := o.supported[last]
		o.supported[pos] = moved
		o.index[moved] = pos
	}
	o.supported = o.supported[:last]
	delete(o.index, token)
	o.observeTokenCount()

	o.logger.Info("token removed", zap.String("token", token))
	o.publish(ctx, events.New(events.TypeTokenRemoved, "", token, nil))
	return nil
}

// AuthorizeWriter grants the price-oracle role to target. Owner only.
func (o *Oracle) AuthorizeWriter(ctx context.Context, actor, target string) error {
	if err := o.authz.Grant(actor, target, auth.RoleOracle); err != nil {
		return err
	}
	o.publish(ctx, events.New(events.TypeOracleAuthorized, target, "", nil))
	return nil
}

// DeauthorizeWriter revokes the price-oracle role from target. Owner only.
func (o *Oracle) DeauthorizeWriter(ctx context.Context, actor, target string) error {
	if err := o.authz.Revoke(actor, target, auth.RoleOracle); err != nil {
		return err
	}
	o.publish(ctx, events.New(events.TypeOracleDeauthorized, target, "", nil))
	return nil
}

// UpdatePrice writes a new price for an active token after the confidence,
// positivity and deviation gates. Authorized oracle writers only.
func (o *Oracle) UpdatePrice(ctx context.Context, actor, token string, price decimal.Decimal, confidence int64) error {
	if err := o.authz.Require(actor, auth.RoleOracle); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	info, ok := o.tokens[token]
	if !ok || !info.Active {
		o.observeUpdate("not_supported")
		return fmt.Errorf("%w: %s", ErrNotSupported, token)
	}
	if confidence < o.cfg.MinConfidence {
		o.observeUpdate("low_confidence")
		return fmt.Errorf("%w: %d < %d", ErrLowConfidence, confidence, o.cfg.MinConfidence)
	}
	if !price.IsPositive() {
		o.observeUpdate("invalid_price")
		return fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}

	if prev, ok := o.prices[token]; ok && prev.Valid {
		devBP := price.Sub(prev.Price).Abs().
			Mul(decimal.NewFromInt(bpScale)).
			Div(prev.Price)
		if devBP.GreaterThan(decimal.NewFromInt(o.cfg.MaxDeviationBP)) {
			o.observeUpdate("deviation")
			return fmt.Errorf("%w: %sbp > %dbp", ErrDeviationTooHigh, devBP.Round(0), o.cfg.MaxDeviationBP)
		}
	}

	o.commit(ctx, info, PriceRecord{
		Price:      price,
		Confidence: confidence,
		UpdatedAt:  o.nowFn(),
		Valid:      true,
	})
	return nil
}

// UpdatePriceFromFeed pulls the latest quote from the token's registered
// feed, normalizes it by the registered decimals and stores it with full
// confidence. Authorized oracle writers only. A failed pull leaves the prior
// record untouched.
func (o *Oracle) UpdatePriceFromFeed(ctx context.Context, actor, token string) error {
	if err := o.authz.Require(actor, auth.RoleOracle); err != nil {
		return err
	}
	if o.feed == nil {
		return fmt.Errorf("%w: no feed configured", ErrFeedUnavailable)
	}

	o.mu.RLock()
	info, ok := o.tokens[token]
	if !ok || !info.Active {
		o.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrNotSupported, token)
	}
	feedRef := info.FeedRef
	feedDecimals := info.Decimals
	o.mu.RUnlock()

	// The pull happens outside the lock so a slow feed never stalls reads.
	quote, err := o.feed.Latest(ctx, feedRef)
	if err != nil {
		o.observeUpdate("feed_error")
		return fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	if o.nowFn().Sub(quote.UpdatedAt) > o.cfg.ValidityWindow {
		o.observeUpdate("stale_feed")
		return fmt.Errorf("%w: feed answer from %s", ErrStaleFeedData, quote.UpdatedAt.UTC().Format(time.RFC3339))
	}

	price := quote.Answer.Shift(-feedDecimals)
	if !price.IsPositive() {
		o.observeUpdate("invalid_price")
		return fmt.Errorf("%w: feed answer %s", ErrInvalidPrice, quote.Answer)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// The token may have been removed while the pull was in flight.
	info, ok = o.tokens[token]
	if !ok || !info.Active {
		return fmt.Errorf("%w: %s", ErrNotSupported, token)
	}

	o.commit(ctx, info, PriceRecord{
		Price:      price,
		Confidence: 100,
		UpdatedAt:  o.nowFn(),
		Valid:      true,
	})
	return nil
}

// commit overwrites the token's record. Callers hold the write lock.
func (o *Oracle) commit(ctx context.Context, info *TokenInfo, rec PriceRecord) {
	o.prices[info.Token] = rec
	info.LastUpdate = rec.UpdatedAt
	o.observeUpdate("ok")

	if o.mirror != nil {
		o.mirror.Store(ctx, info.Token, rec)
	}

	o.logger.Debug("price updated",
		zap.String("token", info.Token),
		zap.String("price", rec.Price.String()),
		zap.Int64("confidence", rec.Confidence))
	o.publish(ctx, events.New(events.TypePriceUpdated, "", info.Token, map[string]interface{}{
		"price":      rec.Price.String(),
		"confidence": rec.Confidence,
	}))
}

// GetPrice returns the current price for an active token, failing on missing,
// invalid or expired records.
func (o *Oracle) GetPrice(token string) (decimal.Decimal, error) {
	price, _, err := o.GetPriceWithConfidence(token)
	return price, err
}

// GetPriceWithConfidence returns the current price and its confidence under
// the same validity gate as GetPrice.
func (o *Oracle) GetPriceWithConfidence(token string) (decimal.Decimal, int64, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	info, ok := o.tokens[token]
	if !ok || !info.Active {
		return decimal.Zero, 0, fmt.Errorf("%w: %s", ErrNotSupported, token)
	}
	rec, ok := o.prices[token]
	if !ok || !rec.Valid {
		return decimal.Zero, 0, fmt.Errorf("%w: %s", ErrPriceUnavailable, token)
	}
	if o.nowFn().Sub(rec.UpdatedAt) > o.cfg.ValidityWindow {
		return decimal.Zero, 0, fmt.Errorf("%w: %s last updated %s", ErrPriceExpired, token, rec.UpdatedAt.UTC().Format(time.RFC3339))
	}
	return rec.Price, rec.Confidence, nil
}

// GetTokenValue converts an amount of token into its current value.
func (o *Oracle) GetTokenValue(token string, amount decimal.Decimal) (decimal.Decimal, error) {
	price, err := o.GetPrice(token)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(price), nil
}

// IsPriceValid is the non-failing form of the GetPrice gate.
func (o *Oracle) IsPriceValid(token string) bool {
	_, err := o.GetPrice(token)
	return err == nil
}

// SupportedTokens returns the active token set. Order is not guaranteed
// to be stable across removals.
func (o *Oracle) SupportedTokens() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]string, len(o.supported))
	copy(out, o.supported)
	return out
}

// TokenInfo returns the registration record for a token.
func (o *Oracle) TokenInfo(token string) (TokenInfo, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	info, ok := o.tokens[token]
	if !ok {
		return TokenInfo{}, false
	}
	return *info, true
}

func (o *Oracle) publish(ctx context.Context, ev events.Event) {
	if err := o.pub.Publish(ctx, ev); err != nil {
		o.logger.Warn("failed to publish oracle event",
			zap.Error(err),
			zap.String("type", string(ev.Type)))
	}
}

func (o *Oracle) observeUpdate(result string) {
	if o.metrics != nil {
		o.metrics.PriceUpdates.WithLabelValues(result).Inc()
	}
}

func (o *Oracle) observeTokenCount() {
	if o.metrics != nil {
		o.metrics.SupportedTokens.Set(float64(len(o.supported)))
	}
}
