package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisMirror copies committed price records into Redis so read-side
// collaborators can consume prices without calling into this process.
// Writes are best effort: a Redis failure is logged and never fails the
// price update, and keys expire with the validity window so a dead mirror
// cannot serve stale prices for longer than the oracle itself would.
type RedisMirror struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisMirror creates a mirror writing under "<prefix>:price:<token>"
// with the given TTL.
func NewRedisMirror(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisMirror {
	if prefix == "" {
		prefix = "riskcore"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisMirror{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

// Store writes the record as JSON.
func (m *RedisMirror) Store(ctx context.Context, token string, rec PriceRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		m.logger.Warn("failed to marshal price record for mirror",
			zap.Error(err),
			zap.String("token", token))
		return
	}

	key := fmt.Sprintf("%s:price:%s", m.prefix, token)
	if err := m.client.Set(ctx, key, data, m.ttl).Err(); err != nil {
		m.logger.Warn("failed to mirror price record",
			zap.Error(err),
			zap.String("token", token))
	}
}
