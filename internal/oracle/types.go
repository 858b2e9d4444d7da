package oracle

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is the stored price for one token. A record is usable only
// while Valid is set and UpdatedAt is within the validity window.
type PriceRecord struct {
	Price      decimal.Decimal `json:"price"`
	Confidence int64           `json:"confidence"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Valid      bool            `json:"valid"`
}

// TokenInfo describes a registered token. Removal flips Active off; the last
// price record is retained but becomes unreachable from reads.
type TokenInfo struct {
	Token      string    `json:"token"`
	FeedRef    string    `json:"feed_ref"`
	Decimals   int32     `json:"decimals"`
	Active     bool      `json:"active"`
	LastUpdate time.Time `json:"last_update"`
}
