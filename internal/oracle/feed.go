package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// FeedQuote is the raw answer from an external price feed. Answer is
// integer-scaled by the token's registered decimals; the oracle normalizes
// it before storing.
type FeedQuote struct {
	Answer    decimal.Decimal `json:"answer"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PriceFeed supplies the latest quote for a feed reference. Implementations
// must be bounded by the passed context; the oracle never retries a failed
// pull.
type PriceFeed interface {
	Latest(ctx context.Context, ref string) (FeedQuote, error)
}

// HTTPFeed pulls quotes from an HTTP endpoint. The feed reference registered
// with each token is the URL to query; the endpoint answers with a JSON body
// of the form {"answer": "123450000000", "updated_at": 1700000000}.
type HTTPFeed struct {
	client *http.Client
}

// NewHTTPFeed creates an HTTP feed client with the given request timeout.
func NewHTTPFeed(timeout time.Duration) *HTTPFeed {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPFeed{client: &http.Client{Timeout: timeout}}
}

type httpFeedResponse struct {
	Answer    decimal.Decimal `json:"answer"`
	UpdatedAt int64           `json:"updated_at"`
}

// Latest fetches the current quote from the feed URL.
func (f *HTTPFeed) Latest(ctx context.Context, ref string) (FeedQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return FeedQuote{}, fmt.Errorf("build feed request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return FeedQuote{}, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FeedQuote{}, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var body httpFeedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return FeedQuote{}, fmt.Errorf("decode feed response: %w", err)
	}

	return FeedQuote{
		Answer:    body.Answer,
		UpdatedAt: time.Unix(body.UpdatedAt, 0),
	}, nil
}
