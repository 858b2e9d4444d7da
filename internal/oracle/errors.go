package oracle

import "errors"

var (
	// ErrInvalidArgument is returned for empty tokens, empty feed references
	// or otherwise malformed parameters.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicateToken is returned when registering a token that is already active.
	ErrDuplicateToken = errors.New("token already registered")

	// ErrNotFound is returned when removing a token that is not active.
	ErrNotFound = errors.New("token not found")

	// ErrNotSupported is returned when operating on an inactive or unknown token.
	ErrNotSupported = errors.New("token not supported")

	// ErrLowConfidence is returned when an update's confidence is below the floor.
	ErrLowConfidence = errors.New("price confidence below minimum")

	// ErrInvalidPrice is returned for non-positive prices.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrDeviationTooHigh is returned when an update moves the price past the
	// deviation cap relative to the previous valid record.
	ErrDeviationTooHigh = errors.New("price deviation exceeds cap")

	// ErrStaleFeedData is returned when the external feed's answer is older
	// than the validity window.
	ErrStaleFeedData = errors.New("feed data is stale")

	// ErrFeedUnavailable wraps failures of the external feed call.
	ErrFeedUnavailable = errors.New("price feed unavailable")

	// ErrPriceUnavailable is returned when no valid record exists for a token.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrPriceExpired is returned when the stored record is older than the
	// validity window.
	ErrPriceExpired = errors.New("price expired")
)
