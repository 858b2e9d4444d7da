package risk

import "errors"

var (
	// ErrInvalidArgument is returned for empty identities, non-positive
	// amounts or profile limits exceeding the hard caps.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrProfileNotSet is returned when assessing a position for a user
	// without an active risk profile.
	ErrProfileNotSet = errors.New("risk profile not set")

	// ErrAssetRiskNotAssessed is returned when no asset risk has ever been
	// recorded for the token.
	ErrAssetRiskNotAssessed = errors.New("asset risk not assessed")

	// ErrPositionNotFound is returned when reading a position snapshot that
	// was never written.
	ErrPositionNotFound = errors.New("position not found")

	// ErrTooEarly is returned when the global risk score is recomputed
	// before the update interval has elapsed.
	ErrTooEarly = errors.New("update interval not elapsed")
)
