package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateRiskScore(t *testing.T) {
	tests := []struct {
		name                              string
		volatility, correlation, liquidity int64
		want                              int64
	}{
		{"all zero signals, no liquidity", 0, 0, 0, 3000},
		{"perfect liquidity only", 0, 0, 10000, 0},
		{"max everything", 10000, 10000, 0, 10000},
		{"mixed", 5000, 2000, 8000, 3200},
		{"volatile illiquid", 8000, 4000, 1000, 7100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateRiskScore(tt.volatility, tt.correlation, tt.liquidity)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateRiskScore_Monotonicity(t *testing.T) {
	base := CalculateRiskScore(5000, 5000, 5000)

	// Non-decreasing in volatility and correlation.
	assert.GreaterOrEqual(t, CalculateRiskScore(6000, 5000, 5000), base)
	assert.GreaterOrEqual(t, CalculateRiskScore(5000, 6000, 5000), base)

	// Non-increasing in liquidity.
	assert.LessOrEqual(t, CalculateRiskScore(5000, 5000, 6000), base)
	assert.GreaterOrEqual(t, CalculateRiskScore(5000, 5000, 4000), base)
}

func TestCalculateRiskScore_NoClamping(t *testing.T) {
	// Inputs beyond the bp scale are passed through, not rejected.
	got := CalculateRiskScore(20000, 0, 10000)
	assert.Equal(t, int64(8000), got)

	// Liquidity above the scale drives the inverted term negative.
	got = CalculateRiskScore(0, 0, 20000)
	assert.Equal(t, int64(-3000), got)
}
