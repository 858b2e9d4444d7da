package risk

// DefaultGlobalRiskScore is the score reported by the default aggregator.
const DefaultGlobalRiskScore = 5000

// Aggregator computes the global risk score from the current asset and
// position state. This is an explicit extension point: the engine ships with
// a constant placeholder and no invented portfolio aggregation formula.
// Swap in a real strategy when one is specified.
type Aggregator interface {
	Aggregate(assets []AssetRisk, positions []PositionRisk) int64
}

type staticAggregator struct {
	score int64
}

// StaticAggregator returns an Aggregator that always reports score.
func StaticAggregator(score int64) Aggregator {
	return staticAggregator{score: score}
}

func (a staticAggregator) Aggregate([]AssetRisk, []PositionRisk) int64 {
	return a.score
}
