package scoring

import (
	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/internal/regime"
)

// Scores live on a 0-10 scale. A symbol is accepted when its blended
// score clears the mode threshold.
const (
	MaxScore = 10.0

	ThresholdSafe       = 2.5
	ThresholdAggressive = 2.0
)

// ThresholdFor returns the acceptance threshold for a trading mode.
func ThresholdFor(mode contracts.Mode) float64 {
	if mode == contracts.ModeAggressive {
		return ThresholdAggressive
	}
	return ThresholdSafe
}

// Input is everything a strategy may consult for one symbol. The
// feature set is frozen; strategies never recompute indicators.
type Input struct {
	Features *contracts.FeatureSet
	Regime   regime.State
	Mode     contracts.Mode
}

// Result is the scoring verdict for one symbol.
type Result struct {
	Score     float64
	RuleScore float64
	MLProb    *float64 // nil when no model participated
	Accepted  bool
	Reasons   []string
}

// Strategy scores one candidate symbol.
type Strategy interface {
	Name() string
	Score(in Input) Result
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > MaxScore {
		return MaxScore
	}
	return s
}
