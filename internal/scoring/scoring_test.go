package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/internal/regime"
	"github.com/finbright/daytrade/backend/pkg/config"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

func testLog() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"})
}

func TestThresholdFor(t *testing.T) {
	assert.Equal(t, 2.5, ThresholdFor(contracts.ModeSafe))
	assert.Equal(t, 2.0, ThresholdFor(contracts.ModeAggressive))
}

func TestRuleScoreStrongSetupAccepted(t *testing.T) {
	in := Input{
		Mode: contracts.ModeSafe,
		Features: &contracts.FeatureSet{
			Momentum: &contracts.MomentumFeatures{Momentum15m: 0.035},
		},
		Regime: regime.State{Label: regime.Trending, Confidence: 0.8},
	}

	res := NewRuleStrategy().Score(in)

	// surge momentum +3.0, confirmed trend +3.0
	assert.InDelta(t, 6.0, res.Score, 1e-9)
	assert.True(t, res.Accepted)
	assert.Equal(t, res.Score, res.RuleScore)
	assert.Nil(t, res.MLProb)
}

func TestRuleScoreChopShortCircuits(t *testing.T) {
	in := Input{
		Mode: contracts.ModeAggressive,
		Features: &contracts.FeatureSet{
			Momentum: &contracts.MomentumFeatures{Momentum15m: 0.05},
			// These would add five more points, but chop exits first.
			Volatility: &contracts.VolatilityFeatures{BreakoutPct: 0.2, VolExpansion: true},
			Volume:     &contracts.VolumeFeatures{Ratio: 3.0, ZScore: 2.5},
		},
		Regime: regime.State{Label: regime.HighVolChop, Confidence: 0.3},
	}

	res := NewRuleStrategy().Score(in)

	// momentum +3.0, chop -2.0, nothing after
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.False(t, res.Accepted, "chop score stays under the aggressive threshold")
}

func TestRuleScoreChopNeverNegative(t *testing.T) {
	in := Input{
		Mode: contracts.ModeAggressive,
		Features: &contracts.FeatureSet{
			Momentum: &contracts.MomentumFeatures{Momentum15m: 0.001},
		},
		Regime: regime.State{Label: regime.HighVolChop},
	}

	res := NewRuleStrategy().Score(in)
	assert.Equal(t, 0.0, res.Score)
}

func TestRuleScoreBoundaryAcceptance(t *testing.T) {
	in := Input{
		Mode: contracts.ModeSafe,
		Features: &contracts.FeatureSet{
			Momentum: &contracts.MomentumFeatures{Momentum15m: 0.012},
			Trend:    &contracts.TrendFeatures{RSI14: 65, MACDHist: -0.05, BBPosition: 0.9},
			Volume:   &contracts.VolumeFeatures{Ratio: 1.0},
			Session:  contracts.SessionFeatures{Midday: true},
		},
		Regime: regime.State{Label: regime.RangeBound, Confidence: 0.7, TrendStrength: 0.005},
	}

	res := NewRuleStrategy().Score(in)

	// momentum +1.5, range +0.5, rsi +1.0, midday -0.5
	assert.InDelta(t, 2.5, res.Score, 1e-9)
	assert.True(t, res.Accepted, "exactly at the safe threshold")

	in.Mode = contracts.ModeAggressive
	assert.True(t, NewRuleStrategy().Score(in).Accepted)
}

func TestRuleScoreClampsAtMax(t *testing.T) {
	in := Input{
		Mode: contracts.ModeSafe,
		Features: &contracts.FeatureSet{
			Momentum:   &contracts.MomentumFeatures{Momentum15m: 0.025},
			Volatility: &contracts.VolatilityFeatures{BreakoutPct: 0.12},
			Volume:     &contracts.VolumeFeatures{Ratio: 2.2},
			Trend: &contracts.TrendFeatures{
				RSI14:           50,
				MACDHist:        0.05,
				BBPosition:      0.5,
				PriceAboveSMA20: true,
				PriceAboveSMA50: true,
				SMA20AboveSMA50: true,
			},
			Candles: &contracts.CandleFeatures{EngulfingBull: true},
			VWAP:    &contracts.VWAPFeatures{DistPct: 0.015},
			Session: contracts.SessionFeatures{OpeningHour: true},
		},
		Regime: regime.State{Label: regime.Trending, Confidence: 0.5, TrendStrength: 0.021},
	}

	res := NewRuleStrategy().Score(in)
	assert.Equal(t, MaxScore, res.Score)
	assert.True(t, res.Accepted)
	assert.NotEmpty(t, res.Reasons)
}

func TestRuleScoreLowConvictionPenalty(t *testing.T) {
	base := Input{
		Mode: contracts.ModeSafe,
		Features: &contracts.FeatureSet{
			Momentum: &contracts.MomentumFeatures{Momentum15m: 0.001},
			Volume:   &contracts.VolumeFeatures{Ratio: 0.9},
		},
		Regime: regime.State{Label: regime.RangeBound, Confidence: 0.7},
	}

	penalized := NewRuleStrategy().Score(base)

	// A bullish engulfing rescues the same weak setup.
	rescued := base
	rescued.Features = &contracts.FeatureSet{
		Momentum: base.Features.Momentum,
		Volume:   base.Features.Volume,
		Candles:  &contracts.CandleFeatures{EngulfingBull: true},
	}
	res := NewRuleStrategy().Score(rescued)

	assert.Greater(t, res.Score, penalized.Score)
}

func TestRuleScoreNoFeatures(t *testing.T) {
	res := NewRuleStrategy().Score(Input{Mode: contracts.ModeSafe})
	assert.Equal(t, 0.0, res.Score)
	assert.False(t, res.Accepted)
}

func TestAggressiveAcceptsWhateverSafeAccepts(t *testing.T) {
	in := Input{
		Mode: contracts.ModeSafe,
		Features: &contracts.FeatureSet{
			Momentum: &contracts.MomentumFeatures{Momentum15m: 0.015},
		},
		Regime: regime.State{Label: regime.Trending, Confidence: 0.5},
	}

	safe := NewRuleStrategy().Score(in)
	in.Mode = contracts.ModeAggressive
	agg := NewRuleStrategy().Score(in)

	assert.Equal(t, safe.Score, agg.Score, "mode changes the threshold, never the score")
	if safe.Accepted {
		assert.True(t, agg.Accepted)
	}
}

func TestPredictKnownValue(t *testing.T) {
	m := &contracts.ModelVersion{
		Version:       "v1",
		FeatureNames:  []string{"x"},
		Weights:       []float64{2.0},
		Bias:          0,
		FeatureMeans:  []float64{1.0},
		FeatureScales: []float64{2.0},
	}

	prob, err := Predict(m, map[string]float64{"x": 3.0})
	require.NoError(t, err)
	// z = 2 * (3-1)/2 = 2
	assert.InDelta(t, 0.8808, prob, 1e-3)
}

func TestPredictMissingFeatureUsesTrainingMean(t *testing.T) {
	m := &contracts.ModelVersion{
		Version:       "v1",
		FeatureNames:  []string{"x"},
		Weights:       []float64{5.0},
		Bias:          0,
		FeatureMeans:  []float64{1.0},
		FeatureScales: []float64{2.0},
	}

	prob, err := Predict(m, map[string]float64{})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, prob, 1e-9)
}

func TestPredictWeightMismatch(t *testing.T) {
	m := &contracts.ModelVersion{
		Version:      "v1",
		FeatureNames: []string{"a", "b"},
		Weights:      []float64{1.0},
	}

	_, err := Predict(m, map[string]float64{"a": 1})
	assert.Error(t, err)
}

func TestBlendedWithoutModelFallsBackToRule(t *testing.T) {
	s := NewBlendedStrategy(NewModelHolder(), 0.5, testLog())

	in := Input{
		Mode: contracts.ModeSafe,
		Features: &contracts.FeatureSet{
			Momentum: &contracts.MomentumFeatures{Momentum15m: 0.035},
		},
	}

	res := s.Score(in)
	assert.Nil(t, res.MLProb)
	assert.Equal(t, res.RuleScore, res.Score)
}

func TestBlendedMixesModelProbability(t *testing.T) {
	fs := &contracts.FeatureSet{
		Momentum: &contracts.MomentumFeatures{Momentum15m: 0.035},
	}

	holder := NewModelHolder()
	holder.Swap(&contracts.ModelVersion{
		Version:      "v7",
		SchemaHash:   fs.SchemaHash(),
		FeatureNames: []string{"momentum_15m"},
		Weights:      []float64{0},
		Bias:         100, // saturates the sigmoid at ~1.0
	})

	s := NewBlendedStrategy(holder, 0.5, testLog())
	res := s.Score(Input{Mode: contracts.ModeSafe, Features: fs})

	require.NotNil(t, res.MLProb)
	assert.InDelta(t, 1.0, *res.MLProb, 1e-6)
	// rule 3.0, blend 0.5*3.0 + 0.5*10.0
	assert.InDelta(t, 6.5, res.Score, 1e-6)
	assert.InDelta(t, 3.0, res.RuleScore, 1e-9)
}

func TestBlendedSchemaMismatchIgnoresModel(t *testing.T) {
	fs := &contracts.FeatureSet{
		Momentum: &contracts.MomentumFeatures{Momentum15m: 0.035},
	}

	holder := NewModelHolder()
	holder.Swap(&contracts.ModelVersion{
		Version:      "v7",
		SchemaHash:   "0000000000000000",
		FeatureNames: []string{"momentum_15m"},
		Weights:      []float64{3},
	})

	s := NewBlendedStrategy(holder, 0.5, testLog())
	res := s.Score(Input{Mode: contracts.ModeSafe, Features: fs})

	assert.Nil(t, res.MLProb)
	assert.Equal(t, res.RuleScore, res.Score)
}

func TestModelHolderSwap(t *testing.T) {
	h := NewModelHolder()
	assert.Nil(t, h.Active())

	m := &contracts.ModelVersion{Version: "v1"}
	h.Swap(m)
	assert.Same(t, m, h.Active())

	h.Swap(nil)
	assert.Nil(t, h.Active())
}
