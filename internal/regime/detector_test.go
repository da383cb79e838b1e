package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/pkg/config"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

func testDetector() *Detector {
	return NewDetector(logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"}))
}

func featureSet(trendStrength, atrPct float64, smaUp bool) *contracts.FeatureSet {
	return &contracts.FeatureSet{
		Trend: &contracts.TrendFeatures{
			TrendStrength:   trendStrength,
			SMA20AboveSMA50: smaUp,
		},
		Volatility: &contracts.VolatilityFeatures{
			ATR14Pct: atrPct,
		},
	}
}

func TestDetectClassification(t *testing.T) {
	tests := []struct {
		name          string
		trendStrength float64
		atrPct        float64
		want          Label
	}{
		{"strong trend", 0.03, 0.015, Trending},
		{"trend just above threshold", 0.021, 0.025, Trending},
		{"violent but directionless", 0.005, 0.03, HighVolChop},
		{"quiet and flat", 0.005, 0.01, RangeBound},
		{"moderate trend, no verdict", 0.015, 0.018, Unknown},
		{"flat with middling vol", 0.005, 0.018, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testDetector().Detect(featureSet(tt.trendStrength, tt.atrPct, true))
			assert.Equal(t, tt.want, s.Label)
			assert.Equal(t, tt.trendStrength, s.TrendStrength)
			assert.Equal(t, tt.atrPct, s.ATRPct)
		})
	}
}

func TestDetectConfidence(t *testing.T) {
	d := testDetector()

	// Trending confidence scales with strength and saturates at 1.
	assert.InDelta(t, 0.3, d.Detect(featureSet(0.03, 0.015, true)).Confidence, 1e-9)
	assert.Equal(t, 1.0, d.Detect(featureSet(0.5, 0.015, true)).Confidence)

	assert.Equal(t, 0.7, d.Detect(featureSet(0.005, 0.01, true)).Confidence)
	assert.Equal(t, 0.3, d.Detect(featureSet(0.005, 0.03, true)).Confidence)
	assert.Equal(t, 0.5, d.Detect(featureSet(0.015, 0.018, true)).Confidence)
}

func TestDetectDirection(t *testing.T) {
	d := testDetector()

	assert.Equal(t, Up, d.Detect(featureSet(0.03, 0.01, true)).Direction)
	assert.Equal(t, Down, d.Detect(featureSet(0.03, 0.01, false)).Direction)

	// Direction only means something inside a trend.
	assert.Equal(t, Neutral, d.Detect(featureSet(0.005, 0.01, true)).Direction)
}

func TestDetectIncompleteFeatures(t *testing.T) {
	d := testDetector()

	s := d.Detect(nil)
	assert.Equal(t, Unknown, s.Label)
	assert.Equal(t, 0.3, s.Confidence)

	s = d.Detect(&contracts.FeatureSet{Trend: &contracts.TrendFeatures{TrendStrength: 0.5}})
	assert.Equal(t, Unknown, s.Label, "missing volatility group must not classify")
}
