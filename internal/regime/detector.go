package regime

import (
	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

// Label classifies the current market character of one symbol.
type Label string

const (
	Trending    Label = "trending"
	RangeBound  Label = "range_bound"
	HighVolChop Label = "high_vol_chop"
	Unknown     Label = "unknown"
)

// Direction of the prevailing trend, meaningful only when trending.
type Direction string

const (
	Up      Direction = "up"
	Down    Direction = "down"
	Neutral Direction = "neutral"
)

// State is the regime snapshot the scorer consumes.
type State struct {
	Label         Label
	Direction     Direction
	Confidence    float64
	TrendStrength float64
	ATRPct        float64
}

// Classification thresholds on SMA20/SMA50 divergence and ATR as a
// fraction of price.
const (
	trendingMin = 0.02
	flatMax     = 0.01
	chopATRMin  = 0.02
	rangeATRMax = 0.015
)

// Detector classifies symbols into regimes from their feature set.
type Detector struct {
	log *logger.Logger
}

func NewDetector(log *logger.Logger) *Detector {
	return &Detector{
		log: log.WithField("component", "regime"),
	}
}

// Detect returns the regime for a feature set. Incomplete features
// yield Unknown with low confidence rather than a guess.
func (d *Detector) Detect(fs *contracts.FeatureSet) State {
	if fs == nil || fs.Trend == nil || fs.Volatility == nil {
		return State{Label: Unknown, Direction: Neutral, Confidence: 0.3}
	}

	ts := fs.Trend.TrendStrength
	atrPct := fs.Volatility.ATR14Pct

	s := State{
		Direction:     Neutral,
		TrendStrength: ts,
		ATRPct:        atrPct,
	}

	switch {
	case ts > trendingMin:
		s.Label = Trending
		s.Confidence = min(1.0, ts*10)
	case atrPct > chopATRMin && ts < flatMax:
		s.Label = HighVolChop
		s.Confidence = 0.3
	case ts < flatMax && atrPct < rangeATRMax:
		s.Label = RangeBound
		s.Confidence = 0.7
	default:
		s.Label = Unknown
		s.Confidence = 0.5
	}

	if s.Label == Trending {
		if fs.Trend.SMA20AboveSMA50 {
			s.Direction = Up
		} else {
			s.Direction = Down
		}
	}

	return s
}
