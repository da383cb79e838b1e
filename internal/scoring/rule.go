package scoring

import (
	"fmt"
	"math"

	"github.com/finbright/daytrade/backend/internal/regime"
)

// RuleStrategy is the hand-tuned additive scorer. Each feature group
// contributes a bounded increment; the sum is clamped to [0, 10].
// It needs no model and is always available.
type RuleStrategy struct{}

func NewRuleStrategy() *RuleStrategy {
	return &RuleStrategy{}
}

func (s *RuleStrategy) Name() string { return "rule" }

func (s *RuleStrategy) Score(in Input) Result {
	score, reasons := s.raw(in)
	score = clampScore(score)

	return Result{
		Score:     score,
		RuleScore: score,
		Accepted:  score >= ThresholdFor(in.Mode),
		Reasons:   reasons,
	}
}

func (s *RuleStrategy) raw(in Input) (float64, []string) {
	fs := in.Features
	if fs == nil {
		return 0, []string{"no features"}
	}

	var score float64
	var reasons []string

	add := func(delta float64, format string, args ...interface{}) {
		score += delta
		reasons = append(reasons, fmt.Sprintf("%+.1f "+format, append([]interface{}{delta}, args...)...))
	}

	if g := fs.Momentum; g != nil {
		m := math.Abs(g.Momentum15m)
		switch {
		case m > 0.03:
			add(3.0, "momentum surge %.4f", g.Momentum15m)
		case m > 0.02:
			add(2.5, "strong momentum %.4f", g.Momentum15m)
		case m > 0.01:
			add(1.5, "momentum %.4f", g.Momentum15m)
		case m > 0.005:
			add(0.5, "mild momentum %.4f", g.Momentum15m)
		default:
			add(-1.0, "flat momentum %.4f", g.Momentum15m)
		}
	}

	// Chop overrides everything: no directional edge survives it.
	if in.Regime.Label == regime.HighVolChop {
		add(-2.0, "high-vol chop regime")
		if score < 0 {
			score = 0
		}
		return score, reasons
	}

	switch in.Regime.Label {
	case regime.Trending:
		if in.Regime.Confidence > 0.7 {
			add(3.0, "confirmed trend (conf %.2f)", in.Regime.Confidence)
		} else {
			add(2.0, "trending regime")
		}
	case regime.RangeBound:
		add(0.5, "range-bound regime")
	case regime.Unknown:
		add(-0.5, "unclassified regime")
	}

	if g := fs.Volatility; g != nil {
		switch {
		case g.BreakoutPct > 0.15:
			add(3.0, "decisive breakout %.3f", g.BreakoutPct)
		case g.BreakoutPct > 0.10:
			add(2.5, "breakout %.3f", g.BreakoutPct)
		case g.BreakoutPct > 0.05:
			add(1.5, "breakout forming %.3f", g.BreakoutPct)
		case g.BreakoutPct > 0.02:
			add(0.5, "testing range high %.3f", g.BreakoutPct)
		}
		if g.VolExpansion {
			add(2.0, "volatility expansion")
		}
	}

	if g := fs.Volume; g != nil {
		switch {
		case g.Ratio > 2.5:
			add(2.5, "volume spike %.2fx", g.Ratio)
		case g.Ratio > 2.0:
			add(2.0, "heavy volume %.2fx", g.Ratio)
		case g.Ratio > 1.5:
			add(1.0, "elevated volume %.2fx", g.Ratio)
		case g.Ratio < 0.8:
			add(-1.0, "thin volume %.2fx", g.Ratio)
		}
		if g.ZScore > 2.0 {
			add(1.5, "volume zscore %.2f", g.ZScore)
		}
	}

	if g := fs.Trend; g != nil {
		rsi := g.RSI14
		switch {
		case rsi > 40 && rsi < 60:
			add(2.0, "rsi neutral %.1f", rsi)
		case rsi > 30 && rsi < 70:
			add(1.0, "rsi healthy %.1f", rsi)
		case rsi < 25 || rsi > 75:
			add(-2.0, "rsi extreme %.1f", rsi)
		default:
			add(-1.0, "rsi stretched %.1f", rsi)
		}
	}

	if g := fs.Candles; g != nil {
		switch {
		case g.ThreeWhiteSoldiers:
			add(2.5, "three white soldiers")
		case g.EngulfingBull:
			add(2.0, "bullish engulfing")
		case g.EngulfingBear:
			add(-1.0, "bearish engulfing")
		case g.Hammer:
			add(1.5, "hammer")
		case g.Doji:
			add(-0.5, "doji indecision")
		}
	}

	if g := fs.VWAP; g != nil {
		switch {
		case g.DistPct > 0.02:
			add(1.5, "well above vwap %.3f", g.DistPct)
		case g.DistPct > 0.01:
			add(1.0, "above vwap %.3f", g.DistPct)
		case g.DistPct < -0.01:
			add(-0.5, "below vwap %.3f", g.DistPct)
		}
	}

	if g := fs.Trend; g != nil {
		switch {
		case g.MACDHist > 0.1:
			add(1.5, "macd momentum %.3f", g.MACDHist)
		case g.MACDHist > 0:
			add(0.5, "macd positive %.3f", g.MACDHist)
		case g.MACDHist < -0.1:
			add(-1.0, "macd negative %.3f", g.MACDHist)
		}

		switch {
		case g.PriceAtBBLower:
			add(1.0, "at lower band")
		case g.PriceAtBBUpper:
			add(-0.5, "at upper band")
		case g.BBPosition > 0.3 && g.BBPosition < 0.7:
			add(0.5, "mid band %.2f", g.BBPosition)
		}
	}

	if fs.Session.OpeningHour {
		add(1.0, "opening hour")
	} else if fs.Session.ClosingHour {
		add(0.5, "closing hour")
	} else if fs.Session.Midday {
		add(-0.5, "midday lull")
	}

	if g := fs.Trend; g != nil {
		switch {
		case in.Regime.TrendStrength > 0.03:
			add(1.5, "strong trend %.3f", in.Regime.TrendStrength)
		case in.Regime.TrendStrength > 0.02:
			add(1.0, "trend %.3f", in.Regime.TrendStrength)
		}

		if g.PriceAboveSMA20 && g.PriceAboveSMA50 && g.SMA20AboveSMA50 {
			add(2.0, "aligned moving averages")
		} else if g.PriceAboveSMA20 {
			add(1.0, "above sma20")
		}
	}

	// Low-conviction setups get penalized: weak momentum on thin volume
	// with no reversal pattern is noise, not a trade.
	if fs.Momentum != nil && fs.Volume != nil {
		weak := math.Abs(fs.Momentum.Momentum15m) < 0.005 && fs.Volume.Ratio < 1.2
		if weak && (fs.Candles == nil || !fs.Candles.EngulfingBull) {
			add(-2.0, "low conviction setup")
		}
	}

	return score, reasons
}
