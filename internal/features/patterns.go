package features

import (
	"math"

	"github.com/finbright/daytrade/backend/internal/contracts"
)

// Candlestick pattern predicates over the most recent bars. All
// thresholds follow the classical definitions: wick-to-body ratios
// for reversal candles, body-to-range for marubozu and doji.

func candleBody(b contracts.Bar) float64 {
	return math.Abs(b.Close - b.Open)
}

func upperWick(b contracts.Bar) float64 {
	return b.High - math.Max(b.Open, b.Close)
}

func lowerWick(b contracts.Bar) float64 {
	return math.Min(b.Open, b.Close) - b.Low
}

func isHammer(b contracts.Bar) bool {
	body := candleBody(b)
	if b.High == b.Low || body == 0 {
		return false
	}
	return lowerWick(b) > 2*body && upperWick(b) < body*0.5
}

func isShootingStar(b contracts.Bar) bool {
	body := candleBody(b)
	if b.High == b.Low || body == 0 {
		return false
	}
	return upperWick(b) > 2*body && lowerWick(b) < body*0.5
}

func isDoji(b contracts.Bar) bool {
	totalRange := b.High - b.Low
	if totalRange == 0 {
		return false
	}
	return candleBody(b) < totalRange*0.1
}

func isBullishEngulfing(curr, prev contracts.Bar) bool {
	return prev.Close < prev.Open &&
		curr.Close > curr.Open &&
		curr.Open < prev.Close &&
		curr.Close > prev.Open
}

func isBearishEngulfing(curr, prev contracts.Bar) bool {
	return prev.Close > prev.Open &&
		curr.Close < curr.Open &&
		curr.Open > prev.Close &&
		curr.Close < prev.Open
}

func isMarubozu(b contracts.Bar) bool {
	totalRange := b.High - b.Low
	if totalRange == 0 {
		return false
	}
	return candleBody(b) > totalRange*0.95
}

func isSpinningTop(b contracts.Bar) bool {
	totalRange := b.High - b.Low
	if totalRange == 0 {
		return false
	}
	body := candleBody(b)
	return body < totalRange*0.3 && upperWick(b) > body && lowerWick(b) > body
}

// isThreeWhiteSoldiers: three consecutive rising bullish bodies, each
// closing above its own open and above the prior close.
func isThreeWhiteSoldiers(bars []contracts.Bar) bool {
	if len(bars) < 3 {
		return false
	}
	last3 := bars[len(bars)-3:]

	for _, b := range last3 {
		if b.Close <= b.Open {
			return false
		}
	}
	return last3[1].Close > last3[0].Close && last3[2].Close > last3[1].Close
}

// isThreeBlackCrows is the bearish mirror.
func isThreeBlackCrows(bars []contracts.Bar) bool {
	if len(bars) < 3 {
		return false
	}
	last3 := bars[len(bars)-3:]

	for _, b := range last3 {
		if b.Close >= b.Open {
			return false
		}
	}
	return last3[1].Close < last3[0].Close && last3[2].Close < last3[1].Close
}
