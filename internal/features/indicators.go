package features

import (
	"math"

	"github.com/finbright/daytrade/backend/internal/contracts"
)

// Plain indicator math over chronological bars (oldest first). Each
// function answers for the most recent bar only; rolling series are
// recomputed per window, matching the batch cadence of the engine.

func closes(bars []contracts.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// sma averages the last period values. Falls back to the full mean
// when fewer values exist.
func sma(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) < period {
		period = len(values)
	}

	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// ema seeds with the oldest value and folds forward over the window.
func ema(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) < period {
		return sma(values, len(values))
	}

	window := values[len(values)-period:]
	multiplier := 2.0 / (float64(period) + 1.0)

	out := window[0]
	for _, v := range window[1:] {
		out = v*multiplier + out*(1-multiplier)
	}
	return out
}

// macd returns the MACD line (EMA12 - EMA26), its 9-period signal and
// the histogram. The signal needs a MACD series, so the line is
// rebuilt over the last ten prefixes; windows are short enough that
// the extra passes are negligible.
func macd(values []float64) (line, signal, hist float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}

	points := 10
	if points > len(values) {
		points = len(values)
	}

	series := make([]float64, 0, points)
	for i := len(values) - points; i < len(values); i++ {
		prefix := values[:i+1]
		series = append(series, ema(prefix, 12)-ema(prefix, 26))
	}

	line = series[len(series)-1]
	signal = ema(series, 9)
	return line, signal, line - signal
}

// rsi over the last period deltas. Neutral 50 when history is short.
func rsi(values []float64, period int) float64 {
	if len(values) < period+1 {
		return 50.0
	}

	var gains, losses float64
	window := values[len(values)-period-1:]
	for i := 1; i < len(window); i++ {
		change := window[i] - window[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// atr averages the true range over the last period bars.
func atr(bars []contracts.Bar, period int) float64 {
	if len(bars) < 2 {
		return 0
	}

	start := len(bars) - period
	if start < 1 {
		start = 1
	}

	var sum float64
	var n int
	for i := start; i < len(bars); i++ {
		tr := trueRange(bars[i], bars[i-1].Close)
		sum += tr
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func trueRange(bar contracts.Bar, prevClose float64) float64 {
	tr := bar.High - bar.Low
	if d := math.Abs(bar.High - prevClose); d > tr {
		tr = d
	}
	if d := math.Abs(bar.Low - prevClose); d > tr {
		tr = d
	}
	return tr
}

// stdev is the population standard deviation.
func stdev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

// realizedVol annualizes the stdev of log returns over the last
// window values (252 trading days).
func realizedVol(values []float64, window int) float64 {
	if len(values) < window {
		return 0
	}

	tail := values[len(values)-window:]
	returns := make([]float64, 0, window-1)
	for i := 1; i < len(tail); i++ {
		if tail[i-1] > 0 && tail[i] > 0 {
			returns = append(returns, math.Log(tail[i]/tail[i-1]))
		}
	}
	return stdev(returns) * math.Sqrt(252)
}

// bollinger returns upper, middle, lower, width and the position of
// price within the band for a 20-period 2-sigma band.
func bollinger(values []float64, period int, price float64) (upper, middle, lower, width, position float64) {
	if len(values) < period {
		upper = price * 1.02
		middle = price
		lower = price * 0.98
		width = 0.04
		position = 0.5
		return
	}

	middle = sma(values, period)
	sd := stdev(values[len(values)-period:])
	upper = middle + 2*sd
	lower = middle - 2*sd

	if middle > 0 {
		width = (upper - lower) / middle
	}
	if span := upper - lower; span > 0 {
		position = (price - lower) / span
	} else {
		position = 0.5
	}
	return
}

// stochastic returns %K for the last bar and %D as the mean of the
// last three %K values.
func stochastic(bars []contracts.Bar, period int) (k, d float64) {
	if len(bars) < period {
		return 50, 50
	}

	kAt := func(end int) float64 {
		window := bars[end-period : end]
		high := window[0].High
		low := window[0].Low
		for _, b := range window[1:] {
			if b.High > high {
				high = b.High
			}
			if b.Low < low {
				low = b.Low
			}
		}
		if high == low {
			return 50
		}
		return (bars[end-1].Close - low) / (high - low) * 100
	}

	k = kAt(len(bars))

	var sum float64
	var n int
	for i := 0; i < 3 && len(bars)-i >= period; i++ {
		sum += kAt(len(bars) - i)
		n++
	}
	if n == 0 {
		return k, k
	}
	return k, sum / float64(n)
}

// sessionVWAP is the volume-weighted typical price over the bars.
func sessionVWAP(bars []contracts.Bar) float64 {
	var pv, vol float64
	for _, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3
		pv += typical * b.Volume
		vol += b.Volume
	}
	if vol == 0 {
		return 0
	}
	return pv / vol
}

// percentile returns the p-th percentile (0-100) using nearest-rank
// over a copy of the input.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
