package features

import (
	"time"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

// Extractor computes the frozen feature snapshot for one symbol.
// Deterministic: the same bars and asOf always yield the same set.
type Extractor struct {
	log *logger.Logger
}

// NewExtractor creates a feature extractor.
func NewExtractor(log *logger.Logger) *Extractor {
	return &Extractor{
		log: log.WithField("component", "features"),
	}
}

// Extract builds a FeatureSet from 1-minute and 5-minute bars.
//
// Leakage contract: bars after asOf are discarded before any
// computation, so every feature is derivable from data available at
// decision time. Groups that need more history than is present stay
// nil; they are never zero-filled.
func (e *Extractor) Extract(symbol string, bars1m, bars5m []contracts.Bar, asOf time.Time) *contracts.FeatureSet {
	b1 := truncateAfter(bars1m, asOf)
	b5 := truncateAfter(bars5m, asOf)

	fs := &contracts.FeatureSet{
		Symbol:     symbol,
		AsOf:       asOf,
		BarCount1m: len(b1),
		BarCount5m: len(b5),
		Session:    sessionFeatures(asOf),
	}

	if len(b5) >= 2 {
		fs.Candles = candleFeatures(b5)
	}
	if len(b5) >= 3 {
		fs.Momentum = momentumFeatures(b5, b1)
	}

	if len(b5) >= contracts.MinFeatureBars {
		price := b5[len(b5)-1].Close
		cl := closes(b5)

		fs.Trend = trendFeatures(b5, cl, price)
		fs.Volatility = volatilityFeatures(b5, cl, price)
		fs.Volume = volumeFeatures(b5)
		fs.VWAP = vwapFeatures(b5, price, asOf)
	} else {
		e.log.WithFields(map[string]interface{}{
			"symbol":  symbol,
			"bars_5m": len(b5),
			"minimum": contracts.MinFeatureBars,
		}).Debug("Insufficient history, partial features")
	}

	fs.Complete = fs.Momentum != nil && fs.Trend != nil &&
		fs.Volatility != nil && fs.Volume != nil

	return fs
}

// truncateAfter drops bars newer than asOf. Bars arrive in
// chronological order, so a single scan from the tail suffices.
func truncateAfter(bars []contracts.Bar, asOf time.Time) []contracts.Bar {
	end := len(bars)
	for end > 0 && bars[end-1].Timestamp.After(asOf) {
		end--
	}
	return bars[:end]
}

func momentumFeatures(b5, b1 []contracts.Bar) *contracts.MomentumFeatures {
	cl5 := closes(b5)
	n := len(cl5)

	f := &contracts.MomentumFeatures{}

	// 15 minutes = 3 five-minute bars back
	if cl5[n-3] > 0 {
		f.Momentum15m = (cl5[n-1] - cl5[n-3]) / cl5[n-3]
	}
	if cl5[n-2] > 0 {
		f.Momentum5m = (cl5[n-1] - cl5[n-2]) / cl5[n-2]
	}
	if n >= 10 && cl5[n-10] > 0 {
		f.ROC10 = (cl5[n-1] - cl5[n-10]) / cl5[n-10]
	}

	if len(b1) >= 2 {
		cl1 := closes(b1)
		m := len(cl1)
		if cl1[m-2] > 0 {
			f.Momentum1m = (cl1[m-1] - cl1[m-2]) / cl1[m-2]
		}
	}

	return f
}

func trendFeatures(b5 []contracts.Bar, cl []float64, price float64) *contracts.TrendFeatures {
	f := &contracts.TrendFeatures{
		SMA5:  sma(cl, 5),
		SMA10: sma(cl, 10),
		SMA20: sma(cl, 20),
		SMA50: sma(cl, 50),
		EMA12: ema(cl, 12),
		EMA26: ema(cl, 26),
		RSI14: rsi(cl, 14),
	}

	f.MACD, f.MACDSignal, f.MACDHist = macd(cl)

	f.BBUpper, f.BBMiddle, f.BBLower, f.BBWidth, f.BBPosition = bollinger(cl, 20, price)
	f.StochK, f.StochD = stochastic(b5, 14)

	if price > 0 {
		f.TrendStrength = abs(f.SMA20-f.SMA50) / price
	}

	f.PriceAboveSMA20 = price > f.SMA20
	f.PriceAboveSMA50 = price > f.SMA50
	f.SMA20AboveSMA50 = f.SMA20 > f.SMA50
	f.PriceAtBBUpper = price >= f.BBUpper*0.995
	f.PriceAtBBLower = price <= f.BBLower*1.005

	return f
}

func volatilityFeatures(b5 []contracts.Bar, cl []float64, price float64) *contracts.VolatilityFeatures {
	f := &contracts.VolatilityFeatures{
		RealizedVol20: realizedVol(cl, 20),
		RealizedVol10: realizedVol(cl, 10),
		ATR14:         atr(b5, 14),
	}
	if f.RealizedVol10 == 0 {
		f.RealizedVol10 = f.RealizedVol20
	}

	if price > 0 {
		f.ATR14Pct = f.ATR14 / price
		f.ATR5Pct = atr(b5, 5) / price

		last := b5[len(b5)-1]
		f.TrueRangePct = (last.High - last.Low) / price
	}

	// Breakout measured against the range of the prior 20 bars,
	// excluding the current one so a fresh high actually registers.
	prior := b5[:len(b5)-1]
	if len(prior) >= 20 {
		window := prior[len(prior)-20:]
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

		if span := high - low; span > 0 {
			f.BreakoutPct = (price - high) / span
			f.BreakdownPct = (price - low) / span
		}

		if len(prior) >= 60 {
			window60 := prior[len(prior)-60:]
			high60 := window60[0].High
			low60 := window60[0].Low
			for _, b := range window60[1:] {
				if b.High > high60 {
					high60 = b.High
				}
				if b.Low < low60 {
					low60 = b.Low
				}
			}
			if span60 := high60 - low60; span60 > 0 {
				f.RangeCompression = (high - low) / span60
			} else {
				f.RangeCompression = 1.0
			}
		} else {
			f.RangeCompression = 1.0
		}
	} else {
		f.RangeCompression = 1.0
	}

	// Volatility expansion: current ATR% above the 80th percentile of
	// its own recent history.
	if len(b5) >= 50 {
		history := make([]float64, 0, len(b5)-14)
		for end := 15; end <= len(b5)-1; end++ {
			p := b5[end-1].Close
			if p > 0 {
				history = append(history, atr(b5[:end], 14)/p)
			}
		}
		if len(history) > 0 {
			f.VolExpansion = f.ATR14Pct > percentile(history, 80)
		}
	}

	return f
}

func volumeFeatures(b5 []contracts.Bar) *contracts.VolumeFeatures {
	current := b5[len(b5)-1].Volume

	// Trailing window excludes the current bar; the whole point is to
	// compare against what came before.
	trailing := b5[:len(b5)-1]
	if len(trailing) > 20 {
		trailing = trailing[len(trailing)-20:]
	}

	var sum float64
	vols := make([]float64, 0, len(trailing))
	for _, b := range trailing {
		sum += b.Volume
		vols = append(vols, b.Volume)
	}

	f := &contracts.VolumeFeatures{Ratio: 1.0}
	if len(vols) == 0 {
		return f
	}

	avg := sum / float64(len(vols))
	if avg > 0 {
		f.Ratio = current / avg
	}
	f.ZScore = (current - avg) / (stdev(vols) + 1e-6)

	return f
}

func vwapFeatures(b5 []contracts.Bar, price float64, asOf time.Time) *contracts.VWAPFeatures {
	session := sessionBars(b5, asOf)
	if len(session) == 0 {
		session = b5
	}

	vwap := sessionVWAP(session)
	if vwap <= 0 {
		return nil
	}

	return &contracts.VWAPFeatures{
		VWAP:    vwap,
		Dist:    price - vwap,
		DistPct: (price - vwap) / vwap,
	}
}

// sessionBars keeps only bars from asOf's trading day (ET).
func sessionBars(bars []contracts.Bar, asOf time.Time) []contracts.Bar {
	loc := contracts.MarketLocation()
	y, m, d := asOf.In(loc).Date()

	start := 0
	for i := len(bars) - 1; i >= 0; i-- {
		by, bm, bd := bars[i].Timestamp.In(loc).Date()
		if by != y || bm != m || bd != d {
			start = i + 1
			break
		}
	}
	return bars[start:]
}

func candleFeatures(b5 []contracts.Bar) *contracts.CandleFeatures {
	latest := b5[len(b5)-1]
	prev := b5[len(b5)-2]

	f := &contracts.CandleFeatures{
		Hammer:        isHammer(latest),
		ShootingStar:  isShootingStar(latest),
		Doji:          isDoji(latest),
		EngulfingBull: isBullishEngulfing(latest, prev),
		EngulfingBear: isBearishEngulfing(latest, prev),
		Marubozu:      isMarubozu(latest),
		SpinningTop:   isSpinningTop(latest),
	}

	if len(b5) >= 3 {
		f.ThreeWhiteSoldiers = isThreeWhiteSoldiers(b5)
		f.ThreeBlackCrows = isThreeBlackCrows(b5)
	}

	if latest.Open > 0 {
		f.BodyPct = candleBody(latest) / latest.Open
		f.UpperWickPct = upperWick(latest) / latest.Open
		f.LowerWickPct = lowerWick(latest) / latest.Open
		f.RangePct = (latest.High - latest.Low) / latest.Open
	}

	if prev.Close > 0 {
		gap := (latest.Open - prev.Close) / prev.Close
		if gap > 0 {
			f.GapUpPct = gap
		} else {
			f.GapDownPct = -gap
		}
	}

	return f
}

func sessionFeatures(asOf time.Time) contracts.SessionFeatures {
	et := asOf.In(contracts.MarketLocation())
	hour := float64(et.Hour()) + float64(et.Minute())/60.0

	return contracts.SessionFeatures{
		HourOfDay:   hour / 24.0,
		DayOfWeek:   int(et.Weekday()),
		OpeningHour: hour >= 9.5 && hour < 10.5,
		ClosingHour: hour >= 15.5 && hour < 16.0,
		Midday:      hour >= 12.0 && hour < 14.0,
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
