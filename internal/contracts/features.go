package contracts

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// MinFeatureBars is the minimum 5-minute bar count below which
// indicator groups are left nil rather than zero-filled. A zero
// would silently corrupt downstream score weighting.
const MinFeatureBars = 20

// FeatureSet is the frozen per-symbol feature snapshot computed at
// signal time. Groups that could not be computed from the available
// history are nil, never zero-filled, and Complete is false.
//
// Every value is derived only from bars with Timestamp <= AsOf.
type FeatureSet struct {
	Symbol     string    `json:"symbol"`
	AsOf       time.Time `json:"as_of"`
	BarCount5m int       `json:"bar_count_5m"`
	BarCount1m int       `json:"bar_count_1m"`
	Complete   bool      `json:"complete"`

	Momentum   *MomentumFeatures   `json:"momentum,omitempty"`
	Trend      *TrendFeatures      `json:"trend,omitempty"`
	Volatility *VolatilityFeatures `json:"volatility,omitempty"`
	Volume     *VolumeFeatures     `json:"volume,omitempty"`
	VWAP       *VWAPFeatures       `json:"vwap,omitempty"`
	Candles    *CandleFeatures     `json:"candles,omitempty"`
	Session    SessionFeatures     `json:"session"`
}

// MomentumFeatures are bar-count-aligned returns over short windows.
type MomentumFeatures struct {
	Momentum15m float64 `json:"momentum_15m"` // 3x 5m bars
	Momentum5m  float64 `json:"momentum_5m"`
	Momentum1m  float64 `json:"momentum_1m"`
	ROC10       float64 `json:"roc_10"` // 10x 5m bars
}

// TrendFeatures are the moving-average and oscillator indicators.
type TrendFeatures struct {
	SMA5  float64 `json:"sma_5"`
	SMA10 float64 `json:"sma_10"`
	SMA20 float64 `json:"sma_20"`
	SMA50 float64 `json:"sma_50"`
	EMA12 float64 `json:"ema_12"`
	EMA26 float64 `json:"ema_26"`

	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`

	RSI14 float64 `json:"rsi_14"`

	BBUpper    float64 `json:"bb_upper"`
	BBMiddle   float64 `json:"bb_middle"`
	BBLower    float64 `json:"bb_lower"`
	BBWidth    float64 `json:"bb_width"`
	BBPosition float64 `json:"bb_position"`

	StochK float64 `json:"stoch_k"`
	StochD float64 `json:"stoch_d"`

	TrendStrength float64 `json:"trend_strength"` // |SMA20-SMA50| / price

	PriceAboveSMA20 bool `json:"price_above_sma20"`
	PriceAboveSMA50 bool `json:"price_above_sma50"`
	SMA20AboveSMA50 bool `json:"sma20_above_sma50"`
	PriceAtBBUpper  bool `json:"price_at_bb_upper"`
	PriceAtBBLower  bool `json:"price_at_bb_lower"`
}

// VolatilityFeatures cover realized volatility, range structure and
// breakout state.
type VolatilityFeatures struct {
	RealizedVol20 float64 `json:"realized_vol_20"` // annualized stdev of log returns
	RealizedVol10 float64 `json:"realized_vol_10"`
	ATR14         float64 `json:"atr_14"`
	ATR14Pct      float64 `json:"atr_14_pct"`
	ATR5Pct       float64 `json:"atr_5_pct"`
	TrueRangePct  float64 `json:"true_range_pct"`

	BreakoutPct      float64 `json:"breakout_pct"`  // distance above 20-bar high / range
	BreakdownPct     float64 `json:"breakdown_pct"` // distance below 20-bar low / range
	RangeCompression float64 `json:"range_compression"`
	VolExpansion     bool    `json:"is_vol_expansion"`
}

// VolumeFeatures compare current volume to the trailing average.
type VolumeFeatures struct {
	Ratio  float64 `json:"volume_ratio"`
	ZScore float64 `json:"volume_zscore"`
}

// VWAPFeatures position the last price against session VWAP.
type VWAPFeatures struct {
	VWAP    float64 `json:"vwap"`
	Dist    float64 `json:"vwap_dist"`
	DistPct float64 `json:"vwap_dist_pct"`
}

// CandleFeatures are candlestick pattern flags from the most recent
// bars plus gap and body shape measures.
type CandleFeatures struct {
	BodyPct      float64 `json:"body_pct"`
	UpperWickPct float64 `json:"upper_wick_pct"`
	LowerWickPct float64 `json:"lower_wick_pct"`
	RangePct     float64 `json:"range_pct"`
	GapUpPct     float64 `json:"gap_up_pct"`
	GapDownPct   float64 `json:"gap_down_pct"`

	Hammer             bool `json:"is_hammer"`
	ShootingStar       bool `json:"is_shooting_star"`
	Doji               bool `json:"is_doji"`
	EngulfingBull      bool `json:"is_engulfing_bull"`
	EngulfingBear      bool `json:"is_engulfing_bear"`
	Marubozu           bool `json:"is_marubozu"`
	SpinningTop        bool `json:"is_spinning_top"`
	ThreeWhiteSoldiers bool `json:"is_three_white_soldiers"`
	ThreeBlackCrows    bool `json:"is_three_black_crows"`
}

// SessionFeatures depend only on the clock and are always present.
type SessionFeatures struct {
	HourOfDay   float64 `json:"hour_of_day"` // ET, fractional, normalized /24
	DayOfWeek   int     `json:"dow"`
	OpeningHour bool    `json:"is_opening_hour"` // 9:30-10:30 ET
	ClosingHour bool    `json:"is_closing_hour"` // 15:30-16:00 ET
	Midday      bool    `json:"is_midday"`       // 12:00-14:00 ET
}

// Map flattens the present groups into the canonical name -> value
// form used for persistence and model training. Absent groups
// contribute no keys; booleans become 0/1.
func (f *FeatureSet) Map() map[string]float64 {
	m := make(map[string]float64, 64)

	if g := f.Momentum; g != nil {
		m["momentum_15m"] = g.Momentum15m
		m["momentum_5m"] = g.Momentum5m
		m["momentum_1m"] = g.Momentum1m
		m["roc_10"] = g.ROC10
	}
	if g := f.Trend; g != nil {
		m["sma_5"] = g.SMA5
		m["sma_10"] = g.SMA10
		m["sma_20"] = g.SMA20
		m["sma_50"] = g.SMA50
		m["ema_12"] = g.EMA12
		m["ema_26"] = g.EMA26
		m["macd"] = g.MACD
		m["macd_signal"] = g.MACDSignal
		m["macd_hist"] = g.MACDHist
		m["rsi_14"] = g.RSI14
		m["bb_upper"] = g.BBUpper
		m["bb_middle"] = g.BBMiddle
		m["bb_lower"] = g.BBLower
		m["bb_width"] = g.BBWidth
		m["bb_position"] = g.BBPosition
		m["stoch_k"] = g.StochK
		m["stoch_d"] = g.StochD
		m["trend_strength"] = g.TrendStrength
		m["price_above_sma20"] = boolFeature(g.PriceAboveSMA20)
		m["price_above_sma50"] = boolFeature(g.PriceAboveSMA50)
		m["sma20_above_sma50"] = boolFeature(g.SMA20AboveSMA50)
		m["price_at_bb_upper"] = boolFeature(g.PriceAtBBUpper)
		m["price_at_bb_lower"] = boolFeature(g.PriceAtBBLower)
	}
	if g := f.Volatility; g != nil {
		m["realized_vol_20"] = g.RealizedVol20
		m["realized_vol_10"] = g.RealizedVol10
		m["atr_14"] = g.ATR14
		m["atr_14_pct"] = g.ATR14Pct
		m["atr_5_pct"] = g.ATR5Pct
		m["true_range_pct"] = g.TrueRangePct
		m["breakout_pct"] = g.BreakoutPct
		m["breakdown_pct"] = g.BreakdownPct
		m["range_compression"] = g.RangeCompression
		m["is_vol_expansion"] = boolFeature(g.VolExpansion)
	}
	if g := f.Volume; g != nil {
		m["volume_ratio"] = g.Ratio
		m["volume_zscore"] = g.ZScore
	}
	if g := f.VWAP; g != nil {
		m["vwap"] = g.VWAP
		m["vwap_dist"] = g.Dist
		m["vwap_dist_pct"] = g.DistPct
	}
	if g := f.Candles; g != nil {
		m["body_pct"] = g.BodyPct
		m["upper_wick_pct"] = g.UpperWickPct
		m["lower_wick_pct"] = g.LowerWickPct
		m["range_pct"] = g.RangePct
		m["gap_up_pct"] = g.GapUpPct
		m["gap_down_pct"] = g.GapDownPct
		m["is_hammer"] = boolFeature(g.Hammer)
		m["is_shooting_star"] = boolFeature(g.ShootingStar)
		m["is_doji"] = boolFeature(g.Doji)
		m["is_engulfing_bull"] = boolFeature(g.EngulfingBull)
		m["is_engulfing_bear"] = boolFeature(g.EngulfingBear)
		m["is_marubozu"] = boolFeature(g.Marubozu)
		m["is_spinning_top"] = boolFeature(g.SpinningTop)
		m["is_three_white_soldiers"] = boolFeature(g.ThreeWhiteSoldiers)
		m["is_three_black_crows"] = boolFeature(g.ThreeBlackCrows)
	}

	m["hour_of_day"] = f.Session.HourOfDay
	m["dow"] = float64(f.Session.DayOfWeek)
	m["is_opening_hour"] = boolFeature(f.Session.OpeningHour)
	m["is_closing_hour"] = boolFeature(f.Session.ClosingHour)
	m["is_midday"] = boolFeature(f.Session.Midday)

	return m
}

// SchemaHash fingerprints the set of feature names present in this
// snapshot. Signals record it so that training and auditing always
// use the schema that actually drove the decision.
func (f *FeatureSet) SchemaHash() string {
	m := f.Map()
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return FeatureSchemaHash(names)
}

// FeatureSchemaHash computes the canonical hash for a feature name
// list. Order-insensitive.
func FeatureSchemaHash(names []string) string {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	return hex.EncodeToString(sum[:])[:16]
}

func boolFeature(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
