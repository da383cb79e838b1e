package contracts

import "time"

// Interval identifies a bar granularity supported by the provider.
type Interval string

const (
	Interval1m Interval = "1m"
	Interval5m Interval = "5m"
	Interval1d Interval = "1d"
)

// Bar is a single OHLCV bar. Bars are always delivered in
// chronological order, oldest first.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Snapshot is the current per-symbol market state used by the
// universe filter.
type Snapshot struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	DayVolume  float64   `json:"day_volume"`
	MarketCap  float64   `json:"market_cap"`
	ChangePct  float64   `json:"change_pct"`  // day change, 5.0 = +5%
	Volatility float64   `json:"volatility"`  // 20-bar realized vol, fraction
	AsOf       time.Time `json:"as_of"`
}

// Mover is an entry from the provider's gainers/losers feed,
// used to extend the core universe with unusually active names.
type Mover struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
}

// Mode selects the risk posture of a generation run.
type Mode string

const (
	ModeSafe       Mode = "SAFE"
	ModeAggressive Mode = "AGGRESSIVE"
)

// IsValid reports whether the mode is a known value.
func (m Mode) IsValid() bool {
	return m == ModeSafe || m == ModeAggressive
}

// Side is the direction of a pick.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// UniverseSource tags where a symbol entered the scan universe.
type UniverseSource string

const (
	UniverseCore          UniverseSource = "CORE"
	UniverseDynamicMovers UniverseSource = "DYNAMIC_MOVERS"
)
