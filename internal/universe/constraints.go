package universe

import (
	"strings"
	"time"

	"github.com/finbright/daytrade/backend/internal/contracts"
)

// Constraints are the per-mode numeric admission thresholds.
type Constraints struct {
	MinPrice      float64
	MaxPrice      float64
	MinVolume     float64
	MinMarketCap  float64
	BaseChangeCap float64 // |day change| fraction, before time-of-day scaling
	MaxVolatility float64 // 20-bar realized vol fraction
}

// ConstraintsFor returns the admission thresholds for a mode.
func ConstraintsFor(mode contracts.Mode) Constraints {
	if mode == contracts.ModeSafe {
		return Constraints{
			MinPrice:      5.0,
			MaxPrice:      500.0,
			MinVolume:     5_000_000,
			MinMarketCap:  50_000_000_000,
			BaseChangeCap: 0.15,
			MaxVolatility: 0.03,
		}
	}
	return Constraints{
		MinPrice:      2.0,
		MaxPrice:      500.0,
		MinVolume:     1_000_000,
		MinMarketCap:  1_000_000_000,
		BaseChangeCap: 0.30,
		MaxVolatility: 0.08,
	}
}

// ChangeCapAt scales the change threshold by time of day: looser
// before 10:00 ET to catch early momentum, tighter after 14:00 ET to
// avoid late-session pumps.
func (c Constraints) ChangeCapAt(now time.Time) float64 {
	hour := now.In(contracts.MarketLocation()).Hour()
	switch {
	case hour < 10:
		return c.BaseChangeCap * 1.67
	case hour < 14:
		return c.BaseChangeCap
	default:
		return c.BaseChangeCap * 0.33
	}
}

// CoreSymbols is the curated fallback universe used when the movers
// feed is unavailable or too thin.
func CoreSymbols(mode contracts.Mode) []string {
	if mode == contracts.ModeSafe {
		return []string{
			"AAPL", "MSFT", "GOOGL", "AMZN", "META", "NVDA", "TSLA", "JPM", "V", "JNJ",
			"WMT", "PG", "MA", "HD", "DIS", "NFLX", "BAC", "XOM", "CVX", "ABBV",
		}
	}
	return []string{
		"AAPL", "MSFT", "GOOGL", "AMZN", "META", "NVDA", "TSLA", "AMD", "INTC", "CRM",
		"NFLX", "PYPL", "ADBE", "UBER", "LYFT", "RBLX", "SOFI", "PLTR", "HOOD", "COIN",
		"SNOW", "NET", "ZM", "DOCN", "CRWD", "ZS", "OKTA", "DDOG", "MDB", "ESTC",
		"SQ", "SHOP", "ROKU", "SPOT", "TWLO", "FROG", "BILL", "ASAN", "UPST", "AFRM",
	}
}

// validSymbolFormat rejects non-common-stock tickers from the movers
// feed: too long, share classes with a dot, and index/ETF-style names
// ending in X. The curated core list is exempt; it legitimately holds
// names like NFLX and CVX that a trailing-X heuristic would drop.
func validSymbolFormat(symbol string) bool {
	if symbol == "" || len(symbol) > 5 {
		return false
	}
	if strings.Contains(symbol, ".") {
		return false
	}
	if strings.HasSuffix(symbol, "X") {
		return false
	}
	return true
}
