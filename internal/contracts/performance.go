package contracts

import "time"

// Outcome classifies a signal's realized result at one horizon.
type Outcome string

const (
	OutcomeWin       Outcome = "WIN"
	OutcomeLoss      Outcome = "LOSS"
	OutcomeStopHit   Outcome = "STOP_HIT"
	OutcomeTargetHit Outcome = "TARGET_HIT"
	OutcomeOpen      Outcome = "OPEN"
)

// SignalPerformance is the realized result of one (signal, horizon)
// pair. At most one row exists per pair; the unique constraint makes
// re-evaluation a no-op.
type SignalPerformance struct {
	ID          int64     `json:"id"`
	SignalID    int64     `json:"signal_id"`
	Horizon     Horizon   `json:"horizon"`
	EvaluatedAt time.Time `json:"evaluated_at"`

	PriceAtHorizon float64 `json:"price_at_horizon"`
	PnLDollars     float64 `json:"pnl_dollars"` // per share
	PnLPct         float64 `json:"pnl_pct"`
	StopHit        bool    `json:"stop_hit"`
	TargetHit      bool    `json:"target_hit"`
	Outcome        Outcome `json:"outcome"`
}

// PeriodType is the aggregation granularity for strategy statistics.
type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
	PeriodAllTime PeriodType = "all_time"
)

// IsValid reports whether the period type is a known value.
func (p PeriodType) IsValid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime:
		return true
	}
	return false
}

// EquityPoint is one step of the cumulative PnL curve.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"` // cumulative PnL %
}

// StrategyPerformance is the derived, rebuildable period-level view
// over SignalPerformance rows. Ratio fields are nil when the sample
// is too small or has zero variance: insufficient data, not zero.
type StrategyPerformance struct {
	ID          int64      `json:"id"`
	Mode        Mode       `json:"mode"`
	PeriodType  PeriodType `json:"period_type"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`

	SampleSize  int     `json:"sample_size"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"win_rate"`
	AvgPnLPct   float64 `json:"avg_pnl_pct"`
	TotalPnLPct float64 `json:"total_pnl_pct"`

	Sharpe  *float64 `json:"sharpe,omitempty"`
	Sortino *float64 `json:"sortino,omitempty"`
	Calmar  *float64 `json:"calmar,omitempty"`

	MaxDrawdownPct      float64       `json:"max_drawdown_pct"`
	MaxDrawdownDuration time.Duration `json:"max_drawdown_duration"`

	EquityCurve []EquityPoint `json:"equity_curve"`
	ComputedAt  time.Time     `json:"computed_at"`
}
