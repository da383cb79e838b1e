package contracts

import "time"

// UserRiskBudget is the per-user risk envelope consumed by the
// policy gate. The running counters are the only mutable state in
// the data model and are reset on a schedule.
type UserRiskBudget struct {
	UserID string `json:"user_id"`

	// Limits
	MaxLossPerTrade     float64 `json:"max_loss_per_trade"` // dollars
	DailyLossLimit      float64 `json:"daily_loss_limit"`
	WeeklyLossLimit     float64 `json:"weekly_loss_limit"`
	MaxLeverage         float64 `json:"max_leverage"`
	MaxConcentration    float64 `json:"max_concentration"` // fraction of account per position
	MinAccountValue     float64 `json:"min_account_value"`
	MinSuitabilityScore float64 `json:"min_suitability_score"`
	SuitabilityScore    float64 `json:"suitability_score"`
	MaxPositionsPerDay  int     `json:"max_positions_per_day"`

	// Running counters
	DailyLossUsed        float64   `json:"daily_loss_used"`
	WeeklyLossUsed       float64   `json:"weekly_loss_used"`
	PositionsOpenedToday int       `json:"positions_opened_today"`
	LastDailyReset       time.Time `json:"last_daily_reset"`
	LastWeeklyReset      time.Time `json:"last_weekly_reset"`
}

// DailyLossRemaining returns the unused portion of the daily cap.
func (b *UserRiskBudget) DailyLossRemaining() float64 {
	remaining := b.DailyLossLimit - b.DailyLossUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// WeeklyLossRemaining returns the unused portion of the weekly cap.
func (b *UserRiskBudget) WeeklyLossRemaining() float64 {
	remaining := b.WeeklyLossLimit - b.WeeklyLossUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
