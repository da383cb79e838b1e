package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finbright/daytrade/backend/internal/contracts"
)

// RiskBudgetRepository implements contracts.RiskBudgetRepository.
// The running counters here are the only mutable state in the data
// model; everything else is append-only or rebuildable.
type RiskBudgetRepository struct {
	pool *pgxpool.Pool
}

// NewRiskBudgetRepository creates a new risk budget repository
func NewRiskBudgetRepository(pool *pgxpool.Pool) *RiskBudgetRepository {
	return &RiskBudgetRepository{pool: pool}
}

// Get returns the user's budget, or nil when the user has none.
func (r *RiskBudgetRepository) Get(ctx context.Context, userID string) (*contracts.UserRiskBudget, error) {
	query := `
		SELECT
			user_id,
			max_loss_per_trade, daily_loss_limit, weekly_loss_limit,
			max_leverage, max_concentration, min_account_value,
			min_suitability_score, suitability_score, max_positions_per_day,
			daily_loss_used, weekly_loss_used, positions_opened_today,
			last_daily_reset, last_weekly_reset
		FROM trading.risk_budgets
		WHERE user_id = $1
	`

	var b contracts.UserRiskBudget
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&b.UserID,
		&b.MaxLossPerTrade, &b.DailyLossLimit, &b.WeeklyLossLimit,
		&b.MaxLeverage, &b.MaxConcentration, &b.MinAccountValue,
		&b.MinSuitabilityScore, &b.SuitabilityScore, &b.MaxPositionsPerDay,
		&b.DailyLossUsed, &b.WeeklyLossUsed, &b.PositionsOpenedToday,
		&b.LastDailyReset, &b.LastWeeklyReset,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get risk budget: %w", err)
	}

	return &b, nil
}

// AddUsage records realized loss and opened positions against the
// running counters. Loss deltas are clamped at zero: profits do not
// refill the envelope.
func (r *RiskBudgetRepository) AddUsage(ctx context.Context, userID string, lossDelta float64, positionsDelta int) error {
	if lossDelta < 0 {
		lossDelta = 0
	}

	query := `
		UPDATE trading.risk_budgets
		SET daily_loss_used = daily_loss_used + $2,
			weekly_loss_used = weekly_loss_used + $2,
			positions_opened_today = positions_opened_today + $3
		WHERE user_id = $1
	`

	tag, err := r.pool.Exec(ctx, query, userID, lossDelta, positionsDelta)
	if err != nil {
		return fmt.Errorf("failed to add usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no risk budget for user %s", userID)
	}

	return nil
}

// ResetDaily zeroes daily counters for every user. Returns the number
// of budgets touched.
func (r *RiskBudgetRepository) ResetDaily(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE trading.risk_budgets
		SET daily_loss_used = 0,
			positions_opened_today = 0,
			last_daily_reset = $1
	`

	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to reset daily budgets: %w", err)
	}

	return tag.RowsAffected(), nil
}

// ResetWeekly zeroes weekly counters for every user.
func (r *RiskBudgetRepository) ResetWeekly(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE trading.risk_budgets
		SET weekly_loss_used = 0,
			last_weekly_reset = $1
	`

	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to reset weekly budgets: %w", err)
	}

	return tag.RowsAffected(), nil
}
