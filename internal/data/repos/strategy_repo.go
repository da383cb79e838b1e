package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finbright/daytrade/backend/internal/contracts"
)

// StrategyRepository implements contracts.StrategyRepository. Rows
// here are derived: any one of them can be deleted and rebuilt from
// signal_performance at any time.
type StrategyRepository struct {
	pool *pgxpool.Pool
}

// NewStrategyRepository creates a new strategy repository
func NewStrategyRepository(pool *pgxpool.Pool) *StrategyRepository {
	return &StrategyRepository{pool: pool}
}

// ReplacePeriod deletes and rewrites the row for the aggregation key
// in one transaction, so readers never observe a missing period.
func (r *StrategyRepository) ReplacePeriod(ctx context.Context, perf *contracts.StrategyPerformance) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	deleteQuery := `
		DELETE FROM trading.strategy_performance
		WHERE mode = $1 AND period_type = $2 AND period_start = $3
	`
	if _, err := tx.Exec(ctx, deleteQuery, string(perf.Mode), string(perf.PeriodType), perf.PeriodStart); err != nil {
		return fmt.Errorf("failed to delete old period: %w", err)
	}

	curve, err := json.Marshal(perf.EquityCurve)
	if err != nil {
		return fmt.Errorf("failed to marshal equity curve: %w", err)
	}

	insertQuery := `
		INSERT INTO trading.strategy_performance (
			mode, period_type, period_start, period_end,
			sample_size, wins, losses, win_rate, avg_pnl_pct, total_pnl_pct,
			sharpe, sortino, calmar,
			max_drawdown_pct, max_drawdown_seconds,
			equity_curve, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`

	err = tx.QueryRow(ctx, insertQuery,
		string(perf.Mode), string(perf.PeriodType), perf.PeriodStart, perf.PeriodEnd,
		perf.SampleSize, perf.Wins, perf.Losses, perf.WinRate, perf.AvgPnLPct, perf.TotalPnLPct,
		perf.Sharpe, perf.Sortino, perf.Calmar,
		perf.MaxDrawdownPct, int64(perf.MaxDrawdownDuration.Seconds()),
		curve, perf.ComputedAt,
	).Scan(&perf.ID)
	if err != nil {
		return fmt.Errorf("failed to insert period: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Get returns the stored row for an aggregation key, or nil when the
// period was never aggregated.
func (r *StrategyRepository) Get(ctx context.Context, mode contracts.Mode, periodType contracts.PeriodType, periodStart time.Time) (*contracts.StrategyPerformance, error) {
	query := `
		SELECT
			id, mode, period_type, period_start, period_end,
			sample_size, wins, losses, win_rate, avg_pnl_pct, total_pnl_pct,
			sharpe, sortino, calmar,
			max_drawdown_pct, max_drawdown_seconds,
			equity_curve, computed_at
		FROM trading.strategy_performance
		WHERE mode = $1 AND period_type = $2 AND period_start = $3
	`

	var sp contracts.StrategyPerformance
	var modeStr, periodStr string
	var ddSeconds int64
	var curve []byte

	err := r.pool.QueryRow(ctx, query, string(mode), string(periodType), periodStart).Scan(
		&sp.ID, &modeStr, &periodStr, &sp.PeriodStart, &sp.PeriodEnd,
		&sp.SampleSize, &sp.Wins, &sp.Losses, &sp.WinRate, &sp.AvgPnLPct, &sp.TotalPnLPct,
		&sp.Sharpe, &sp.Sortino, &sp.Calmar,
		&sp.MaxDrawdownPct, &ddSeconds,
		&curve, &sp.ComputedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get strategy performance: %w", err)
	}

	sp.Mode = contracts.Mode(modeStr)
	sp.PeriodType = contracts.PeriodType(periodStr)
	sp.MaxDrawdownDuration = time.Duration(ddSeconds) * time.Second

	if err := json.Unmarshal(curve, &sp.EquityCurve); err != nil {
		return nil, fmt.Errorf("failed to unmarshal equity curve: %w", err)
	}

	return &sp, nil
}
