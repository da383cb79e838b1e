package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finbright/daytrade/backend/internal/contracts"
)

// PerformanceRepository implements contracts.PerformanceRepository.
// The unique (signal_id, horizon) constraint is what makes the
// evaluation sweep idempotent.
type PerformanceRepository struct {
	pool *pgxpool.Pool
}

// NewPerformanceRepository creates a new performance repository
func NewPerformanceRepository(pool *pgxpool.Pool) *PerformanceRepository {
	return &PerformanceRepository{pool: pool}
}

// Insert writes one outcome row. Returns false when the pair was
// already evaluated; the existing row is never touched.
func (r *PerformanceRepository) Insert(ctx context.Context, perf *contracts.SignalPerformance) (bool, error) {
	query := `
		INSERT INTO trading.signal_performance (
			signal_id, horizon, evaluated_at,
			price_at_horizon, pnl_dollars, pnl_pct,
			stop_hit, target_hit, outcome
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (signal_id, horizon) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query,
		perf.SignalID, string(perf.Horizon), perf.EvaluatedAt,
		perf.PriceAtHorizon, perf.PnLDollars, perf.PnLPct,
		perf.StopHit, perf.TargetHit, string(perf.Outcome),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert performance: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListByPeriod returns outcomes for a mode's signals inside the
// window, in signal generation order.
func (r *PerformanceRepository) ListByPeriod(ctx context.Context, mode contracts.Mode, horizon contracts.Horizon, start, end time.Time) ([]contracts.SignalPerformance, error) {
	query := `
		SELECT
			p.id, p.signal_id, p.horizon, p.evaluated_at,
			p.price_at_horizon, p.pnl_dollars, p.pnl_pct,
			p.stop_hit, p.target_hit, p.outcome
		FROM trading.signal_performance p
		JOIN trading.signals s ON s.id = p.signal_id
		WHERE s.mode = $1 AND p.horizon = $2
			AND s.generated_at >= $3 AND s.generated_at < $4
		ORDER BY s.generated_at
	`

	rows, err := r.pool.Query(ctx, query, string(mode), string(horizon), start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance rows: %w", err)
	}
	defer rows.Close()

	var out []contracts.SignalPerformance
	for rows.Next() {
		var p contracts.SignalPerformance
		var horizonStr, outcome string

		err := rows.Scan(
			&p.ID, &p.SignalID, &horizonStr, &p.EvaluatedAt,
			&p.PriceAtHorizon, &p.PnLDollars, &p.PnLPct,
			&p.StopHit, &p.TargetHit, &outcome,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan performance row: %w", err)
		}

		p.Horizon = contracts.Horizon(horizonStr)
		p.Outcome = contracts.Outcome(outcome)
		out = append(out, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating performance rows: %w", err)
	}

	return out, nil
}
