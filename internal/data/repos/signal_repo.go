package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finbright/daytrade/backend/internal/contracts"
)

// SignalRepository implements contracts.SignalRepository. Signal rows
// are append-only; there is no update path.
type SignalRepository struct {
	pool *pgxpool.Pool
}

// NewSignalRepository creates a new signal repository
func NewSignalRepository(pool *pgxpool.Pool) *SignalRepository {
	return &SignalRepository{pool: pool}
}

// Insert appends one signal row and fills in its generated ID.
func (r *SignalRepository) Insert(ctx context.Context, signal *contracts.Signal) error {
	query := `
		INSERT INTO trading.signals (
			run_id, symbol, side, mode, source, generated_at,
			entry, stop, targets,
			score, rule_score, ml_prob,
			features, schema_hash, model_version, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`

	features, err := json.Marshal(signal.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}

	err = r.pool.QueryRow(ctx, query,
		signal.RunID, signal.Symbol, string(signal.Side), string(signal.Mode),
		string(signal.Source), signal.GeneratedAt,
		signal.Entry, signal.Stop, signal.Targets,
		signal.Score, signal.RuleScore, signal.MLProb,
		features, signal.SchemaHash, signal.ModelVersion, signal.Notes,
	).Scan(&signal.ID)
	if err != nil {
		return fmt.Errorf("failed to insert signal: %w", err)
	}

	return nil
}

// ListRecent returns the newest picks for a mode since the cutoff,
// best score first.
func (r *SignalRepository) ListRecent(ctx context.Context, mode contracts.Mode, since time.Time, limit int) ([]contracts.Signal, error) {
	query := `
		SELECT
			id, run_id, symbol, side, mode, source, generated_at,
			entry, stop, targets,
			score, rule_score, ml_prob,
			features, schema_hash, model_version, notes
		FROM trading.signals
		WHERE mode = $1 AND generated_at >= $2
		ORDER BY score DESC, generated_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, string(mode), since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent signals: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// ListUnevaluated returns signals that have no performance row for
// the horizon yet and whose horizon has passed. The due check lives
// in Go because the EOD horizon depends on the exchange calendar, not
// a fixed interval.
func (r *SignalRepository) ListUnevaluated(ctx context.Context, horizon contracts.Horizon, now time.Time) ([]contracts.Signal, error) {
	query := `
		SELECT
			s.id, s.run_id, s.symbol, s.side, s.mode, s.source, s.generated_at,
			s.entry, s.stop, s.targets,
			s.score, s.rule_score, s.ml_prob,
			s.features, s.schema_hash, s.model_version, s.notes
		FROM trading.signals s
		LEFT JOIN trading.signal_performance p
			ON p.signal_id = s.id AND p.horizon = $1
		WHERE p.id IS NULL AND s.generated_at >= $2
		ORDER BY s.generated_at
	`

	// Anything older than a week is beyond every horizon and either
	// evaluated already or unevaluable for lack of bars.
	cutoff := now.AddDate(0, 0, -7)

	rows, err := r.pool.Query(ctx, query, string(horizon), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query unevaluated signals: %w", err)
	}
	defer rows.Close()

	signals, err := scanSignals(rows)
	if err != nil {
		return nil, err
	}

	due := signals[:0]
	for _, s := range signals {
		if horizon.Due(s.GeneratedAt, now) {
			due = append(due, s)
		}
	}
	return due, nil
}

// ListWithPerformance joins signals to their realized outcomes at one
// horizon inside the window, oldest first, for model training.
func (r *SignalRepository) ListWithPerformance(ctx context.Context, horizon contracts.Horizon, start, end time.Time) ([]contracts.SignalWithPerformance, error) {
	query := `
		SELECT
			s.id, s.run_id, s.symbol, s.side, s.mode, s.source, s.generated_at,
			s.entry, s.stop, s.targets,
			s.score, s.rule_score, s.ml_prob,
			s.features, s.schema_hash, s.model_version, s.notes,
			p.id, p.signal_id, p.horizon, p.evaluated_at,
			p.price_at_horizon, p.pnl_dollars, p.pnl_pct,
			p.stop_hit, p.target_hit, p.outcome
		FROM trading.signals s
		JOIN trading.signal_performance p
			ON p.signal_id = s.id AND p.horizon = $1
		WHERE s.generated_at >= $2 AND s.generated_at < $3
		ORDER BY s.generated_at
	`

	rows, err := r.pool.Query(ctx, query, string(horizon), start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query training pairs: %w", err)
	}
	defer rows.Close()

	var out []contracts.SignalWithPerformance
	for rows.Next() {
		var pair contracts.SignalWithPerformance
		var features []byte
		var side, mode, source, horizonStr, outcome string

		err := rows.Scan(
			&pair.Signal.ID, &pair.Signal.RunID, &pair.Signal.Symbol, &side, &mode, &source,
			&pair.Signal.GeneratedAt,
			&pair.Signal.Entry, &pair.Signal.Stop, &pair.Signal.Targets,
			&pair.Signal.Score, &pair.Signal.RuleScore, &pair.Signal.MLProb,
			&features, &pair.Signal.SchemaHash, &pair.Signal.ModelVersion, &pair.Signal.Notes,
			&pair.Performance.ID, &pair.Performance.SignalID, &horizonStr, &pair.Performance.EvaluatedAt,
			&pair.Performance.PriceAtHorizon, &pair.Performance.PnLDollars, &pair.Performance.PnLPct,
			&pair.Performance.StopHit, &pair.Performance.TargetHit, &outcome,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan training pair: %w", err)
		}

		pair.Signal.Side = contracts.Side(side)
		pair.Signal.Mode = contracts.Mode(mode)
		pair.Signal.Source = contracts.UniverseSource(source)
		pair.Performance.Horizon = contracts.Horizon(horizonStr)
		pair.Performance.Outcome = contracts.Outcome(outcome)

		if err := json.Unmarshal(features, &pair.Signal.Features); err != nil {
			return nil, fmt.Errorf("failed to unmarshal features: %w", err)
		}

		out = append(out, pair)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating training pairs: %w", err)
	}

	return out, nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanSignals(rows pgxRows) ([]contracts.Signal, error) {
	var out []contracts.Signal
	for rows.Next() {
		var s contracts.Signal
		var features []byte
		var side, mode, source string

		err := rows.Scan(
			&s.ID, &s.RunID, &s.Symbol, &side, &mode, &source, &s.GeneratedAt,
			&s.Entry, &s.Stop, &s.Targets,
			&s.Score, &s.RuleScore, &s.MLProb,
			&features, &s.SchemaHash, &s.ModelVersion, &s.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}

		s.Side = contracts.Side(side)
		s.Mode = contracts.Mode(mode)
		s.Source = contracts.UniverseSource(source)

		if err := json.Unmarshal(features, &s.Features); err != nil {
			return nil, fmt.Errorf("failed to unmarshal features: %w", err)
		}

		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signals: %w", err)
	}

	return out, nil
}
