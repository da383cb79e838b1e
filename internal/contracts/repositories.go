package contracts

import (
	"context"
	"time"
)

// SignalRepository persists emitted picks.
type SignalRepository interface {
	// Insert appends one immutable signal row and fills in its ID.
	Insert(ctx context.Context, signal *Signal) error

	// ListRecent returns the newest accepted picks for a mode,
	// ordered by score descending.
	ListRecent(ctx context.Context, mode Mode, since time.Time, limit int) ([]Signal, error)

	// ListUnevaluated returns signals with no performance row yet
	// for the given horizon, whose horizon is due as of now.
	ListUnevaluated(ctx context.Context, horizon Horizon, now time.Time) ([]Signal, error)

	// ListWithPerformance returns signal/performance pairs inside
	// the window for the given horizon, for model training.
	ListWithPerformance(ctx context.Context, horizon Horizon, start, end time.Time) ([]SignalWithPerformance, error)
}

// SignalWithPerformance joins a signal to its realized outcome at
// one horizon.
type SignalWithPerformance struct {
	Signal      Signal
	Performance SignalPerformance
}

// PerformanceRepository persists per-horizon realized outcomes.
type PerformanceRepository interface {
	// Insert writes one row. Returns false with nil error when the
	// (signal, horizon) pair was already evaluated.
	Insert(ctx context.Context, perf *SignalPerformance) (bool, error)

	// ListByPeriod returns outcomes for signals of a mode inside the
	// window, ordered by signal generation time.
	ListByPeriod(ctx context.Context, mode Mode, horizon Horizon, start, end time.Time) ([]SignalPerformance, error)
}

// StrategyRepository persists the derived period-level view.
type StrategyRepository interface {
	// ReplacePeriod deletes and rewrites the row for the aggregation
	// key in one transaction.
	ReplacePeriod(ctx context.Context, perf *StrategyPerformance) error

	// Get returns the stored row for an aggregation key, or nil.
	Get(ctx context.Context, mode Mode, periodType PeriodType, periodStart time.Time) (*StrategyPerformance, error)
}

// ModelRepository persists trained model versions.
type ModelRepository interface {
	// InsertCandidate stores a freshly trained, unpromoted model.
	InsertCandidate(ctx context.Context, model *ModelVersion) error

	// Promote retires the active model and activates the candidate
	// in a single transaction.
	Promote(ctx context.Context, candidateID int64) error

	// GetActive returns the active model or ErrNoActiveModel.
	GetActive(ctx context.Context) (*ModelVersion, error)
}

// RiskBudgetRepository persists per-user risk envelopes.
type RiskBudgetRepository interface {
	Get(ctx context.Context, userID string) (*UserRiskBudget, error)

	// AddUsage records realized loss usage and position count.
	AddUsage(ctx context.Context, userID string, lossDelta float64, positionsDelta int) error

	// ResetDaily zeroes daily counters for all users.
	ResetDaily(ctx context.Context, now time.Time) (int64, error)

	// ResetWeekly zeroes weekly counters for all users.
	ResetWeekly(ctx context.Context, now time.Time) (int64, error)
}
