package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

// Resetter zeroes the running loss counters on their schedule: daily
// at midnight ET, weekly on Monday.
type Resetter struct {
	budgets contracts.RiskBudgetRepository
	log     *logger.Logger
}

func NewResetter(budgets contracts.RiskBudgetRepository, log *logger.Logger) *Resetter {
	return &Resetter{
		budgets: budgets,
		log:     log.WithField("component", "risk"),
	}
}

// ResetDaily zeroes daily counters for every user.
func (r *Resetter) ResetDaily(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.budgets.ResetDaily(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("reset daily budgets: %w", err)
	}
	r.log.WithField("users", n).Info("Daily risk counters reset")
	return n, nil
}

// ResetWeekly zeroes weekly counters for every user.
func (r *Resetter) ResetWeekly(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.budgets.ResetWeekly(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("reset weekly budgets: %w", err)
	}
	r.log.WithField("users", n).Info("Weekly risk counters reset")
	return n, nil
}
