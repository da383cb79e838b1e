package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/finbright/daytrade/backend/internal/risk"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

// DailyResetJob zeroes daily risk counters at midnight ET.
type DailyResetJob struct {
	resetter *risk.Resetter
	logger   *logger.Logger
}

// NewDailyResetJob creates a new daily reset job.
func NewDailyResetJob(resetter *risk.Resetter, log *logger.Logger) *DailyResetJob {
	return &DailyResetJob{
		resetter: resetter,
		logger:   log,
	}
}

// Name returns the job name
func (j *DailyResetJob) Name() string {
	return "risk_reset_daily"
}

// Schedule returns the cron schedule (midnight ET daily)
func (j *DailyResetJob) Schedule() string {
	return "0 0 0 * * *"
}

// Run resets daily counters for all budgets.
func (j *DailyResetJob) Run(ctx context.Context) error {
	if _, err := j.resetter.ResetDaily(ctx, time.Now()); err != nil {
		return fmt.Errorf("daily reset failed: %w", err)
	}
	return nil
}

// WeeklyResetJob zeroes weekly risk counters early Monday morning,
// after the daily reset has already run.
type WeeklyResetJob struct {
	resetter *risk.Resetter
	logger   *logger.Logger
}

// NewWeeklyResetJob creates a new weekly reset job.
func NewWeeklyResetJob(resetter *risk.Resetter, log *logger.Logger) *WeeklyResetJob {
	return &WeeklyResetJob{
		resetter: resetter,
		logger:   log,
	}
}

// Name returns the job name
func (j *WeeklyResetJob) Name() string {
	return "risk_reset_weekly"
}

// Schedule returns the cron schedule (12:05 AM ET Monday)
func (j *WeeklyResetJob) Schedule() string {
	return "0 5 0 * * MON"
}

// Run resets weekly counters for all budgets.
func (j *WeeklyResetJob) Run(ctx context.Context) error {
	if _, err := j.resetter.ResetWeekly(ctx, time.Now()); err != nil {
		return fmt.Errorf("weekly reset failed: %w", err)
	}
	return nil
}
