package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/finbright/daytrade/backend/internal/performance"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

// EvaluateJob sweeps unevaluated signals every 15 minutes. Failed
// evaluations are not recorded, so a symbol whose bars were missing
// is simply picked up by the next sweep.
type EvaluateJob struct {
	evaluator *performance.Evaluator
	logger    *logger.Logger
}

// NewEvaluateJob creates a new evaluation job.
func NewEvaluateJob(evaluator *performance.Evaluator, log *logger.Logger) *EvaluateJob {
	return &EvaluateJob{
		evaluator: evaluator,
		logger:    log,
	}
}

// Name returns the job name
func (j *EvaluateJob) Name() string {
	return "performance_evaluation"
}

// Schedule returns the cron schedule (every 15 minutes, 9 AM - 8 PM ET, weekdays)
func (j *EvaluateJob) Schedule() string {
	return "0 */15 9-20 * * MON-FRI"
}

// Run executes one evaluation sweep.
func (j *EvaluateJob) Run(ctx context.Context) error {
	result, err := j.evaluator.EvaluateDue(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("evaluation sweep failed: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"evaluated":  result.Evaluated,
		"duplicates": result.Duplicates,
		"failures":   len(result.Failures),
	}).Info("Scheduled evaluation completed")

	return nil
}
