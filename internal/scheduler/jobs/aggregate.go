package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/finbright/daytrade/backend/internal/performance"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

// AggregateJob rebuilds strategy statistics after the close, once the
// day's EOD evaluations have landed.
type AggregateJob struct {
	aggregator *performance.Aggregator
	logger     *logger.Logger
}

// NewAggregateJob creates a new aggregation job.
func NewAggregateJob(aggregator *performance.Aggregator, log *logger.Logger) *AggregateJob {
	return &AggregateJob{
		aggregator: aggregator,
		logger:     log,
	}
}

// Name returns the job name
func (j *AggregateJob) Name() string {
	return "performance_aggregation"
}

// Schedule returns the cron schedule (5:30 PM ET, weekdays)
func (j *AggregateJob) Schedule() string {
	return "0 30 17 * * MON-FRI"
}

// Run rebuilds every mode and period combination.
func (j *AggregateJob) Run(ctx context.Context) error {
	if err := j.aggregator.RebuildAll(ctx, time.Now()); err != nil {
		return fmt.Errorf("aggregation failed: %w", err)
	}

	j.logger.Info("Scheduled aggregation completed")
	return nil
}
