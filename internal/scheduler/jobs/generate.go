package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/internal/pipeline"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

// GenerateJob runs the signal pipeline for one mode every five minutes
// during the regular session. The cron expression covers whole hours,
// so the job itself skips the pre-open slice of 9 AM and anything
// after 3:55 PM, where a fresh intraday pick has no room to play out.
type GenerateJob struct {
	generator *pipeline.Generator
	mode      contracts.Mode
	logger    *logger.Logger
}

// NewGenerateJob creates a new generation job for the given mode.
func NewGenerateJob(generator *pipeline.Generator, mode contracts.Mode, log *logger.Logger) *GenerateJob {
	return &GenerateJob{
		generator: generator,
		mode:      mode,
		logger:    log,
	}
}

// Name returns the job name
func (j *GenerateJob) Name() string {
	return fmt.Sprintf("signal_generation_%s", j.mode)
}

// Schedule returns the cron schedule (every 5 minutes, 9 AM - 3:55 PM ET, weekdays)
func (j *GenerateJob) Schedule() string {
	return "0 */5 9-15 * * MON-FRI"
}

// Run executes one pipeline pass.
func (j *GenerateJob) Run(ctx context.Context) error {
	now := time.Now()
	if !withinSession(now) {
		j.logger.WithField("mode", string(j.mode)).Debug("Outside regular session, skipping generation")
		return nil
	}

	result, err := j.generator.Run(ctx, j.mode, now)
	if err != nil {
		return fmt.Errorf("signal generation failed: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"mode":      string(j.mode),
		"run_id":    result.RunID,
		"universe":  result.UniverseSize,
		"generated": result.Generated,
		"skipped":   result.Skipped,
		"failures":  len(result.Failures),
		"elapsed":   result.Elapsed,
	}).Info("Scheduled generation completed")

	return nil
}

// withinSession reports whether now falls inside 9:30 - 3:55 PM ET.
func withinSession(now time.Time) bool {
	et := now.In(contracts.MarketLocation())
	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday {
		return false
	}

	minutes := et.Hour()*60 + et.Minute()
	return minutes >= 9*60+30 && minutes <= 15*60+55
}
