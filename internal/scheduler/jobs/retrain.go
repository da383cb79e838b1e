package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/finbright/daytrade/backend/internal/training"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

// RetrainJob fits a candidate model nightly. A candidate that fails
// the promotion gates is kept in storage for inspection but never
// served; that outcome is a successful run, not an error.
type RetrainJob struct {
	trainer *training.Trainer
	logger  *logger.Logger
}

// NewRetrainJob creates a new retraining job.
func NewRetrainJob(trainer *training.Trainer, log *logger.Logger) *RetrainJob {
	return &RetrainJob{
		trainer: trainer,
		logger:  log,
	}
}

// Name returns the job name
func (j *RetrainJob) Name() string {
	return "model_retraining"
}

// Schedule returns the cron schedule (1:30 AM ET daily)
func (j *RetrainJob) Schedule() string {
	return "0 30 1 * * *"
}

// Run trains and optionally promotes a model.
func (j *RetrainJob) Run(ctx context.Context) error {
	report, err := j.trainer.Train(ctx, time.Now(), false)
	if err != nil {
		return fmt.Errorf("retraining failed: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"version":        report.Version,
		"samples":        report.Samples,
		"horizon":        string(report.Horizon),
		"train_acc":      report.TrainAccuracy,
		"validation_acc": report.ValidationAccuracy,
		"validation_auc": report.ValidationAUC,
		"promoted":       report.Promoted,
		"reason":         report.Reason,
	}).Info("Scheduled retraining completed")

	return nil
}
