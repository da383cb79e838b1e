package training

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/internal/scoring"
	"github.com/finbright/daytrade/backend/pkg/config"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

const trainFraction = 0.8

// Report is the outcome of one training run. A run that trains but
// does not promote is a success: the candidate stays in the table for
// inspection.
type Report struct {
	Version            string            `json:"version"`
	Samples            int               `json:"samples"`
	Horizon            contracts.Horizon `json:"horizon"`
	TrainAccuracy      float64           `json:"train_accuracy"`
	ValidationAccuracy float64           `json:"validation_accuracy"`
	ValidationAUC      float64           `json:"validation_auc"`
	Promoted           bool              `json:"promoted"`
	Reason             string            `json:"reason,omitempty"`
}

// Trainer retrains the scoring model from realized outcomes and
// promotes it only when it clears the safety gates.
type Trainer struct {
	builder *Builder
	models  contracts.ModelRepository
	holder  *scoring.ModelHolder
	cfg     config.EngineConfig
	log     *logger.Logger
}

func NewTrainer(builder *Builder, models contracts.ModelRepository, holder *scoring.ModelHolder, cfg config.EngineConfig, log *logger.Logger) *Trainer {
	return &Trainer{
		builder: builder,
		models:  models,
		holder:  holder,
		cfg:     cfg,
		log:     log.WithField("component", "trainer"),
	}
}

// Train builds the dataset for the lookback window, fits a candidate
// and promotes it when the gates pass. force waives the sample-size
// gate, never the quality gates.
func (t *Trainer) Train(ctx context.Context, now time.Time, force bool) (*Report, error) {
	start := now.AddDate(0, 0, -t.cfg.TrainLookbackDays)

	ds, err := t.builder.Build(ctx, start, now, t.cfg.TrainMinSamples)
	if err != nil {
		return nil, fmt.Errorf("build dataset: %w", err)
	}

	report := &Report{Samples: ds.Len(), Horizon: ds.Horizon}

	if ds.Len() < t.cfg.TrainMinSamples && !force {
		report.Reason = fmt.Sprintf("%d samples, need %d", ds.Len(), t.cfg.TrainMinSamples)
		t.log.WithField("samples", ds.Len()).Info("Too few samples, skipping training")
		return report, nil
	}
	if ds.Len() < 2 || len(ds.FeatureNames) == 0 {
		report.Reason = "dataset too small to split"
		return report, nil
	}

	train, val := ds.Split(trainFraction)
	if val.Len() == 0 {
		report.Reason = "empty validation split"
		return report, nil
	}

	fitted := Fit(train, DefaultFitConfig())

	report.Version = "v" + now.UTC().Format("20060102-150405")
	report.TrainAccuracy = Accuracy(fitted, train)
	report.ValidationAccuracy = Accuracy(fitted, val)
	report.ValidationAUC = AUC(fitted, val)

	model := &contracts.ModelVersion{
		Version:            report.Version,
		Status:             contracts.ModelCandidate,
		TrainedAt:          now,
		TrainStart:         start,
		TrainEnd:           now,
		SampleSize:         ds.Len(),
		TrainAccuracy:      report.TrainAccuracy,
		ValidationAccuracy: report.ValidationAccuracy,
		ValidationAUC:      report.ValidationAUC,
		FeatureNames:       ds.FeatureNames,
		SchemaHash:         ds.SchemaHash,
		Weights:            fitted.Weights,
		Bias:               fitted.Bias,
		FeatureMeans:       fitted.Means,
		FeatureScales:      fitted.Scales,
	}

	if err := t.models.InsertCandidate(ctx, model); err != nil {
		return nil, fmt.Errorf("store candidate: %w", err)
	}

	if reason := t.gateReason(ctx, report); reason != "" {
		report.Reason = reason
		t.log.WithFields(map[string]interface{}{
			"version": model.Version,
			"reason":  reason,
		}).Warn("Candidate not promoted")
		return report, nil
	}

	if err := t.models.Promote(ctx, model.ID); err != nil {
		return nil, fmt.Errorf("promote %s: %w", model.Version, err)
	}
	model.Status = contracts.ModelActive
	t.holder.Swap(model)
	report.Promoted = true

	t.log.WithFields(map[string]interface{}{
		"version": model.Version,
		"samples": model.SampleSize,
		"val_acc": report.ValidationAccuracy,
		"val_auc": report.ValidationAUC,
		"horizon": string(ds.Horizon),
	}).Info("Model promoted")

	return report, nil
}

// gateReason returns a human-readable rejection, or "" when the
// candidate may be promoted.
func (t *Trainer) gateReason(ctx context.Context, report *Report) string {
	gap := report.TrainAccuracy - report.ValidationAccuracy
	if gap > t.cfg.OverfitMaxGap {
		return fmt.Sprintf("overfit: train-validation gap %.3f exceeds %.3f", gap, t.cfg.OverfitMaxGap)
	}

	active, err := t.models.GetActive(ctx)
	if err != nil {
		if errors.Is(err, contracts.ErrNoActiveModel) {
			return ""
		}
		return fmt.Sprintf("cannot compare against active model: %v", err)
	}

	floor := active.ValidationAccuracy - t.cfg.RegressTolerance
	if report.ValidationAccuracy < floor {
		return fmt.Sprintf("regression: validation %.3f below active %.3f - tolerance %.3f",
			report.ValidationAccuracy, active.ValidationAccuracy, t.cfg.RegressTolerance)
	}

	return ""
}

// Restore loads the active model from storage into the in-memory
// holder at startup. Missing model is not an error: the engine scores
// on rules alone until the first promotion.
func (t *Trainer) Restore(ctx context.Context) error {
	model, err := t.models.GetActive(ctx)
	if err != nil {
		if errors.Is(err, contracts.ErrNoActiveModel) {
			t.log.Info("No active model, rule scoring only")
			return nil
		}
		return fmt.Errorf("load active model: %w", err)
	}

	t.holder.Swap(model)
	t.log.WithField("version", model.Version).Info("Active model restored")
	return nil
}
