package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finbright/daytrade/backend/internal/contracts"
)

// ModelRepository implements contracts.ModelRepository. The partial
// unique index on status = 'active' guarantees at most one active
// model no matter how promotions race.
type ModelRepository struct {
	pool *pgxpool.Pool
}

// NewModelRepository creates a new model repository
func NewModelRepository(pool *pgxpool.Pool) *ModelRepository {
	return &ModelRepository{pool: pool}
}

// InsertCandidate stores a freshly trained, unpromoted model.
func (r *ModelRepository) InsertCandidate(ctx context.Context, model *contracts.ModelVersion) error {
	query := `
		INSERT INTO trading.model_versions (
			version, status, trained_at, train_start, train_end, sample_size,
			train_accuracy, validation_accuracy, validation_auc,
			feature_names, schema_hash, weights, bias,
			feature_means, feature_scales, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		model.Version, string(contracts.ModelCandidate),
		model.TrainedAt, model.TrainStart, model.TrainEnd, model.SampleSize,
		model.TrainAccuracy, model.ValidationAccuracy, model.ValidationAUC,
		model.FeatureNames, model.SchemaHash, model.Weights, model.Bias,
		model.FeatureMeans, model.FeatureScales, model.Notes,
	).Scan(&model.ID)
	if err != nil {
		return fmt.Errorf("failed to insert candidate model: %w", err)
	}

	model.Status = contracts.ModelCandidate
	return nil
}

// Promote retires the current active model and activates the
// candidate in one transaction. A crash between the two updates
// rolls both back; there is no window with zero or two active models.
func (r *ModelRepository) Promote(ctx context.Context, candidateID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	retireQuery := `
		UPDATE trading.model_versions
		SET status = $1
		WHERE status = $2
	`
	if _, err := tx.Exec(ctx, retireQuery, string(contracts.ModelRetired), string(contracts.ModelActive)); err != nil {
		return fmt.Errorf("failed to retire active model: %w", err)
	}

	activateQuery := `
		UPDATE trading.model_versions
		SET status = $1
		WHERE id = $2 AND status = $3
	`
	tag, err := tx.Exec(ctx, activateQuery, string(contracts.ModelActive), candidateID, string(contracts.ModelCandidate))
	if err != nil {
		return fmt.Errorf("failed to activate candidate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("model %d is not a promotable candidate", candidateID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit promotion: %w", err)
	}

	return nil
}

// GetActive returns the active model, or ErrNoActiveModel.
func (r *ModelRepository) GetActive(ctx context.Context) (*contracts.ModelVersion, error) {
	query := `
		SELECT
			id, version, status, trained_at, train_start, train_end, sample_size,
			train_accuracy, validation_accuracy, validation_auc,
			feature_names, schema_hash, weights, bias,
			feature_means, feature_scales, notes
		FROM trading.model_versions
		WHERE status = $1
	`

	var m contracts.ModelVersion
	var status string

	err := r.pool.QueryRow(ctx, query, string(contracts.ModelActive)).Scan(
		&m.ID, &m.Version, &status, &m.TrainedAt, &m.TrainStart, &m.TrainEnd, &m.SampleSize,
		&m.TrainAccuracy, &m.ValidationAccuracy, &m.ValidationAUC,
		&m.FeatureNames, &m.SchemaHash, &m.Weights, &m.Bias,
		&m.FeatureMeans, &m.FeatureScales, &m.Notes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contracts.ErrNoActiveModel
		}
		return nil, fmt.Errorf("failed to get active model: %w", err)
	}

	m.Status = contracts.ModelStatus(status)
	return &m, nil
}
