package contracts

import "time"

// ModelStatus is the lifecycle state of a trained scoring model.
// Candidate -> {Active | Retained}; Active -> Retired on the next
// promotion.
type ModelStatus string

const (
	ModelCandidate ModelStatus = "candidate"
	ModelActive    ModelStatus = "active"
	ModelRetired   ModelStatus = "retired"
)

// ModelVersion is one trained logistic-regression scorer. Exactly
// one version is active at a time; promotion is a single
// transactional flip.
type ModelVersion struct {
	ID      int64       `json:"id"`
	Version string      `json:"version"`
	Status  ModelStatus `json:"status"`

	TrainedAt  time.Time `json:"trained_at"`
	TrainStart time.Time `json:"train_start"`
	TrainEnd   time.Time `json:"train_end"`
	SampleSize int       `json:"sample_size"`

	TrainAccuracy      float64 `json:"train_accuracy"`
	ValidationAccuracy float64 `json:"validation_accuracy"`
	ValidationAUC      float64 `json:"validation_auc"`

	// FeatureNames fixes the input vector order; SchemaHash must
	// match the signals the model is applied to.
	FeatureNames []string  `json:"feature_names"`
	SchemaHash   string    `json:"schema_hash"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`

	// Means and scales for per-feature standardization at inference
	// time, recorded from the training set.
	FeatureMeans  []float64 `json:"feature_means"`
	FeatureScales []float64 `json:"feature_scales"`

	Notes string `json:"notes,omitempty"`
}
