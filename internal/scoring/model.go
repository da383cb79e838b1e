package scoring

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/finbright/daytrade/backend/internal/contracts"
)

// ModelHolder publishes the active model to scoring goroutines. Swap
// is a single pointer store, so a promotion mid-run never exposes a
// half-updated model.
type ModelHolder struct {
	ptr atomic.Pointer[contracts.ModelVersion]
}

func NewModelHolder() *ModelHolder {
	return &ModelHolder{}
}

// Active returns the current model, or nil when none is promoted.
func (h *ModelHolder) Active() *contracts.ModelVersion {
	return h.ptr.Load()
}

// Swap installs a newly promoted model. Passing nil clears it.
func (h *ModelHolder) Swap(m *contracts.ModelVersion) {
	h.ptr.Store(m)
}

// Predict runs logistic inference over a frozen feature snapshot.
// Inputs are standardized with the means and scales recorded at
// training time; features absent from the snapshot contribute their
// training mean (standardized zero).
func Predict(m *contracts.ModelVersion, features map[string]float64) (float64, error) {
	if len(m.Weights) != len(m.FeatureNames) {
		return 0, fmt.Errorf("model %s: %d weights for %d features", m.Version, len(m.Weights), len(m.FeatureNames))
	}

	z := m.Bias
	for i, name := range m.FeatureNames {
		v, ok := features[name]
		if !ok {
			continue
		}

		scale := 1.0
		mean := 0.0
		if i < len(m.FeatureMeans) {
			mean = m.FeatureMeans[i]
		}
		if i < len(m.FeatureScales) && m.FeatureScales[i] > 1e-9 {
			scale = m.FeatureScales[i]
		}

		z += m.Weights[i] * ((v - mean) / scale)
	}

	return 1.0 / (1.0 + math.Exp(-z)), nil
}
