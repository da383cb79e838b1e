package scoring

import (
	"fmt"

	"github.com/finbright/daytrade/backend/pkg/logger"
)

// BlendedStrategy combines the rule score with the active model's
// win probability:
//
//	score = (1-w) * rule + w * prob*10
//
// When no model is active, or its schema does not match the snapshot,
// the rule score stands alone and MLProb stays nil. The engine keeps
// emitting signals from day one and the model earns weight only after
// promotion.
type BlendedStrategy struct {
	rule   *RuleStrategy
	models *ModelHolder
	weight float64
	log    *logger.Logger
}

func NewBlendedStrategy(models *ModelHolder, mlWeight float64, log *logger.Logger) *BlendedStrategy {
	return &BlendedStrategy{
		rule:   NewRuleStrategy(),
		models: models,
		weight: mlWeight,
		log:    log.WithField("component", "scoring"),
	}
}

func (s *BlendedStrategy) Name() string { return "blended" }

// ActiveModelVersion names the currently installed model, or "" when
// scoring runs on rules alone.
func (s *BlendedStrategy) ActiveModelVersion() string {
	if m := s.models.Active(); m != nil {
		return m.Version
	}
	return ""
}

func (s *BlendedStrategy) Score(in Input) Result {
	res := s.rule.Score(in)

	model := s.models.Active()
	if model == nil || in.Features == nil {
		return res
	}

	if model.SchemaHash != in.Features.SchemaHash() {
		s.log.WithFields(map[string]interface{}{
			"model":  model.Version,
			"symbol": in.Features.Symbol,
		}).Warn("Model schema mismatch, rule score only")
		return res
	}

	prob, err := Predict(model, in.Features.Map())
	if err != nil {
		s.log.WithError(err).Warn("Model inference failed, rule score only")
		return res
	}

	res.MLProb = &prob
	res.Score = clampScore((1-s.weight)*res.RuleScore + s.weight*prob*MaxScore)
	res.Accepted = res.Score >= ThresholdFor(in.Mode)
	res.Reasons = append(res.Reasons, fmt.Sprintf("model %s prob %.3f (weight %.2f)", model.Version, prob, s.weight))

	return res
}
