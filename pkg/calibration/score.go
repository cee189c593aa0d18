package calibration

import (
	"errors"
	"math"

	"calibrate/pkg/model"
)

// ScoreKind selects how raw scores are obtained from a base classifier.
type ScoreKind int

const (
	// ScoreAuto prefers the decision function and falls back to
	// probabilities.
	ScoreAuto ScoreKind = iota
	// ScoreMargin uses DecisionFunction.
	ScoreMargin
	// ScoreProbability uses PredictProba.
	ScoreProbability
)

func (k ScoreKind) String() string {
	switch k {
	case ScoreMargin:
		return "decision_function"
	case ScoreProbability:
		return "predict_proba"
	default:
		return "auto"
	}
}

// scorer is a ScoreKind resolved against a concrete classifier. The
// capability check happens once here, not per prediction call.
type scorer struct {
	kind ScoreKind
	fn   func(X [][]float64) []float64
}

// resolveScorer binds the requested kind to clf's capabilities. Auto
// prefers the unbounded margin: it fits the logistic form better.
func resolveScorer(clf model.Model, kind ScoreKind) (*scorer, error) {
	margin, hasMargin := clf.(model.MarginScorer)
	proba, hasProba := clf.(model.ProbaScorer)

	switch kind {
	case ScoreMargin:
		if !hasMargin {
			return nil, errors.New("calibration: classifier has no decision function")
		}
		return &scorer{kind: ScoreMargin, fn: margin.DecisionFunction}, nil
	case ScoreProbability:
		if !hasProba {
			return nil, errors.New("calibration: classifier has no probability estimates")
		}
		return &scorer{kind: ScoreProbability, fn: proba.PredictProba}, nil
	default:
		if hasMargin {
			return &scorer{kind: ScoreMargin, fn: margin.DecisionFunction}, nil
		}
		if hasProba {
			return &scorer{kind: ScoreProbability, fn: proba.PredictProba}, nil
		}
		return nil, errors.New("calibration: classifier has neither a decision function nor probability estimates")
	}
}

const probEps = 1e-12

// logit maps a probability to the unbounded score scale, clamped away
// from 0 and 1 so sigmoid fitting over probability sources stays finite.
func logit(p float64) float64 {
	p = math.Min(math.Max(p, probEps), 1-probEps)
	return math.Log(p / (1 - p))
}

func logitSlice(p []float64) []float64 {
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = logit(v)
	}
	return out
}
