package model

// Model is a generic supervised classifier interface.
type Model interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) []int
}

// ProbaScorer exposes probability estimates.
type ProbaScorer interface {
	PredictProba(X [][]float64) []float64 // returns p(y=1) for binary classifiers
}

// MarginScorer exposes an unbounded decision-function score. Higher
// scores mean more confidence in the positive class.
type MarginScorer interface {
	DecisionFunction(X [][]float64) []float64
}

// Factory produces a fresh, unfitted classifier instance. Cross-validated
// fits call it once per fold so no state leaks between folds.
type Factory func() Model
