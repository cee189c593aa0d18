package calibration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitSigmoidRecoversLogistic(t *testing.T) {
	// A score source whose probability is already a perfect logistic
	// function of the latent score. Each grid point contributes both
	// labels, weighted by the true probability, so the empirical
	// frequencies match the curve exactly.
	trueA, trueB := -1.7, 0.4
	var scores []float64
	var labels []int
	var weights []float64
	for s := -4.0; s <= 4.0; s += 0.02 {
		p := 1 / (1 + math.Exp(trueA*s+trueB))
		scores = append(scores, s, s)
		labels = append(labels, 1, 0)
		weights = append(weights, p, 1-p)
	}

	cal, err := FitSigmoid(scores, labels, weights)
	require.NoError(t, err)
	require.True(t, cal.Converged)

	for s := -3.0; s <= 3.0; s += 0.5 {
		want := 1 / (1 + math.Exp(trueA*s+trueB))
		got := cal.Predict([]float64{s})[0]
		// Platt's target smoothing keeps the fit a hair inside (0, 1).
		assert.InDelta(t, want, got, 0.02, "score %v", s)
	}
}

func TestFitSigmoidMonotone(t *testing.T) {
	scores := []float64{-3, -2, -1, -0.5, 0.5, 1, 2, 3}
	labels := []int{0, 0, 0, 0, 1, 1, 1, 1}
	cal, err := FitSigmoid(scores, labels, nil)
	require.NoError(t, err)

	prev := -1.0
	for s := -5.0; s <= 5.0; s += 0.25 {
		p := cal.Predict([]float64{s})[0]
		assert.Greater(t, p, 0.0)
		assert.Less(t, p, 1.0)
		assert.GreaterOrEqual(t, p, prev, "calibrated probability must not decrease with the score")
		prev = p
	}
}

func TestFitSigmoidPredictIdempotent(t *testing.T) {
	cal, err := FitSigmoid([]float64{-1, 0, 1, 2}, []int{0, 0, 1, 1}, nil)
	require.NoError(t, err)

	in := []float64{-0.3, 0.7, 1.9}
	first := cal.Predict(in)
	second := cal.Predict(in)
	assert.Equal(t, first, second)
}

func TestFitSigmoidSingleClass(t *testing.T) {
	_, err := FitSigmoid([]float64{0.1, 0.5, 0.9}, []int{1, 1, 1}, nil)
	var icd *InsufficientClassDataError
	require.ErrorAs(t, err, &icd)
	assert.Equal(t, 3, icd.Positives)
	assert.Equal(t, 0, icd.Negatives)
}

func TestFitSigmoidLengthMismatch(t *testing.T) {
	_, err := FitSigmoid([]float64{0.1, 0.5}, []int{1}, nil)
	require.Error(t, err)
}
