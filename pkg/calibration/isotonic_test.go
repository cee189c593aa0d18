package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitIsotonicMonotoneIncreasing(t *testing.T) {
	scores := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	labels := []float64{0, 0, 1, 0, 1, 1, 0, 1} // noisy but upward
	iso, err := FitIsotonic(scores, labels, nil)
	require.NoError(t, err)
	assert.True(t, iso.Increasing)

	prev := -1.0
	for s := 0.0; s <= 9.0; s += 0.5 {
		p := iso.Predict([]float64{s})[0]
		assert.GreaterOrEqual(t, p, prev)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		prev = p
	}
}

func TestFitIsotonicDecreasing(t *testing.T) {
	scores := []float64{1, 2, 3, 4, 5, 6}
	labels := []float64{1, 1, 1, 0, 0, 0}
	iso, err := FitIsotonic(scores, labels, nil)
	require.NoError(t, err)
	assert.False(t, iso.Increasing)
	assert.Greater(t, iso.Predict([]float64{1})[0], iso.Predict([]float64{6})[0])
}

func TestFitIsotonicAveragesTies(t *testing.T) {
	// Tied scores cannot receive different monotone outputs.
	scores := []float64{1, 1, 2}
	labels := []float64{0, 1, 1}
	iso, err := FitIsotonic(scores, labels, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, iso.Predict([]float64{1})[0], 1e-12)
	assert.InDelta(t, 1.0, iso.Predict([]float64{2})[0], 1e-12)
}

func TestFitIsotonicInterpolatesAndClamps(t *testing.T) {
	iso, err := FitIsotonic([]float64{1, 3}, []float64{0, 1}, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, iso.Predict([]float64{2})[0], 1e-12)
	assert.InDelta(t, 0.25, iso.Predict([]float64{1.5})[0], 1e-12)
	// Out-of-range queries clamp to the boundary values.
	assert.InDelta(t, 0.0, iso.Predict([]float64{-10})[0], 1e-12)
	assert.InDelta(t, 1.0, iso.Predict([]float64{10})[0], 1e-12)
}

func TestFitIsotonicPoolsViolators(t *testing.T) {
	// A single violating pair pools to its weighted mean; the pooled fit
	// has no larger squared error than the obvious monotone alternatives.
	scores := []float64{1, 2}
	labels := []float64{1, 0}
	iso, err := FitIsotonic(scores, labels, nil)
	require.NoError(t, err)

	got := iso.Predict([]float64{1, 2})
	sse := func(fit []float64) float64 {
		s := 0.0
		for i := range fit {
			d := fit[i] - labels[i]
			s += d * d
		}
		return s
	}
	for _, alt := range [][]float64{{0, 0}, {1, 1}, {0, 1}, {0.25, 0.75}} {
		assert.LessOrEqual(t, sse(got), sse(alt))
	}
}

func TestFitIsotonicTooFewDistinctScores(t *testing.T) {
	_, err := FitIsotonic([]float64{2, 2, 2}, []float64{0, 1, 1}, nil)
	var ifd *InsufficientDataForIsotonicError
	require.ErrorAs(t, err, &ifd)
	assert.Equal(t, 1, ifd.Distinct)

	_, err = FitIsotonic([]float64{2}, []float64{1}, nil)
	require.ErrorAs(t, err, &ifd)
}

func TestFitIsotonicReducesBreakpoints(t *testing.T) {
	// A long flat run keeps only its endpoints.
	scores := []float64{1, 2, 3, 4, 5, 6}
	labels := []float64{0, 0.5, 0.5, 0.5, 0.5, 1}
	iso, err := FitIsotonic(scores, labels, nil)
	require.NoError(t, err)

	xs, ys := iso.Breakpoints()
	assert.Len(t, xs, 4)
	assert.Equal(t, []float64{1, 2, 5, 6}, xs)
	assert.Equal(t, []float64{0, 0.5, 0.5, 1}, ys)
	// Interpolation across the reduced points is unchanged.
	assert.InDelta(t, 0.5, iso.Predict([]float64{3.7})[0], 1e-12)
}

func TestFitIsotonicWeightedTies(t *testing.T) {
	// Weighted tie collapse: each distinct score keeps the weighted mean
	// of its targets.
	scores := []float64{1, 1, 2, 2}
	labels := []float64{1, 0, 0, 1}
	weights := []float64{3, 1, 1, 3}
	iso, err := FitIsotonic(scores, labels, weights)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, iso.Predict([]float64{1})[0], 1e-12)
	assert.InDelta(t, 0.75, iso.Predict([]float64{2})[0], 1e-12)
}
