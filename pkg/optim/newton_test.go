package optim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewton2Quadratic(t *testing.T) {
	// Convex quadratic with minimum at (3, -1): one Newton step suffices.
	f := func(p [2]float64) (float64, [2]float64, [2][2]float64) {
		dx, dy := p[0]-3, p[1]+1
		return dx*dx + dy*dy,
			[2]float64{2 * dx, 2 * dy},
			[2][2]float64{{2, 0}, {0, 2}}
	}
	p, loss, converged, iters := NewNewton2().Minimize(f, [2]float64{0, 0})
	require.True(t, converged)
	assert.InDelta(t, 3, p[0], 1e-8)
	assert.InDelta(t, -1, p[1], 1e-8)
	assert.InDelta(t, 0, loss, 1e-12)
	assert.LessOrEqual(t, iters, 3)
}

func TestNewton2SingularHessianFallsBackToGradient(t *testing.T) {
	// Objective flat in the second coordinate: singular Hessian, so the
	// solver must descend along the gradient instead.
	f := func(p [2]float64) (float64, [2]float64, [2][2]float64) {
		return p[0] * p[0],
			[2]float64{2 * p[0], 0},
			[2][2]float64{{2, 0}, {0, 0}}
	}
	p, loss, converged, _ := NewNewton2().Minimize(f, [2]float64{4, 2})
	require.True(t, converged)
	assert.InDelta(t, 0, p[0], 1e-6)
	assert.InDelta(t, 2, p[1], 1e-12, "the flat coordinate stays put")
	assert.InDelta(t, 0, loss, 1e-10)
}

func TestNewton2IterationCap(t *testing.T) {
	// A valley the damped steps keep descending into without meeting the
	// tolerance within a single allowed iteration.
	f := func(p [2]float64) (float64, [2]float64, [2][2]float64) {
		dx, dy := p[0]-3, p[1]+1
		return dx*dx + dy*dy,
			[2]float64{2 * dx, 2 * dy},
			[2][2]float64{{2, 0}, {0, 2}}
	}
	n := &Newton2{Tol: 1e-10, MaxIter: 1, MaxHalve: 1}
	_, _, converged, iters := n.Minimize(f, [2]float64{100, 100})
	assert.False(t, converged)
	assert.Equal(t, 1, iters)
}

func TestSGDStep(t *testing.T) {
	o := NewSGD(0.1)
	w := []float64{1, 2}
	o.Step(w, []float64{10, -10})
	assert.Equal(t, []float64{0, 3}, w)
}
