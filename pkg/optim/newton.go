package optim

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Eval2 evaluates a twice-differentiable objective of two parameters,
// returning the loss, gradient and Hessian at p.
type Eval2 func(p [2]float64) (loss float64, grad [2]float64, hess [2][2]float64)

// Newton2 is a damped Newton minimizer for two-parameter objectives.
// Each step solves the 2x2 Newton system and backtracks along the step
// direction until the loss decreases; a singular Hessian falls back to a
// plain gradient step.
type Newton2 struct {
	Tol      float64 // relative loss-improvement tolerance
	MaxIter  int
	MaxHalve int // line-search halvings per step
}

// NewNewton2 returns a solver with the default tolerances.
func NewNewton2() *Newton2 {
	return &Newton2{Tol: 1e-10, MaxIter: 100, MaxHalve: 30}
}

// Minimize runs bounded Newton iteration from p0. It produces a sequence
// of (iterate, loss) pairs internally and returns the first iterate whose
// relative improvement falls below Tol, or the last one on exhaustion,
// with converged reporting which case occurred.
func (n *Newton2) Minimize(f Eval2, p0 [2]float64) (p [2]float64, loss float64, converged bool, iters int) {
	p = p0
	loss, grad, hess := f(p)

	for iters = 0; iters < n.MaxIter; iters++ {
		if math.Hypot(grad[0], grad[1]) < 1e-9 {
			return p, loss, true, iters
		}
		dir, ok := newtonDirection(grad, hess)
		if !ok {
			// Singular system: steepest descent instead.
			dir = [2]float64{-grad[0], -grad[1]}
		}

		// Backtracking line search along dir.
		step := 1.0
		next := p
		nextLoss := loss
		improved := false
		for h := 0; h < n.MaxHalve; h++ {
			cand := [2]float64{p[0] + step*dir[0], p[1] + step*dir[1]}
			l, _, _ := f(cand)
			if l < loss && !math.IsNaN(l) {
				next, nextLoss = cand, l
				improved = true
				break
			}
			step /= 2
		}
		if !improved {
			// No descent direction left; report the best iterate found.
			return p, loss, false, iters
		}

		rel := (loss - nextLoss) / math.Max(math.Abs(loss), 1)
		p = next
		loss, grad, hess = f(p)
		if rel < n.Tol {
			return p, loss, true, iters + 1
		}
	}
	return p, loss, false, n.MaxIter
}

// newtonDirection solves H*d = -g. ok is false when H is singular or
// badly conditioned.
func newtonDirection(g [2]float64, h [2][2]float64) ([2]float64, bool) {
	H := mat.NewDense(2, 2, []float64{h[0][0], h[0][1], h[1][0], h[1][1]})
	b := mat.NewVecDense(2, []float64{-g[0], -g[1]})
	var d mat.VecDense
	if err := d.SolveVec(H, b); err != nil {
		return [2]float64{}, false
	}
	if math.IsNaN(d.AtVec(0)) || math.IsNaN(d.AtVec(1)) ||
		math.IsInf(d.AtVec(0), 0) || math.IsInf(d.AtVec(1), 0) {
		return [2]float64{}, false
	}
	return [2]float64{d.AtVec(0), d.AtVec(1)}, true
}
