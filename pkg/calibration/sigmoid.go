package calibration

import (
	"log/slog"
	"math"

	"calibrate/pkg/optim"
)

// SigmoidCalibration maps raw scores to probabilities through the Platt
// sigmoid p = 1 / (1 + exp(A*score + B)). Immutable after fitting.
type SigmoidCalibration struct {
	A, B      float64
	Converged bool
	Iters     int
}

// FitSigmoid fits Platt scaling on (score, label) pairs by maximum
// likelihood. Labels must be 0/1; weights may be nil for an unweighted
// fit. Hard labels are replaced with Platt's smoothed targets,
// (n_pos+1)/(n_pos+2) and 1/(n_neg+2), to avoid overfitting the
// calibration set. Newton non-convergence is not fatal: the best iterate
// is kept and a warning logged.
func FitSigmoid(scores []float64, labels []int, weights []float64) (*SigmoidCalibration, error) {
	n := len(scores)
	if n == 0 || len(labels) != n {
		return nil, errMismatched(n, len(labels))
	}
	if weights != nil && len(weights) != n {
		return nil, errMismatched(n, len(weights))
	}

	nPos, nNeg := 0, 0
	for _, l := range labels {
		if l == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return nil, &InsufficientClassDataError{Positives: nPos, Negatives: nNeg}
	}

	// Platt targets (Platt 1999, end of section 2.2).
	tPos := (float64(nPos) + 1) / (float64(nPos) + 2)
	tNeg := 1 / (float64(nNeg) + 2)
	targets := make([]float64, n)
	for i, l := range labels {
		if l == 1 {
			targets[i] = tPos
		} else {
			targets[i] = tNeg
		}
	}

	objective := func(p [2]float64) (loss float64, grad [2]float64, hess [2][2]float64) {
		a, b := p[0], p[1]
		for i := 0; i < n; i++ {
			w := 1.0
			if weights != nil {
				w = weights[i]
			}
			f := scores[i]
			t := targets[i]
			z := a*f + b
			// P(y=1) = 1/(1+exp(z)); cross-entropy against the smoothed target.
			var prob float64
			if z >= 0 {
				e := math.Exp(-z)
				prob = e / (1 + e)
			} else {
				prob = 1 / (1 + math.Exp(z))
			}
			loss -= w * (t*math.Log(prob+probEps) + (1-t)*math.Log(1-prob+probEps))

			// d(loss)/dz = t - prob; d2(loss)/dz2 = prob*(1-prob), both times w.
			g := w * (t - prob)
			h := w * prob * (1 - prob)
			grad[0] += g * f
			grad[1] += g
			hess[0][0] += h * f * f
			hess[0][1] += h * f
			hess[1][1] += h
		}
		hess[1][0] = hess[0][1]
		return loss, grad, hess
	}

	p0 := [2]float64{0, math.Log((float64(nNeg) + 1) / (float64(nPos) + 1))}
	p, _, converged, iters := optim.NewNewton2().Minimize(objective, p0)

	cal := &SigmoidCalibration{A: p[0], B: p[1], Converged: converged, Iters: iters}
	if !converged {
		slog.Warn("sigmoid calibration did not converge, keeping best iterate",
			"iterations", iters, "a", cal.A, "b", cal.B)
	}
	return cal, nil
}

// Predict maps raw scores to calibrated probabilities in (0, 1).
func (c *SigmoidCalibration) Predict(scores []float64) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = c.predictOne(s)
	}
	return out
}

func (c *SigmoidCalibration) predictOne(s float64) float64 {
	z := c.A*s + c.B
	if z >= 0 {
		e := math.Exp(-z)
		return e / (1 + e)
	}
	return 1 / (1 + math.Exp(z))
}
