package metrics

import (
	"errors"

	"github.com/montanaflynn/stats"
)

// CalibrationCurve bins predicted probabilities into nBins equal-width
// bins over [0, 1] and returns, per non-empty bin, the fraction of
// positives and the mean predicted probability. These are the points of a
// reliability diagram: a perfectly calibrated model lies on the diagonal.
// With normalize set, yProb is first min-max scaled into [0, 1]; without
// it, values outside [0, 1] are rejected.
func CalibrationCurve(yTrue []int, yProb []float64, nBins int, normalize bool) (probTrue, probPred []float64, err error) {
	n := len(yTrue)
	if n == 0 || len(yProb) != n {
		return nil, nil, errors.New("metrics: yTrue and yProb must be non-empty and equal length")
	}
	if nBins < 1 {
		return nil, nil, errors.New("metrics: nBins must be at least 1")
	}

	p := yProb
	if normalize {
		lo, _ := stats.Min(yProb)
		hi, _ := stats.Max(yProb)
		if hi == lo {
			return nil, nil, errors.New("metrics: cannot normalize constant probabilities")
		}
		p = make([]float64, n)
		for i, v := range yProb {
			p[i] = (v - lo) / (hi - lo)
		}
	} else {
		for _, v := range p {
			if v < 0 || v > 1 {
				return nil, nil, errors.New("metrics: yProb has values outside [0, 1] and normalize is off")
			}
		}
	}

	binProbs := make([][]float64, nBins)
	binTrues := make([][]float64, nBins)
	for i := 0; i < n; i++ {
		b := int(p[i] * float64(nBins))
		if b == nBins { // p == 1.0 lands in the last bin
			b = nBins - 1
		}
		binProbs[b] = append(binProbs[b], p[i])
		binTrues[b] = append(binTrues[b], float64(yTrue[i]))
	}

	for b := 0; b < nBins; b++ {
		if len(binProbs[b]) == 0 {
			continue
		}
		mt, _ := stats.Mean(binTrues[b])
		mp, _ := stats.Mean(binProbs[b])
		probTrue = append(probTrue, mt)
		probPred = append(probPred, mp)
	}
	return probTrue, probPred, nil
}
