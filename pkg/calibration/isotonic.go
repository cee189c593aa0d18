package calibration

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// IsotonicRegression is a monotone step function fit by Pool Adjacent
// Violators, stored as reduced (x, y) breakpoints. Lookups interpolate
// linearly between breakpoints and clamp outside the fitted range.
// Immutable after fitting.
type IsotonicRegression struct {
	Increasing bool
	xs, ys     []float64
}

// FitIsotonic fits the best monotone step function of labels on scores
// under weighted squared error. Labels may be any float targets (0/1 for
// calibration); weights may be nil. The fit direction is whichever of
// non-decreasing or non-increasing yields the lower weighted squared
// error, with the Spearman correlation sign breaking ties.
func FitIsotonic(scores, labels, weights []float64) (*IsotonicRegression, error) {
	n := len(scores)
	if n == 0 || len(labels) != n {
		return nil, errMismatched(n, len(labels))
	}
	if weights != nil && len(weights) != n {
		return nil, errMismatched(n, len(weights))
	}
	if weights != nil {
		for _, w := range weights {
			if w < 0 {
				return nil, errors.New("calibration: negative sample weight")
			}
		}
	}

	xs, ys, ws := collapseTies(scores, labels, weights)
	if len(xs) < 2 {
		return nil, &InsufficientDataForIsotonicError{Distinct: len(xs)}
	}

	up := pava(ys, ws, false)
	down := pava(ys, ws, true)
	upErr := weightedSSE(ys, up, ws)
	downErr := weightedSSE(ys, down, ws)

	increasing := true
	switch {
	case upErr < downErr:
	case downErr < upErr:
		increasing = false
	default:
		// Equal fit quality: follow the rank correlation sign. Constant
		// targets have no defined correlation; stay increasing.
		rho := spearman(xs, ys, ws)
		increasing = math.IsNaN(rho) || rho >= 0
	}

	fitted := up
	if !increasing {
		fitted = down
	}
	keepX, keepY := reduceBreakpoints(xs, fitted)
	return &IsotonicRegression{Increasing: increasing, xs: keepX, ys: keepY}, nil
}

// Predict evaluates the fitted step function: clamped to the boundary
// values outside the fitted range, linearly interpolated inside.
func (r *IsotonicRegression) Predict(scores []float64) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = r.predictOne(s)
	}
	return out
}

func (r *IsotonicRegression) predictOne(s float64) float64 {
	last := len(r.xs) - 1
	if s <= r.xs[0] {
		return r.ys[0]
	}
	if s >= r.xs[last] {
		return r.ys[last]
	}
	j := sort.SearchFloat64s(r.xs, s)
	if r.xs[j] == s {
		return r.ys[j]
	}
	x0, x1 := r.xs[j-1], r.xs[j]
	y0, y1 := r.ys[j-1], r.ys[j]
	return y0 + (y1-y0)*(s-x0)/(x1-x0)
}

// Breakpoints returns copies of the fitted breakpoint coordinates.
func (r *IsotonicRegression) Breakpoints() (xs, ys []float64) {
	xs = append(xs, r.xs...)
	ys = append(ys, r.ys...)
	return
}

// collapseTies sorts samples by score (stable on ties) and merges equal
// scores into one point with the weighted-mean target and summed weight.
// Tied scores cannot receive different monotone outputs, so they must be
// averaged before fitting.
func collapseTies(scores, labels, weights []float64) (xs, ys, ws []float64) {
	n := len(scores)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return scores[idx[i]] < scores[idx[j]] })

	for i := 0; i < n; {
		x := scores[idx[i]]
		sumWY, sumW := 0.0, 0.0
		for i < n && scores[idx[i]] == x {
			w := 1.0
			if weights != nil {
				w = weights[idx[i]]
			}
			sumWY += w * labels[idx[i]]
			sumW += w
			i++
		}
		if sumW == 0 {
			continue // zero-weight group carries no information
		}
		xs = append(xs, x)
		ys = append(ys, sumWY/sumW)
		ws = append(ws, sumW)
	}
	return
}

// pava runs Pool Adjacent Violators over (ys, ws), returning the fitted
// values aligned with ys. decreasing fits a non-increasing sequence by
// mirroring the targets.
func pava(ys, ws []float64, decreasing bool) []float64 {
	n := len(ys)
	y := make([]float64, n)
	for i, v := range ys {
		if decreasing {
			y[i] = -v
		} else {
			y[i] = v
		}
	}

	// Blocks of pooled values: level, weight, and member count.
	level := make([]float64, 0, n)
	weight := make([]float64, 0, n)
	count := make([]int, 0, n)
	for i := 0; i < n; i++ {
		level = append(level, y[i])
		weight = append(weight, ws[i])
		count = append(count, 1)
		// Merge backwards while the monotonicity constraint is violated.
		for len(level) > 1 && level[len(level)-2] > level[len(level)-1] {
			l2, w2, c2 := level[len(level)-1], weight[len(level)-1], count[len(level)-1]
			level = level[:len(level)-1]
			weight = weight[:len(weight)-1]
			count = count[:len(count)-1]
			k := len(level) - 1
			merged := (level[k]*weight[k] + l2*w2) / (weight[k] + w2)
			level[k] = merged
			weight[k] += w2
			count[k] += c2
		}
	}

	out := make([]float64, 0, n)
	for b, c := range count {
		v := level[b]
		if decreasing {
			v = -v
		}
		for j := 0; j < c; j++ {
			out = append(out, v)
		}
	}
	return out
}

func weightedSSE(ys, fit, ws []float64) float64 {
	s := 0.0
	for i := range ys {
		d := ys[i] - fit[i]
		s += ws[i] * d * d
	}
	return s
}

// reduceBreakpoints drops interior points whose level duplicates both
// neighbors: the endpoints of each flat segment are enough for exact
// linear interpolation.
func reduceBreakpoints(xs, ys []float64) (keepX, keepY []float64) {
	n := len(xs)
	for i := 0; i < n; i++ {
		if i > 0 && i < n-1 && ys[i] == ys[i-1] && ys[i] == ys[i+1] {
			continue
		}
		keepX = append(keepX, xs[i])
		keepY = append(keepY, ys[i])
	}
	return
}

// spearman is the rank correlation of ys on xs with tie-averaged ranks.
func spearman(xs, ys, ws []float64) float64 {
	return stat.Correlation(ranks(xs), ranks(ys), ws)
}

func ranks(data []float64) []float64 {
	n := len(data)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return data[idx[i]] < data[idx[j]] })

	out := make([]float64, n)
	for i := 0; i < n; {
		j := i + 1
		for j < n && data[idx[j]] == data[idx[i]] {
			j++
		}
		avg := float64(i+1) + float64(j-i-1)/2
		for k := i; k < j; k++ {
			out[idx[k]] = avg
		}
		i = j
	}
	return out
}
