package calibration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/montanaflynn/stats"

	"calibrate/pkg/loader"
	"calibrate/pkg/metrics"
	"calibrate/pkg/model"
)

// CutoffMethod selects the criterion for threshold search.
type CutoffMethod string

const (
	// CutoffFBeta maximizes the F-beta score.
	CutoffFBeta CutoffMethod = "f_beta"
	// CutoffROC minimizes the distance to the ideal ROC corner (0, 1).
	CutoffROC CutoffMethod = "roc"
	// CutoffMaxTPR maximizes TPR subject to TNR >= bound.
	CutoffMaxTPR CutoffMethod = "max_tpr"
	// CutoffMaxTNR maximizes TNR subject to TPR >= bound.
	CutoffMaxTNR CutoffMethod = "max_tnr"
)

// CutoffClassifier selects the decision threshold that optimizes a chosen
// operating criterion on held-out scores. With cv folds the final
// threshold is the arithmetic mean of the per-fold optima; with prefit it
// is a single search over all supplied data.
type CutoffClassifier struct {
	method  CutoffMethod
	scoring ScoreKind
	cv      int // 0 => prefit
	beta    float64
	bound   float64
	seed    int64

	factory model.Factory
	base    model.Model

	sc        *scorer
	threshold float64
	fitted    bool
}

// CutoffOption configures a CutoffClassifier.
type CutoffOption func(*CutoffClassifier)

func WithCutoffMethod(m CutoffMethod) CutoffOption {
	return func(c *CutoffClassifier) { c.method = m }
}
func WithCutoffScoring(k ScoreKind) CutoffOption {
	return func(c *CutoffClassifier) { c.scoring = k }
}
func WithCutoffFolds(k int) CutoffOption    { return func(c *CutoffClassifier) { c.cv = k } }
func WithBeta(beta float64) CutoffOption    { return func(c *CutoffClassifier) { c.beta = beta } }
func WithBound(bound float64) CutoffOption  { return func(c *CutoffClassifier) { c.bound = bound } }
func WithCutoffSeed(seed int64) CutoffOption { return func(c *CutoffClassifier) { c.seed = seed } }

// NewCutoffClassifier builds a cross-validated threshold selector: each
// fold fits a fresh classifier on the training partition and searches the
// threshold on the held-out partition. After averaging, a final
// classifier is fit on the full data for prediction.
func NewCutoffClassifier(factory model.Factory, opts ...CutoffOption) *CutoffClassifier {
	c := &CutoffClassifier{method: CutoffROC, cv: 3, beta: 1, factory: factory}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewPrefitCutoffClassifier searches the threshold for an already-trained
// classifier over the whole Fit input.
func NewPrefitCutoffClassifier(clf model.Model, opts ...CutoffOption) *CutoffClassifier {
	c := NewCutoffClassifier(nil, opts...)
	c.cv = 0
	c.base = clf
	return c
}

// Threshold returns the selected decision threshold.
func (c *CutoffClassifier) Threshold() float64 { return c.threshold }

// Fit selects the decision threshold. y must be binary 0/1.
func (c *CutoffClassifier) Fit(ctx context.Context, X [][]float64, y []int) error {
	n := len(X)
	if n == 0 || len(y) != n {
		return errMismatched(n, len(y))
	}
	for _, l := range y {
		if l != 0 && l != 1 {
			return errors.New("calibration: cutoff search needs binary 0/1 labels")
		}
	}
	switch c.method {
	case CutoffFBeta:
		if c.beta <= 0 {
			return fmt.Errorf("calibration: beta must be positive, got %g", c.beta)
		}
	case CutoffMaxTPR, CutoffMaxTNR:
		if c.bound < 0 || c.bound > 1 {
			return fmt.Errorf("calibration: rate bound must be in [0, 1], got %g", c.bound)
		}
	case CutoffROC:
	default:
		return fmt.Errorf("calibration: unknown cutoff method %q", c.method)
	}

	if c.cv == 0 {
		sc, err := resolveScorer(c.base, c.scoring)
		if err != nil {
			return err
		}
		t, err := searchThreshold(sc.fn(X), y, c.method, c.beta, c.bound)
		if err != nil {
			return err
		}
		c.sc = sc
		c.threshold = t
		c.fitted = true
		return nil
	}

	if c.factory == nil {
		return errors.New("calibration: cv mode needs a classifier factory")
	}
	rnd := rand.New(rand.NewSource(c.seed))
	folds, err := loader.StratifiedKFold(y, c.cv, rnd)
	if err != nil {
		return err
	}
	if err := checkFolds(folds, y); err != nil {
		return err
	}

	thresholds := make([]float64, len(folds))
	for fi, holdout := range folds {
		if err := ctx.Err(); err != nil {
			return err
		}
		train := loader.Complement(n, holdout)
		clf := c.factory()
		if err := clf.Fit(gather(X, train), gatherInts(y, train)); err != nil {
			return fmt.Errorf("calibration: fold %d base fit: %w", fi, err)
		}
		sc, err := resolveScorer(clf, c.scoring)
		if err != nil {
			return err
		}
		t, err := searchThreshold(sc.fn(gather(X, holdout)), gatherInts(y, holdout), c.method, c.beta, c.bound)
		if err != nil {
			return fmt.Errorf("calibration: fold %d: %w", fi, err)
		}
		thresholds[fi] = t
	}

	mean, err := stats.Mean(thresholds)
	if err != nil {
		return err
	}

	// Final predictor: a fresh classifier fit on everything.
	final := c.factory()
	if err := final.Fit(X, y); err != nil {
		return err
	}
	sc, err := resolveScorer(final, c.scoring)
	if err != nil {
		return err
	}
	c.base = final
	c.sc = sc
	c.threshold = mean
	c.fitted = true
	return nil
}

// Predict classifies positive iff the resolved score is >= the selected
// threshold. Safe for concurrent use once fitted.
func (c *CutoffClassifier) Predict(X [][]float64) ([]int, error) {
	if !c.fitted {
		return nil, ErrNotFitted
	}
	scores := c.sc.fn(X)
	out := make([]int, len(scores))
	for i, s := range scores {
		if s >= c.threshold {
			out[i] = 1
		}
	}
	return out, nil
}

// candidateRates holds confusion-derived rates at one candidate threshold.
type candidateRates struct {
	t         float64
	tpr, tnr  float64
	precision float64
}

// searchThreshold scans every distinct observed score (ascending, plus a
// sentinel above the maximum for the all-negative classifier) and selects
// the optimum for the requested criterion. The returned threshold is
// clamped into the observed score range so it is always a usable finite
// cutoff.
func searchThreshold(scores []float64, y []int, method CutoffMethod, beta, bound float64) (float64, error) {
	cands, err := candidateThresholds(scores, y)
	if err != nil {
		return 0, err
	}
	minScore, maxScore := scores[0], scores[0]
	for _, s := range scores {
		minScore = math.Min(minScore, s)
		maxScore = math.Max(maxScore, s)
	}

	best := math.NaN()
	switch method {
	case CutoffFBeta:
		bestScore := math.Inf(-1)
		for _, c := range cands {
			// Strict improvement on an ascending scan keeps the smallest
			// threshold among ties.
			if f := metrics.FBeta(c.precision, c.tpr, beta); f > bestScore {
				bestScore, best = f, c.t
			}
		}
	case CutoffROC:
		bestDist := math.Inf(1)
		for _, c := range cands {
			fpr := 1 - c.tnr
			if d := fpr*fpr + (c.tpr-1)*(c.tpr-1); d < bestDist {
				bestDist, best = d, c.t
			}
		}
	case CutoffMaxTPR:
		// The all-negative sentinel has TNR 1 by construction and would
		// make any floor trivially satisfiable; it is not a usable
		// operating point, so the constrained search skips it.
		bestTPR := math.Inf(-1)
		for _, c := range cands[:len(cands)-1] {
			if c.tnr >= bound && c.tpr > bestTPR {
				bestTPR, best = c.tpr, c.t
			}
		}
		if math.IsNaN(best) {
			return 0, &UnsatisfiableConstraintError{Method: string(method), Bound: bound}
		}
	case CutoffMaxTNR:
		// Symmetric: skip the all-positive candidate at the minimum score.
		bestTNR := math.Inf(-1)
		for _, c := range cands[1:] {
			if c.tpr >= bound && c.tnr > bestTNR {
				bestTNR, best = c.tnr, c.t
			}
		}
		if math.IsNaN(best) {
			return 0, &UnsatisfiableConstraintError{Method: string(method), Bound: bound}
		}
	}
	if math.IsNaN(best) {
		return 0, errors.New("calibration: threshold search produced no candidate")
	}
	return math.Min(math.Max(best, minScore), maxScore), nil
}

// candidateThresholds computes rates for classifying score >= t as
// positive, for t over the ascending distinct scores plus the above-max
// sentinel. Suffix counts over the sorted samples give each candidate in
// amortized constant time.
func candidateThresholds(scores []float64, y []int) ([]candidateRates, error) {
	n := len(scores)
	if n == 0 || len(y) != n {
		return nil, errMismatched(n, len(y))
	}
	pos, neg := 0, 0
	for _, l := range y {
		if l == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return nil, errors.New("calibration: threshold search needs both classes present")
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return scores[idx[i]] < scores[idx[j]] })

	var cands []candidateRates
	// Walking candidates upward, samples below the current threshold have
	// already been surrendered to the negative prediction.
	tp, fp := pos, neg
	for i := 0; i < n; {
		t := scores[idx[i]]
		cands = append(cands, rates(t, tp, fp, pos, neg))
		for i < n && scores[idx[i]] == t {
			if y[idx[i]] == 1 {
				tp--
			} else {
				fp--
			}
			i++
		}
	}
	// Sentinel above the maximum: nothing predicted positive.
	maxScore := scores[idx[n-1]]
	cands = append(cands, rates(math.Nextafter(maxScore, math.Inf(1)), 0, 0, pos, neg))
	return cands, nil
}

func rates(t float64, tp, fp, pos, neg int) candidateRates {
	c := candidateRates{
		t:   t,
		tpr: float64(tp) / float64(pos),
		tnr: float64(neg-fp) / float64(neg),
	}
	if tp+fp > 0 {
		c.precision = float64(tp) / float64(tp+fp)
	}
	return c
}
