// Package calibration post-processes classifier outputs into calibrated
// probabilities (Platt scaling or isotonic regression, optionally
// cross-validated and one-vs-rest for multiclass) and optimal decision
// thresholds.
package calibration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"calibrate/pkg/loader"
	"calibrate/pkg/model"
)

// Method selects the calibration family.
type Method string

const (
	Sigmoid  Method = "sigmoid"
	Isotonic Method = "isotonic"
)

// calibrator is a fitted map from raw scores to probabilities.
type calibrator interface {
	Predict(scores []float64) []float64
}

// foldCal pairs one fold's base-classifier snapshot with the calibrator
// fit on that fold's held-out scores.
type foldCal struct {
	clf model.Model
	sc  *scorer
	cal calibrator
}

// predict returns calibrated positive-class probabilities for X.
func (f *foldCal) predict(method Method, X [][]float64) []float64 {
	return f.cal.Predict(rawScores(f.sc, method, X))
}

// rawScores extracts scores for calibration. Probability sources feed
// sigmoid fits through the logit so the logistic form sees an unbounded
// domain; isotonic consumes probabilities directly.
func rawScores(sc *scorer, method Method, X [][]float64) []float64 {
	s := sc.fn(X)
	if sc.kind == ScoreProbability && method == Sigmoid {
		return logitSlice(s)
	}
	return s
}

// classPipeline is the per-class fold calibrator set: one entry per
// cross-validation fold, or a single entry in prefit mode.
type classPipeline struct {
	class int
	folds []*foldCal
}

// CalibratedClassifier fits per-fold calibrators on held-out data and
// predicts class probabilities as the mean over folds. With more than two
// classes it runs one independent one-vs-rest pipeline per class and
// renormalizes the combined probability vector.
type CalibratedClassifier struct {
	method      Method
	cv          int // 0 => prefit
	scoring     ScoreKind
	seed        int64
	parallelism int
	weights     []float64

	factory model.Factory // cv mode
	prefit  []model.Model // prefit mode: one (binary) or one per class

	classes   []int
	pipelines []*classPipeline
}

// CalOption configures a CalibratedClassifier.
type CalOption func(*CalibratedClassifier)

func WithMethod(m Method) CalOption     { return func(c *CalibratedClassifier) { c.method = m } }
func WithFolds(k int) CalOption         { return func(c *CalibratedClassifier) { c.cv = k } }
func WithScoring(k ScoreKind) CalOption { return func(c *CalibratedClassifier) { c.scoring = k } }
func WithSeed(seed int64) CalOption     { return func(c *CalibratedClassifier) { c.seed = seed } }
func WithParallelism(n int) CalOption   { return func(c *CalibratedClassifier) { c.parallelism = n } }

// WithSampleWeight weights the calibration samples. The base classifiers
// themselves are fit unweighted.
func WithSampleWeight(w []float64) CalOption {
	return func(c *CalibratedClassifier) { c.weights = w }
}

// NewCalibratedClassifier builds a cross-validated calibrator: each fold
// fits a fresh classifier from factory on the training partition and a
// calibrator on the held-out partition.
func NewCalibratedClassifier(factory model.Factory, opts ...CalOption) *CalibratedClassifier {
	c := &CalibratedClassifier{
		method:      Sigmoid,
		cv:          3,
		parallelism: runtime.GOMAXPROCS(0),
		factory:     factory,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewPrefitCalibratedClassifier calibrates an already-trained binary
// classifier. The whole Fit input is treated as calibration data; the
// caller guarantees it is disjoint from the classifier's training data.
func NewPrefitCalibratedClassifier(clf model.Model, opts ...CalOption) *CalibratedClassifier {
	c := NewCalibratedClassifier(nil, opts...)
	c.cv = 0
	c.prefit = []model.Model{clf}
	return c
}

// NewPrefitOneVsRest calibrates already-trained one-vs-rest classifiers,
// one per class in ascending class-label order.
func NewPrefitOneVsRest(clfs []model.Model, opts ...CalOption) *CalibratedClassifier {
	c := NewCalibratedClassifier(nil, opts...)
	c.cv = 0
	c.prefit = clfs
	return c
}

// Classes returns the sorted class labels seen during Fit.
func (c *CalibratedClassifier) Classes() []int { return append([]int(nil), c.classes...) }

func (c *CalibratedClassifier) Fit(ctx context.Context, X [][]float64, y []int) error {
	n := len(X)
	if n == 0 || len(y) != n {
		return errMismatched(n, len(y))
	}
	if c.weights != nil && len(c.weights) != n {
		return errMismatched(n, len(c.weights))
	}
	if c.method != Sigmoid && c.method != Isotonic {
		return fmt.Errorf("calibration: unknown method %q", c.method)
	}

	classes := distinctLabels(y)
	if len(classes) < 2 {
		return errors.New("calibration: need at least 2 classes")
	}

	// Binary problems calibrate only the positive (higher) class; the
	// complement probability is derived, not fit.
	posClasses := classes[1:]
	if len(classes) > 2 {
		posClasses = classes
	}

	var pipelines []*classPipeline
	var err error
	if c.cv == 0 {
		pipelines, err = c.fitPrefit(X, y, posClasses)
	} else {
		pipelines, err = c.fitCV(ctx, X, y, posClasses)
	}
	if err != nil {
		return err
	}

	c.classes = classes
	c.pipelines = pipelines
	slog.Debug("calibration fit complete",
		"method", string(c.method), "classes", len(classes), "folds", len(pipelines[0].folds))
	return nil
}

func (c *CalibratedClassifier) fitPrefit(X [][]float64, y []int, posClasses []int) ([]*classPipeline, error) {
	if len(c.prefit) != len(posClasses) {
		return nil, fmt.Errorf("calibration: %d prefit classifiers for %d pipelines", len(c.prefit), len(posClasses))
	}
	pipelines := make([]*classPipeline, len(posClasses))
	for ci, class := range posClasses {
		sc, err := resolveScorer(c.prefit[ci], c.scoring)
		if err != nil {
			return nil, err
		}
		cal, err := c.fitCalibrator(rawScores(sc, c.method, X), binarize(y, class), c.weights)
		if err != nil {
			return nil, err
		}
		pipelines[ci] = &classPipeline{
			class: class,
			folds: []*foldCal{{clf: c.prefit[ci], sc: sc, cal: cal}},
		}
	}
	return pipelines, nil
}

func (c *CalibratedClassifier) fitCV(ctx context.Context, X [][]float64, y []int, posClasses []int) ([]*classPipeline, error) {
	if c.factory == nil {
		return nil, errors.New("calibration: cv mode needs a classifier factory")
	}
	rnd := rand.New(rand.NewSource(c.seed))
	folds, err := loader.StratifiedKFold(y, c.cv, rnd)
	if err != nil {
		return nil, err
	}
	if err := checkFolds(folds, y); err != nil {
		return nil, err
	}

	pipelines := make([]*classPipeline, len(posClasses))
	for ci, class := range posClasses {
		pipelines[ci] = &classPipeline{class: class, folds: make([]*foldCal, len(folds))}
	}

	// Every (class, fold) fit is independent: no shared mutable state
	// beyond the read-only inputs. Wait is the aggregation barrier; any
	// failure or cancellation discards all partial results.
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)
	for ci, class := range posClasses {
		for fi, holdout := range folds {
			ci, class, fi, holdout := ci, class, fi, holdout
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				train := loader.Complement(len(X), holdout)
				binY := binarize(y, class)

				clf := c.factory()
				if err := clf.Fit(gather(X, train), gatherInts(binY, train)); err != nil {
					return fmt.Errorf("calibration: fold %d base fit: %w", fi, err)
				}
				sc, err := resolveScorer(clf, c.scoring)
				if err != nil {
					return err
				}
				scores := rawScores(sc, c.method, gather(X, holdout))
				cal, err := c.fitCalibrator(scores, gatherInts(binY, holdout), gatherFloats(c.weights, holdout))
				if err != nil {
					return fmt.Errorf("calibration: fold %d: %w", fi, err)
				}
				pipelines[ci].folds[fi] = &foldCal{clf: clf, sc: sc, cal: cal}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pipelines, nil
}

func (c *CalibratedClassifier) fitCalibrator(scores []float64, labels []int, weights []float64) (calibrator, error) {
	if c.method == Isotonic {
		targets := make([]float64, len(labels))
		for i, l := range labels {
			targets[i] = float64(l)
		}
		return FitIsotonic(scores, targets, weights)
	}
	return FitSigmoid(scores, labels, weights)
}

// PredictProba returns one probability vector per input row, ordered by
// Classes() and summing to 1. Per class, the probability is the
// arithmetic mean of the fold calibrators' outputs: averaging, not
// voting, suppresses fold-to-fold variance. Safe for concurrent use once
// fitted.
func (c *CalibratedClassifier) PredictProba(X [][]float64) ([][]float64, error) {
	if c.pipelines == nil {
		return nil, ErrNotFitted
	}
	n := len(X)
	nClasses := len(c.classes)

	perClass := make([][]float64, len(c.pipelines))
	for ci, pl := range c.pipelines {
		acc := make([]float64, n)
		for _, f := range pl.folds {
			floats.Add(acc, f.predict(c.method, X))
		}
		floats.Scale(1/float64(len(pl.folds)), acc)
		perClass[ci] = acc
	}

	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, nClasses)
		if nClasses == 2 {
			row[1] = perClass[0][i]
			row[0] = 1 - row[1]
		} else {
			for ci := range perClass {
				row[ci] = perClass[ci][i]
			}
			normalizeRow(row)
		}
		out[i] = row
	}
	return out, nil
}

// Predict returns the class with the highest calibrated probability.
func (c *CalibratedClassifier) Predict(X [][]float64) ([]int, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, row := range proba {
		best := 0
		for j := 1; j < len(row); j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		out[i] = c.classes[best]
	}
	return out, nil
}

// normalizeRow rescales a one-vs-rest probability vector to sum to 1,
// substituting the uniform distribution when the sum carries no
// information (all-zero or non-finite).
func normalizeRow(row []float64) {
	nClasses := len(row)
	sum := floats.Sum(row)
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		for j := range row {
			row[j] = 1 / float64(nClasses)
		}
		return
	}
	floats.Scale(1/sum, row)
	for j, v := range row {
		if math.IsNaN(v) {
			row[j] = 1 / float64(nClasses)
		} else if v > 1 && v <= 1+1e-5 {
			row[j] = 1
		}
	}
}

// checkFolds rejects a split in which any held-out fold has fewer than 2
// samples of some class, or any training partition misses a class. Folds
// are never silently dropped.
func checkFolds(folds [][]int, y []int) error {
	classes := distinctLabels(y)
	total := map[int]int{}
	for _, l := range y {
		total[l]++
	}
	for fi, holdout := range folds {
		held := map[int]int{}
		for _, i := range holdout {
			held[y[i]]++
		}
		for _, class := range classes {
			if held[class] < 2 {
				return &InsufficientDataForFoldError{Fold: fi, Class: class, Count: held[class], Needed: 2}
			}
			if total[class]-held[class] < 1 {
				return &InsufficientDataForFoldError{Fold: fi, Class: class, Count: total[class] - held[class], Needed: 1}
			}
		}
	}
	return nil
}

func distinctLabels(y []int) []int {
	seen := map[int]bool{}
	var out []int
	for _, l := range y {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Ints(out)
	return out
}

// binarize maps y to 1 where the label equals pos, else 0.
func binarize(y []int, pos int) []int {
	out := make([]int, len(y))
	for i, l := range y {
		if l == pos {
			out[i] = 1
		}
	}
	return out
}

func gather(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

func gatherInts(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}

func gatherFloats(v []float64, idx []int) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}
