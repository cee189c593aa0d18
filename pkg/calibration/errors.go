package calibration

import (
	"errors"
	"fmt"
)

// ErrNotFitted is returned by prediction methods called before Fit.
var ErrNotFitted = errors.New("calibration: model is not fitted")

func errMismatched(n, m int) error {
	return fmt.Errorf("calibration: mismatched input lengths %d and %d", n, m)
}

// InsufficientDataForFoldError reports a cross-validation fold whose
// partition cannot support fitting: remediation is more data, fewer
// folds, or prefit mode.
type InsufficientDataForFoldError struct {
	Fold   int
	Class  int
	Count  int
	Needed int
}

func (e *InsufficientDataForFoldError) Error() string {
	return fmt.Sprintf("calibration: fold %d has %d samples of class %d, need at least %d",
		e.Fold, e.Count, e.Class, e.Needed)
}

// InsufficientClassDataError reports a sigmoid fit over a single-class
// sample.
type InsufficientClassDataError struct {
	Positives int
	Negatives int
}

func (e *InsufficientClassDataError) Error() string {
	return fmt.Sprintf("calibration: sigmoid fit needs both classes, got %d positives and %d negatives",
		e.Positives, e.Negatives)
}

// InsufficientDataForIsotonicError reports an isotonic fit with fewer
// than two distinct score values.
type InsufficientDataForIsotonicError struct {
	Distinct int
}

func (e *InsufficientDataForIsotonicError) Error() string {
	return fmt.Sprintf("calibration: isotonic fit needs at least 2 distinct scores, got %d", e.Distinct)
}

// UnsatisfiableConstraintError reports a threshold search whose rate
// floor no candidate threshold can meet.
type UnsatisfiableConstraintError struct {
	Method string
	Bound  float64
}

func (e *UnsatisfiableConstraintError) Error() string {
	return fmt.Sprintf("calibration: %s found no threshold satisfying the %.3f rate floor", e.Method, e.Bound)
}
