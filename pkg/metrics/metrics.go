// Package metrics provides binary classification metrics (labels 0/1).
package metrics

// Confusion holds binary confusion-matrix counts.
type Confusion struct {
	TP, FP, TN, FN int
}

// ConfusionCounts tallies the confusion matrix of yPred against yTrue.
func ConfusionCounts(yTrue, yPred []int) Confusion {
	var c Confusion
	for i := range yTrue {
		switch {
		case yPred[i] == 1 && yTrue[i] == 1:
			c.TP++
		case yPred[i] == 1 && yTrue[i] == 0:
			c.FP++
		case yPred[i] == 0 && yTrue[i] == 0:
			c.TN++
		default:
			c.FN++
		}
	}
	return c
}

// TPR returns the true positive rate (recall, sensitivity).
func (c Confusion) TPR() float64 {
	if c.TP+c.FN == 0 {
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FN)
}

// TNR returns the true negative rate (specificity).
func (c Confusion) TNR() float64 {
	if c.TN+c.FP == 0 {
		return 0
	}
	return float64(c.TN) / float64(c.TN+c.FP)
}

// Precision returns TP / (TP + FP), or 0 when nothing was predicted positive.
func (c Confusion) Precision() float64 {
	if c.TP+c.FP == 0 {
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FP)
}

func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

func PrecisionRecallF1(yTrue, yPred []int) (prec, rec, f1 float64) {
	c := ConfusionCounts(yTrue, yPred)
	prec = c.Precision()
	rec = c.TPR()
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}

// FBeta combines precision and recall with recall weighted beta times as
// much as precision. Returns 0 when both terms are 0.
func FBeta(prec, rec, beta float64) float64 {
	b2 := beta * beta
	den := b2*prec + rec
	if den == 0 {
		return 0
	}
	return (1 + b2) * prec * rec / den
}

// BrierScore is the mean squared error between predicted probabilities
// and the 0/1 outcomes. Lower is better calibrated.
func BrierScore(yTrue []int, proba []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	s := 0.0
	for i := range yTrue {
		d := proba[i] - float64(yTrue[i])
		s += d * d
	}
	return s / float64(len(yTrue))
}

// BinaryPredFromProba thresholds probabilities into 0/1 labels.
func BinaryPredFromProba(proba []float64, threshold float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= threshold {
			out[i] = 1
		}
	}
	return out
}
