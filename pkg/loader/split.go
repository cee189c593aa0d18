package loader

import (
	"fmt"
	"math/rand"
	"sort"
)

// TrainTestSplit splits X, y into train and test sets by ratio using the
// supplied generator.
func TrainTestSplit(X [][]float64, y []int, testRatio float64, rnd *rand.Rand) (XTrain, XTest [][]float64, yTrain, yTest []int) {
	n := len(X)
	indices := rnd.Perm(n)
	nTest := int(float64(n) * testRatio)
	for i := 0; i < n; i++ {
		if i < nTest {
			XTest = append(XTest, X[indices[i]])
			yTest = append(yTest, y[indices[i]])
		} else {
			XTrain = append(XTrain, X[indices[i]])
			yTrain = append(yTrain, y[indices[i]])
		}
	}
	return
}

// Shuffle shuffles X and y in unison.
func Shuffle(X [][]float64, y []int, rnd *rand.Rand) ([][]float64, []int) {
	n := len(X)
	indices := rnd.Perm(n)
	XShuf := make([][]float64, n)
	yShuf := make([]int, n)
	for i, idx := range indices {
		XShuf[i] = X[idx]
		yShuf[i] = y[idx]
	}
	return XShuf, yShuf
}

// KFoldSplit yields k folds of held-out indices, dealt round-robin from a
// shuffled order.
func KFoldSplit(n, k int, rnd *rand.Rand) [][]int {
	indices := rnd.Perm(n)
	folds := make([][]int, k)
	for i := 0; i < n; i++ {
		folds[i%k] = append(folds[i%k], indices[i])
	}
	return folds
}

// StratifiedKFold yields k folds of held-out indices such that every
// fold's class mix tracks the overall label distribution. Each class's
// indices are shuffled independently and dealt round-robin across folds.
func StratifiedKFold(y []int, k int, rnd *rand.Rand) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("loader: need at least 2 folds, got %d", k)
	}
	byClass := map[int][]int{}
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	for label, idx := range byClass {
		if len(idx) < k {
			return nil, fmt.Errorf("loader: class %d has %d samples, fewer than %d folds", label, len(idx), k)
		}
	}

	// Iterate classes in a fixed order so the same seed gives the same split.
	labels := make([]int, 0, len(byClass))
	for label := range byClass {
		labels = append(labels, label)
	}
	sort.Ints(labels)

	folds := make([][]int, k)
	for _, label := range labels {
		idx := byClass[label]
		rnd.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		for i, v := range idx {
			folds[i%k] = append(folds[i%k], v)
		}
	}
	return folds, nil
}

// Complement returns all indices in [0, n) not present in exclude.
func Complement(n int, exclude []int) []int {
	in := make([]bool, n)
	for _, i := range exclude {
		in[i] = true
	}
	out := make([]int, 0, n-len(exclude))
	for i := 0; i < n; i++ {
		if !in[i] {
			out = append(out, i)
		}
	}
	return out
}
