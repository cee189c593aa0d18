package loader

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStratifiedKFoldPartitions(t *testing.T) {
	y := make([]int, 90)
	for i := range y {
		y[i] = i % 3
	}
	rnd := rand.New(rand.NewSource(1))
	folds, err := StratifiedKFold(y, 5, rnd)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	seen := map[int]int{}
	for _, fold := range folds {
		counts := map[int]int{}
		for _, i := range fold {
			seen[i]++
			counts[y[i]]++
		}
		// 30 samples per class dealt over 5 folds: 6 of each per fold.
		assert.Equal(t, map[int]int{0: 6, 1: 6, 2: 6}, counts)
	}
	// Disjoint and covering.
	assert.Len(t, seen, 90)
	for i, n := range seen {
		assert.Equal(t, 1, n, "index %d assigned to %d folds", i)
	}
}

func TestStratifiedKFoldDeterministicForSeed(t *testing.T) {
	y := make([]int, 40)
	for i := range y {
		y[i] = i % 2
	}
	a, err := StratifiedKFold(y, 4, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	b, err := StratifiedKFold(y, 4, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStratifiedKFoldErrors(t *testing.T) {
	_, err := StratifiedKFold([]int{0, 1}, 1, rand.New(rand.NewSource(0)))
	assert.Error(t, err)

	// A class with fewer samples than folds cannot be stratified.
	_, err = StratifiedKFold([]int{0, 0, 0, 1}, 2, rand.New(rand.NewSource(0)))
	assert.Error(t, err)
}

func TestKFoldSplitCovers(t *testing.T) {
	folds := KFoldSplit(10, 3, rand.New(rand.NewSource(2)))
	seen := map[int]bool{}
	total := 0
	for _, fold := range folds {
		total += len(fold)
		for _, i := range fold {
			seen[i] = true
		}
	}
	assert.Equal(t, 10, total)
	assert.Len(t, seen, 10)
}

func TestComplement(t *testing.T) {
	got := Complement(6, []int{1, 4})
	assert.Equal(t, []int{0, 2, 3, 5}, got)
}

func TestTrainTestSplit(t *testing.T) {
	X := make([][]float64, 20)
	y := make([]int, 20)
	for i := range X {
		X[i] = []float64{float64(i)}
		y[i] = i % 2
	}
	XTrain, XTest, yTrain, yTest := TrainTestSplit(X, y, 0.25, rand.New(rand.NewSource(3)))
	assert.Len(t, XTest, 5)
	assert.Len(t, XTrain, 15)
	assert.Len(t, yTest, 5)
	assert.Len(t, yTrain, 15)
}
