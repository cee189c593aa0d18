package model

import (
	"errors"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"calibrate/pkg/optim"
)

// LogisticRegression (binary) with sigmoid.
// This struct holds the model parameters and hyperparameters for training.
type LogisticRegression struct {
	W         []float64 // weights
	B         float64   // bias
	Lr        float64
	Epochs    int
	BatchSize int
	Seed      int64
}

// NewLogisticRegression initializes a new Logistic Regression model.
// The weights are allocated lazily on Fit once the feature count is known.
func NewLogisticRegression(lr float64, epochs, batchSize int, seed int64) *LogisticRegression {
	return &LogisticRegression{
		Lr:        lr,
		Epochs:    epochs,
		BatchSize: batchSize,
		Seed:      seed,
	}
}

func sigmoid(z float64) float64 { return 1.0 / (1.0 + math.Exp(-z)) }

// DecisionFunction returns the raw margin w*x + b for each input row.
// It uses goroutines to parallelize the computation for efficiency.
func (m *LogisticRegression) DecisionFunction(X [][]float64) []float64 {
	if len(X) == 0 {
		return nil
	}
	out := make([]float64, len(X))
	var wg sync.WaitGroup

	// Determine the number of workers based on available CPU cores.
	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(X) + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := start + rowsPerWorker
		if end > len(X) {
			end = len(X)
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				sum := m.B
				for j, v := range X[i] {
					sum += m.W[j] * v
				}
				out[i] = sum
			}
		}(start, end)
	}
	wg.Wait()
	return out
}

// PredictProba returns the probability scores (between 0 and 1) for each input row in X.
func (m *LogisticRegression) PredictProba(X [][]float64) []float64 {
	out := m.DecisionFunction(X)
	for i, z := range out {
		out[i] = sigmoid(z)
	}
	return out
}

// Predict returns the class labels (0 or 1) based on a 0.5 probability threshold.
func (m *LogisticRegression) Predict(X [][]float64) []int {
	proba := m.PredictProba(X)
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= 0.5 {
			out[i] = 1
		}
	}
	return out
}

// Fit trains the model using mini-batch gradient descent. Labels must be 0/1.
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("logistic: empty X")
	}
	n := len(X)
	if len(y) != n {
		return errors.New("logistic: X and y length mismatch")
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return errors.New("logistic: inconsistent number of features in X rows")
		}
	}

	if m.W == nil {
		// Small random init to break symmetry, from an explicit seed so
		// repeated fits are reproducible.
		rnd := rand.New(rand.NewSource(m.Seed))
		m.W = make([]float64, p)
		for i := range m.W {
			m.W[i] = rnd.NormFloat64() * 0.01
		}
		m.B = 0
	}
	if len(m.W) != p {
		return errors.New("logistic: feature count mismatch between model and X")
	}

	batch := m.BatchSize
	if batch <= 0 || batch > n {
		batch = n
	}
	opt := optim.NewSGD(m.Lr)
	rnd := rand.New(rand.NewSource(m.Seed + 1))

	gW := make([]float64, p)
	for ep := 0; ep < m.Epochs; ep++ {
		order := rnd.Perm(n)
		for lo := 0; lo < n; lo += batch {
			hi := lo + batch
			if hi > n {
				hi = n
			}
			for j := range gW {
				gW[j] = 0
			}
			gb := 0.0
			inv := 1.0 / float64(hi-lo)

			// Gradient of the binary cross-entropy: (p - y) per sample.
			for _, idx := range order[lo:hi] {
				row := X[idx]
				z := m.B
				for j, v := range row {
					z += m.W[j] * v
				}
				d := (sigmoid(z) - float64(y[idx])) * inv
				for j, v := range row {
					gW[j] += d * v
				}
				gb += d
			}

			opt.Step(m.W, gW)
			m.B -= m.Lr * gb
		}
	}
	return nil
}
