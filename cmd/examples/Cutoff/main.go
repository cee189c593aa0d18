package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"calibrate/pkg/calibration"
	"calibrate/pkg/loader"
	"calibrate/pkg/metrics"
	"calibrate/pkg/model"
)

// generateImbalanced draws a 1:4 positive/negative mix of overlapping
// Gaussian clusters, the setting where the default 0.5 cutoff misses
// most positives.
func generateImbalanced(n int, rnd *rand.Rand) (X [][]float64, y []int) {
	X = make([][]float64, n)
	y = make([]int, n)
	for i := 0; i < n; i++ {
		if i%5 == 0 {
			X[i] = []float64{1.2 + rnd.NormFloat64()*1.3, 1.2 + rnd.NormFloat64()*1.3}
			y[i] = 1
		} else {
			X[i] = []float64{-1 + rnd.NormFloat64()*1.3, -1 + rnd.NormFloat64()*1.3}
			y[i] = 0
		}
	}
	return
}

func report(name string, c *calibration.CutoffClassifier, XTest [][]float64, yTest []int) {
	pred, err := c.Predict(XTest)
	if err != nil {
		log.Fatal(err)
	}
	cm := metrics.ConfusionCounts(yTest, pred)
	fmt.Printf("%-22s threshold=%+.4f  TPR=%.3f  TNR=%.3f  precision=%.3f\n",
		name, c.Threshold(), cm.TPR(), cm.TNR(), cm.Precision())
}

func main() {
	rnd := rand.New(rand.NewSource(3))

	fmt.Println("=== Decision Threshold Tuning Demo ===")

	X, y := generateImbalanced(4000, rnd)
	XTrain, XTest, yTrain, yTest := loader.TrainTestSplit(X, y, 0.3, rnd)

	factory := func() model.Model {
		return model.NewLogisticRegression(0.1, 60, 64, 11)
	}

	// Baseline: raw classifier with the implicit margin-zero cutoff.
	base := factory()
	if err := base.Fit(XTrain, yTrain); err != nil {
		log.Fatal(err)
	}
	cm := metrics.ConfusionCounts(yTest, base.Predict(XTest))
	fmt.Printf("%-22s threshold=%+.4f  TPR=%.3f  TNR=%.3f  precision=%.3f\n",
		"margin zero (default)", 0.0, cm.TPR(), cm.TNR(), cm.Precision())

	roc := calibration.NewCutoffClassifier(factory,
		calibration.WithCutoffMethod(calibration.CutoffROC),
		calibration.WithCutoffFolds(5),
		calibration.WithCutoffSeed(3),
	)
	if err := roc.Fit(context.Background(), XTrain, yTrain); err != nil {
		log.Fatal(err)
	}
	report("roc corner", roc, XTest, yTest)

	tpr := calibration.NewCutoffClassifier(factory,
		calibration.WithCutoffMethod(calibration.CutoffMaxTPR),
		calibration.WithBound(0.7),
		calibration.WithCutoffFolds(5),
		calibration.WithCutoffSeed(3),
	)
	if err := tpr.Fit(context.Background(), XTrain, yTrain); err != nil {
		log.Fatal(err)
	}
	report("max_tpr (TNR >= 0.7)", tpr, XTest, yTest)

	f2 := calibration.NewCutoffClassifier(factory,
		calibration.WithCutoffMethod(calibration.CutoffFBeta),
		calibration.WithBeta(2),
		calibration.WithCutoffFolds(5),
		calibration.WithCutoffSeed(3),
	)
	if err := f2.Fit(context.Background(), XTrain, yTrain); err != nil {
		log.Fatal(err)
	}
	report("f_beta (beta=2)", f2, XTest, yTest)
}
