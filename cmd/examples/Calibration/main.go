package main

import (
	"context"
	"fmt"
	"image/color"
	"log"
	"math/rand"

	"calibrate/pkg/calibration"
	"calibrate/pkg/loader"
	"calibrate/pkg/metrics"
	"calibrate/pkg/model"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// generateBinaryData creates two overlapping Gaussian clusters in 2D.
func generateBinaryData(n int, rnd *rand.Rand) (X [][]float64, y []int) {
	X = make([][]float64, n)
	y = make([]int, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			X[i] = []float64{-1 + rnd.NormFloat64()*1.5, -1 + rnd.NormFloat64()*1.5}
			y[i] = 0
		} else {
			X[i] = []float64{1 + rnd.NormFloat64()*1.5, 1 + rnd.NormFloat64()*1.5}
			y[i] = 1
		}
	}
	return
}

// plotReliability draws the reliability diagram for each calibration run.
func plotReliability(curves map[string][]float64, preds map[string][]float64, filename string) {
	p := plot.New()
	p.Title.Text = "Reliability Diagram"
	p.X.Label.Text = "Mean predicted probability"
	p.Y.Label.Text = "Fraction of positives"

	// Perfect-calibration diagonal.
	diag := plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}}
	dl, err := plotter.NewLine(diag)
	if err != nil {
		log.Fatal(err)
	}
	dl.LineStyle.Color = color.Gray{Y: 160}
	p.Add(dl)

	colors := []color.RGBA{
		{R: 220, G: 50, B: 50, A: 255},
		{R: 50, G: 50, B: 220, A: 255},
		{R: 50, G: 160, B: 50, A: 255},
	}
	i := 0
	for name, probTrue := range curves {
		pts := make(plotter.XYs, len(probTrue))
		for j := range probTrue {
			pts[j].X = preds[name][j]
			pts[j].Y = probTrue[j]
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			log.Fatal(err)
		}
		line.Color = colors[i%len(colors)]
		points.Color = colors[i%len(colors)]
		p.Add(line, points)
		p.Legend.Add(name, line)
		i++
	}

	if err := p.Save(6*vg.Inch, 6*vg.Inch, filename); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Saved reliability diagram to %s\n", filename)
}

func main() {
	rnd := rand.New(rand.NewSource(1))

	fmt.Println("=== Probability Calibration Demo ===")

	X, y := generateBinaryData(3000, rnd)
	XTrain, XTest, yTrain, yTest := loader.TrainTestSplit(X, y, 0.3, rnd)
	fmt.Printf("Train %d samples / test %d samples\n", len(XTrain), len(XTest))

	factory := func() model.Model {
		return model.NewLogisticRegression(0.1, 60, 64, 7)
	}

	// Uncalibrated baseline.
	base := factory()
	if err := base.Fit(XTrain, yTrain); err != nil {
		log.Fatal(err)
	}
	rawProba := base.(*model.LogisticRegression).PredictProba(XTest)
	fmt.Printf("Uncalibrated Brier score: %.4f\n", metrics.BrierScore(yTest, rawProba))

	curves := map[string][]float64{}
	preds := map[string][]float64{}
	pt, pp, err := metrics.CalibrationCurve(yTest, rawProba, 10, false)
	if err != nil {
		log.Fatal(err)
	}
	curves["uncalibrated"], preds["uncalibrated"] = pt, pp

	for _, method := range []calibration.Method{calibration.Sigmoid, calibration.Isotonic} {
		c := calibration.NewCalibratedClassifier(factory,
			calibration.WithMethod(method),
			calibration.WithFolds(5),
			calibration.WithSeed(7),
		)
		if err := c.Fit(context.Background(), XTrain, yTrain); err != nil {
			log.Fatal(err)
		}
		proba, err := c.PredictProba(XTest)
		if err != nil {
			log.Fatal(err)
		}
		pos := make([]float64, len(proba))
		for i, row := range proba {
			pos[i] = row[1]
		}
		fmt.Printf("%-10s Brier score: %.4f\n", method, metrics.BrierScore(yTest, pos))

		pt, pp, err := metrics.CalibrationCurve(yTest, pos, 10, false)
		if err != nil {
			log.Fatal(err)
		}
		curves[string(method)], preds[string(method)] = pt, pp
	}

	plotReliability(curves, preds, "reliability.png")
}
