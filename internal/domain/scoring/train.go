package scoring

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/okian/leadscore/internal/domain/encoding"
	"github.com/okian/leadscore/internal/domain/lead"
	"github.com/okian/leadscore/pkg/logger"
)

// Model is a trained forest together with the code table its categorical
// inputs were encoded with.
type Model struct {
	Forest *Forest
	Codes  encoding.CodeTable
}

// Report summarizes a training run.
type Report struct {
	TrainRows int     `json:"train_rows"`
	TestRows  int     `json:"test_rows"`
	Accuracy  float64 `json:"accuracy"`
	Trees     int     `json:"trees"`
}

// Train encodes labeled leads, holds out a test split, grows a forest on
// the rest and reports accuracy on the held-out rows at a 0.5 threshold.
// Every row must carry a LeadScore.
func (t *ForestTrainer) Train(ctx context.Context, rows []lead.Lead) (Model, Report, error) {
	if len(rows) == 0 {
		return Model{}, Report{}, ErrNoTrainingData
	}
	labels := make([]int, len(rows))
	for i, r := range rows {
		if r.LeadScore == nil {
			return Model{}, Report{}, fmt.Errorf("train: row %d has no %s: %w", i, lead.ColLeadScore, ErrNoTrainingData)
		}
		labels[i] = *r.LeadScore
	}

	encoded, codes := encoding.Derive(rows)
	X := encoding.FeatureMatrix(encoded)

	trainIdx, testIdx := split(len(rows), t.testRatio, t.seed)
	if len(trainIdx) == 0 {
		return Model{}, Report{}, fmt.Errorf("train: test ratio leaves no training rows: %w", ErrNoTrainingData)
	}
	XTrain, yTrain := pick(X, labels, trainIdx)
	XTest, yTest := pick(X, labels, testIdx)

	forest, err := t.Fit(ctx, XTrain, yTrain)
	if err != nil {
		return Model{}, Report{}, err
	}

	report := Report{TrainRows: len(trainIdx), TestRows: len(testIdx), Trees: forest.Trees()}
	if len(testIdx) > 0 {
		probs, err := forest.PredictProba(ctx, XTest)
		if err != nil {
			return Model{}, Report{}, fmt.Errorf("train: evaluate: %w", err)
		}
		report.Accuracy = Accuracy(yTest, probs, 0.5)
	}

	t.logger.Info(ctx, "model trained",
		logger.Int("trainRows", report.TrainRows),
		logger.Int("testRows", report.TestRows),
		logger.Float64("accuracy", report.Accuracy),
	)
	return Model{Forest: forest, Codes: codes}, report, nil
}

// Accuracy is the fraction of rows where probs[i] >= threshold agrees with
// the label.
func Accuracy(y []int, probs []float64, threshold float64) float64 {
	if len(y) == 0 {
		return 0
	}
	correct := 0
	for i := range y {
		pred := 0
		if probs[i] >= threshold {
			pred = 1
		}
		if pred == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y))
}

// split shuffles 0..n-1 with seed and returns the train and test indices.
func split(n int, testRatio float64, seed int64) (trainIdx, testIdx []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n) //nolint:gosec // reproducible split
	nTest := int(float64(n) * testRatio)
	return perm[nTest:], perm[:nTest]
}

func pick(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, j := range idx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}
