// Package scoring defines the lead-quality classifier contract and a
// random-forest implementation of it.
package scoring

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel kinds for scoring errors.
var (
	ErrFeatureMismatch = errors.New("feature count mismatch")
	ErrNotTrained      = errors.New("classifier not trained")
	ErrInvalidArtifact = errors.New("invalid model artifact")
	ErrNoTrainingData  = errors.New("no training data")
)

// Classifier estimates the probability that a lead is of good quality.
type Classifier interface {
	// PredictProba returns the positive-class probability for every row of
	// X, in order. Each row must have the classifier's feature count.
	PredictProba(ctx context.Context, X [][]float64) ([]float64, error)
}

// Forest is a random forest of binary CART trees. Probabilities are the
// mean of the trees' leaf probabilities. A Forest is read-only once built
// and safe for concurrent use.
type Forest struct {
	features int
	trees    []*tree
}

// Features returns the number of input columns the forest expects.
func (f *Forest) Features() int { return f.features }

// Trees returns the number of trees.
func (f *Forest) Trees() int { return len(f.trees) }

// PredictProba implements Classifier.
func (f *Forest) PredictProba(ctx context.Context, X [][]float64) ([]float64, error) {
	if f == nil || len(f.trees) == 0 {
		return nil, ErrNotTrained
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != f.features {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), f.features, ErrFeatureMismatch)
		}
		var sum float64
		for _, t := range f.trees {
			sum += t.predict(row)
		}
		out[i] = sum / float64(len(f.trees))
	}
	return out, nil
}
