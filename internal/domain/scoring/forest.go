package scoring

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/okian/leadscore/pkg/logger"
	"github.com/okian/leadscore/pkg/worker"
)

// Default forest configuration constants.
const (
	defaultTrees           = 50
	defaultSeed            = 42
	defaultMinSamplesSplit = 2
	defaultMinSamplesLeaf  = 1
	defaultTestRatio       = 0.2
)

// Option applies a configuration option to the ForestTrainer.
type Option func(*ForestTrainer)

// WithTrees sets the number of trees.
func WithTrees(n int) Option {
	return func(t *ForestTrainer) {
		if n > 0 {
			t.trees = n
		}
	}
}

// WithSeed sets the seed for bootstrap sampling, feature sampling and the
// train/test split.
func WithSeed(seed int64) Option {
	return func(t *ForestTrainer) { t.seed = seed }
}

// WithMaxDepth limits tree depth. Zero means unlimited.
func WithMaxDepth(d int) Option {
	return func(t *ForestTrainer) {
		if d >= 0 {
			t.params.maxDepth = d
		}
	}
}

// WithMinSamplesSplit sets the minimum node size that may be split.
func WithMinSamplesSplit(n int) Option {
	return func(t *ForestTrainer) {
		if n >= 2 {
			t.params.minSamplesSplit = n
		}
	}
}

// WithMinSamplesLeaf sets the minimum number of samples per leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(t *ForestTrainer) {
		if n >= 1 {
			t.params.minSamplesLeaf = n
		}
	}
}

// WithMaxFeatures sets the number of features sampled per split. Zero uses
// the square root of the feature count.
func WithMaxFeatures(n int) Option {
	return func(t *ForestTrainer) {
		if n >= 0 {
			t.params.maxFeatures = n
		}
	}
}

// WithBootstrap toggles sampling rows with replacement for each tree.
func WithBootstrap(b bool) Option {
	return func(t *ForestTrainer) { t.bootstrap = b }
}

// WithTestRatio sets the fraction of rows held out for evaluation.
func WithTestRatio(r float64) Option {
	return func(t *ForestTrainer) {
		if r >= 0 && r < 1 {
			t.testRatio = r
		}
	}
}

// WithWorkers sets how many trees are grown concurrently.
func WithWorkers(n int) Option {
	return func(t *ForestTrainer) {
		if n > 0 {
			t.workers = n
		}
	}
}

// WithLogger sets a custom logger for training.
func WithLogger(l logger.Logger) Option {
	return func(t *ForestTrainer) {
		if l != nil {
			t.logger = l
		}
	}
}

// ForestTrainer grows random forests. Results depend only on the data and
// the options, not on scheduling.
type ForestTrainer struct {
	trees     int
	seed      int64
	bootstrap bool
	testRatio float64
	workers   int
	params    treeParams
	logger    logger.Logger
}

// NewForestTrainer creates a trainer with sensible defaults.
func NewForestTrainer(opts ...Option) *ForestTrainer {
	t := &ForestTrainer{
		trees:     defaultTrees,
		seed:      defaultSeed,
		bootstrap: true,
		testRatio: defaultTestRatio,
		params: treeParams{
			minSamplesSplit: defaultMinSamplesSplit,
			minSamplesLeaf:  defaultMinSamplesLeaf,
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logger.Get().Named("scoring")
	}
	return t
}

// Fit grows a forest on X with binary labels y (0 or 1).
func (t *ForestTrainer) Fit(ctx context.Context, X [][]float64, y []int) (*Forest, error) {
	if len(X) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(y) != len(X) {
		return nil, fmt.Errorf("fit: %d rows but %d labels", len(X), len(y))
	}
	p := len(X[0])
	for i, row := range X {
		if len(row) != p {
			return nil, fmt.Errorf("fit: row %d has %d columns, want %d: %w", i, len(row), p, ErrFeatureMismatch)
		}
	}
	for i, label := range y {
		if label != 0 && label != 1 {
			return nil, fmt.Errorf("fit: label %d at row %d is not binary", label, i)
		}
	}

	params := t.params
	if params.maxFeatures == 0 {
		params.maxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(p)))))
	}

	forest := &Forest{features: p, trees: make([]*tree, t.trees)}
	jobs := make([]worker.Job, t.trees)
	for i := range jobs {
		idx := i
		jobs[i] = func(context.Context) error {
			rnd := rand.New(rand.NewSource(t.seed + int64(idx))) //nolint:gosec // reproducible training
			sample := make([]int, len(X))
			for j := range sample {
				if t.bootstrap {
					sample[j] = rnd.Intn(len(X))
				} else {
					sample[j] = j
				}
			}
			forest.trees[idx] = growTree(X, y, sample, params, rnd)
			return nil
		}
	}

	pool := worker.NewPool(t.workers, worker.WithName("forest"), worker.WithLogger(t.logger))
	if err := pool.Run(ctx, jobs); err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	t.logger.Debug(ctx, "forest grown",
		logger.Int("trees", t.trees),
		logger.Int("rows", len(X)),
		logger.Int("features", p),
		logger.Int("maxFeatures", params.maxFeatures),
		logger.Int("workers", pool.Size()),
	)
	return forest, nil
}
