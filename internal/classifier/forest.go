package classifier

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RandomForest for binary classification
type RandomForest struct {
	// Hyperparameters / options
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 => max(1, floor(sqrt(p)))
	Bootstrap       bool
	RandomState     int64

	// Internal state
	Trees     []*DecisionTree
	nFeatures int
}

// ForestOption functional config for RandomForest
type ForestOption func(*RandomForest)

func WithNEstimators(n int) ForestOption { return func(rf *RandomForest) { rf.NEstimators = n } }
func WithSeed(seed int64) ForestOption   { return func(rf *RandomForest) { rf.RandomState = seed } }
func WithForestMaxFeatures(k int) ForestOption {
	return func(rf *RandomForest) { rf.MaxFeatures = k }
}

// NewRandomForest initializes the forest with sensible defaults.
func NewRandomForest(opts ...ForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		RandomState:     42,
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Fit trains the forest. Trees are fitted concurrently; tree i always draws its
// bootstrap sample and feature subsets from seed RandomState+i, so the result
// does not depend on scheduling.
func (rf *RandomForest) Fit(ctx context.Context, X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("randomforest: empty X")
	}
	n := len(X)
	if len(y) != n {
		return errors.New("randomforest: X and y length mismatch")
	}
	if rf.NEstimators <= 0 {
		return errors.New("randomforest: NEstimators must be positive")
	}

	p := len(X[0])
	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(p)))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	trees := make([]*DecisionTree, rf.NEstimators)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := 0; i < rf.NEstimators; i++ {
		idx := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			seed := rf.RandomState + int64(idx)
			treeRand := rand.New(rand.NewSource(seed))

			// Bootstrap sampling: an index slice, not a copy of the data.
			sample := make([]int, n)
			for j := 0; j < n; j++ {
				if rf.Bootstrap {
					sample[j] = treeRand.Intn(n)
				} else {
					sample[j] = j
				}
			}

			tree := NewDecisionTree(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMinSamplesLeaf(rf.MinSamplesLeaf),
				WithMaxFeatures(maxFeatures),
				WithRandomState(treeRand.Int63()),
			)
			if err := tree.Fit(X, y, sample); err != nil {
				return err
			}
			trees[idx] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rf.Trees = trees
	rf.nFeatures = p
	return nil
}

// PredictProba returns the mean class-1 probability over all trees.
func (rf *RandomForest) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if len(rf.Trees) == 0 {
		return out
	}
	for _, t := range rf.Trees {
		for i, p := range t.PredictProba(X) {
			out[i] += p
		}
	}
	k := float64(len(rf.Trees))
	for i := range out {
		out[i] /= k
	}
	return out
}

// Predict labels a row 1 when its mean probability is above 0.5.
func (rf *RandomForest) Predict(X [][]float64) []int {
	return BinaryPredFromProba(rf.PredictProba(X), 0.5)
}

// FeatureImportances averages the per-tree normalized impurity decreases and
// renormalizes them to sum 1. Returns a uniform vector when no tree split.
func (rf *RandomForest) FeatureImportances() []float64 {
	out := make([]float64, rf.nFeatures)
	if rf.nFeatures == 0 {
		return out
	}
	for _, t := range rf.Trees {
		for j, v := range t.FeatureImportances() {
			out[j] += v
		}
	}
	total := 0.0
	for _, v := range out {
		total += v
	}
	if total <= 0 {
		for j := range out {
			out[j] = 1 / float64(rf.nFeatures)
		}
		return out
	}
	for j := range out {
		out[j] /= total
	}
	return out
}

// NumFeatures is the width of the matrix the forest was fitted on.
func (rf *RandomForest) NumFeatures() int { return rf.nFeatures }
