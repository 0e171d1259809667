package classifier

import (
	"errors"
	"math/rand"
	"sort"
)

// DecisionTree is a CART classifier for binary labels (0/1) split on gini impurity.
// Categorical inputs are expected as integer codes and are split like ordinals.
type DecisionTree struct {
	// Hyperparameters / options
	MaxDepth        int   // 0 => no limit
	MinSamplesSplit int   // minimum samples to attempt a split
	MinSamplesLeaf  int   // minimum samples required in each leaf
	MaxFeatures     int   // 0 => all features, >0 => features drawn per node
	RandomState     int64 // seed for feature subsampling

	// internals
	root        *node
	nFeatures   int
	importances []float64 // sample-weighted impurity decrease per feature
}

type node struct {
	leaf      bool
	feature   int
	threshold float64 // x <= threshold => left
	left      *node
	right     *node

	n     int
	proba float64 // fraction of class 1 among the node's samples
}

// Option functional config
type Option func(*DecisionTree)

func WithMaxDepth(d int) Option        { return func(t *DecisionTree) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option { return func(t *DecisionTree) { t.MinSamplesSplit = n } }
func WithMinSamplesLeaf(n int) Option  { return func(t *DecisionTree) { t.MinSamplesLeaf = n } }
func WithMaxFeatures(k int) Option     { return func(t *DecisionTree) { t.MaxFeatures = k } }
func WithRandomState(seed int64) Option {
	return func(t *DecisionTree) { t.RandomState = seed }
}

// NewDecisionTree returns a tree with sklearn-like defaults.
func NewDecisionTree(opts ...Option) *DecisionTree {
	t := &DecisionTree{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Fit trains the tree on the rows of X selected by idx (duplicates allowed, as
// produced by bootstrap sampling). A nil idx trains on every row.
func (t *DecisionTree) Fit(X [][]float64, y []int, idx []int) error {
	if len(X) == 0 {
		return errors.New("dtree: empty X")
	}
	if len(y) != len(X) {
		return errors.New("dtree: X and y length mismatch")
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return errors.New("dtree: inconsistent number of features in X rows")
		}
	}
	for _, lab := range y {
		if lab != 0 && lab != 1 {
			return errors.New("dtree: labels must be 0 or 1")
		}
	}
	if idx == nil {
		idx = make([]int, len(X))
		for i := range idx {
			idx[i] = i
		}
	}
	if len(idx) == 0 {
		return errors.New("dtree: no samples selected")
	}

	t.nFeatures = p
	t.importances = make([]float64, p)
	rnd := rand.New(rand.NewSource(t.RandomState))
	t.root = t.build(X, y, idx, 0, rnd)
	return nil
}

// PredictProba returns p(y=1) for every row of X.
func (t *DecisionTree) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i := range X {
		out[i] = t.probaSingle(X[i])
	}
	return out
}

// Predict returns class labels; ties go to class 0.
func (t *DecisionTree) Predict(X [][]float64) []int {
	return BinaryPredFromProba(t.PredictProba(X), 0.5)
}

// FeatureImportances returns the normalized impurity decrease per feature.
// All zeros when the tree never split.
func (t *DecisionTree) FeatureImportances() []float64 {
	out := make([]float64, len(t.importances))
	total := 0.0
	for _, v := range t.importances {
		total += v
	}
	if total <= 0 {
		return out
	}
	for i, v := range t.importances {
		out[i] = v / total
	}
	return out
}

// Depth returns the depth of the fitted tree (a single leaf has depth 0).
func (t *DecisionTree) Depth() int { return depth(t.root) }

func depth(n *node) int {
	if n == nil || n.leaf {
		return 0
	}
	l, r := depth(n.left), depth(n.right)
	if l > r {
		return l + 1
	}
	return r + 1
}

// ---------------------------
// Internal builders & helpers
// ---------------------------

// pair is a feature value and the sample it came from.
type pair struct {
	v float64
	i int
}

type split struct {
	gain      float64
	feature   int
	threshold float64
	leftIdx   []int
	rightIdx  []int
	impL      float64
	impR      float64
}

func (t *DecisionTree) build(X [][]float64, y []int, idx []int, depth int, rnd *rand.Rand) *node {
	n := len(idx)
	pos := 0
	for _, ii := range idx {
		pos += y[ii]
	}
	nd := &node{n: n, proba: float64(pos) / float64(n)}

	// make leaf if pure or too few samples or depth reached
	if pos == 0 || pos == n || n < t.MinSamplesSplit || n < 2*t.MinSamplesLeaf {
		nd.leaf = true
		return nd
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		nd.leaf = true
		return nd
	}

	// Draw features in random order. Like sklearn, keep drawing past
	// MaxFeatures until at least one valid split has been found.
	parentImp := gini(n-pos, pos)
	best := split{feature: -1}
	limit := t.MaxFeatures
	if limit <= 0 || limit > t.nFeatures {
		limit = t.nFeatures
	}
	for drawn, f := range t.shuffledFeatures(rnd) {
		if drawn >= limit && best.feature >= 0 {
			break
		}
		if s := t.bestSplit(X, y, idx, f, parentImp); s.feature >= 0 && s.gain > best.gain {
			best = s
		}
	}
	if best.feature < 0 || best.gain <= 0 {
		nd.leaf = true
		return nd
	}

	nL, nR := float64(len(best.leftIdx)), float64(len(best.rightIdx))
	t.importances[best.feature] += float64(n)*parentImp - nL*best.impL - nR*best.impR

	nd.feature = best.feature
	nd.threshold = best.threshold
	nd.left = t.build(X, y, best.leftIdx, depth+1, rnd)
	nd.right = t.build(X, y, best.rightIdx, depth+1, rnd)
	return nd
}

// shuffledFeatures returns every feature index in random order.
func (t *DecisionTree) shuffledFeatures(rnd *rand.Rand) []int {
	feats := make([]int, t.nFeatures)
	for j := range feats {
		feats[j] = j
	}
	rnd.Shuffle(len(feats), func(i, j int) { feats[i], feats[j] = feats[j], feats[i] })
	return feats
}

// bestSplit scans the sorted values of feature f for the threshold with the largest gini gain.
func (t *DecisionTree) bestSplit(X [][]float64, y []int, idx []int, f int, parentImp float64) split {
	res := split{feature: -1}
	n := len(idx)

	vals := make([]pair, n)
	total1 := 0
	for k, ii := range idx {
		vals[k] = pair{X[ii][f], ii}
		total1 += y[ii]
	}
	sort.Slice(vals, func(a, b int) bool { return vals[a].v < vals[b].v })

	left0, left1 := 0, 0
	bestAt := -1
	for s := 1; s < n; s++ {
		if y[vals[s-1].i] == 1 {
			left1++
		} else {
			left0++
		}
		if vals[s].v == vals[s-1].v {
			continue
		}
		nL := s
		nR := n - s
		if nL < t.MinSamplesLeaf || nR < t.MinSamplesLeaf {
			continue
		}
		right1 := total1 - left1
		right0 := nR - right1
		impL := gini(left0, left1)
		impR := gini(right0, right1)
		weighted := (float64(nL)*impL + float64(nR)*impR) / float64(n)
		gain := parentImp - weighted
		if gain > res.gain {
			res.gain = gain
			res.feature = f
			res.threshold = (vals[s-1].v + vals[s].v) / 2.0
			res.impL = impL
			res.impR = impR
			bestAt = s
		}
	}
	if bestAt < 0 {
		return split{feature: -1}
	}
	res.leftIdx = indicesFromPairs(vals[:bestAt])
	res.rightIdx = indicesFromPairs(vals[bestAt:])
	return res
}

func indicesFromPairs(pairs []pair) []int {
	out := make([]int, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.i)
	}
	return out
}

func (t *DecisionTree) probaSingle(x []float64) float64 {
	nd := t.root
	if nd == nil {
		return 0.5
	}
	for !nd.leaf {
		if x[nd.feature] <= nd.threshold {
			nd = nd.left
		} else {
			nd = nd.right
		}
	}
	return nd.proba
}

// gini impurity of a binary node with c0 negatives and c1 positives
func gini(c0, c1 int) float64 {
	n := float64(c0 + c1)
	if n == 0 {
		return 0
	}
	p0 := float64(c0) / n
	p1 := float64(c1) / n
	return 1 - p0*p0 - p1*p1
}
