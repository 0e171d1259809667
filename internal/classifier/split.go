package classifier

import (
	"math"
	"math/rand"
)

// TrainTestSplit shuffles row indices 0..n-1 with the given seed and returns the
// train and test partitions. The test partition holds ceil(n*testRatio) rows.
func TrainTestSplit(n int, testRatio float64, seed int64) (train, test []int) {
	if n <= 0 {
		return nil, nil
	}
	indices := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(math.Ceil(float64(n) * testRatio))
	if nTest > n {
		nTest = n
	}
	if nTest < 0 {
		nTest = 0
	}
	return indices[nTest:], indices[:nTest]
}

// Gather selects the rows of X and y at idx.
func Gather(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for k, i := range idx {
		xs[k] = X[i]
		ys[k] = y[i]
	}
	return xs, ys
}
