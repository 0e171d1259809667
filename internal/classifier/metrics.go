package classifier

// BinaryPredFromProba labels each probability 1 when it is strictly above threshold.
func BinaryPredFromProba(proba []float64, threshold float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if p > threshold {
			out[i] = 1
		}
	}
	return out
}

// Classification metrics (binary, labels 0/1)
func Accuracy(yTrue []int, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// PrecisionRecallF1 scores class 1. Undefined ratios are reported as 0.
func PrecisionRecallF1(yTrue []int, yPred []int) (prec, rec, f1 float64) {
	tp, fp, fn := 0, 0, 0
	for i := range yTrue {
		if yPred[i] == 1 && yTrue[i] == 1 {
			tp++
		}
		if yPred[i] == 1 && yTrue[i] == 0 {
			fp++
		}
		if yPred[i] == 0 && yTrue[i] == 1 {
			fn++
		}
	}
	if tp+fp > 0 {
		prec = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		rec = float64(tp) / float64(tp+fn)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}
