package model

import "math/rand"

// Oversample balances the classes by resampling minority rows with
// replacement until both classes match the majority count. Deterministic for
// a given seed.
func Oversample(x [][]float64, y []float64, seed int64) ([][]float64, []float64) {
	var positives, negatives []int
	for i, label := range y {
		if label > 0.5 {
			positives = append(positives, i)
		} else {
			negatives = append(negatives, i)
		}
	}
	if len(positives) == 0 || len(negatives) == 0 || len(positives) == len(negatives) {
		return x, y
	}

	minority, majority := positives, negatives
	if len(negatives) < len(positives) {
		minority, majority = negatives, positives
	}

	outX := append([][]float64(nil), x...)
	outY := append([]float64(nil), y...)

	rng := rand.New(rand.NewSource(seed))
	for i := len(minority); i < len(majority); i++ {
		pick := minority[rng.Intn(len(minority))]
		outX = append(outX, x[pick])
		outY = append(outY, y[pick])
	}
	return outX, outY
}
