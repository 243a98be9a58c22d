package model

import "math"

// Metrics is the evaluation summary logged after training.
type Metrics struct {
	TruePositives  int
	FalsePositives int
	TrueNegatives  int
	FalseNegatives int
	Accuracy       float64
	Precision      float64
	Recall         float64
	LogLoss        float64
}

// Evaluate scores predicted probabilities against labels with a 0.5 cut.
func Evaluate(probs []float64, y []float64) Metrics {
	var m Metrics
	if len(probs) == 0 {
		return m
	}

	loss := 0.0
	for i, p := range probs {
		predicted := p >= 0.5
		actual := y[i] > 0.5
		switch {
		case predicted && actual:
			m.TruePositives++
		case predicted && !actual:
			m.FalsePositives++
		case !predicted && !actual:
			m.TrueNegatives++
		default:
			m.FalseNegatives++
		}

		clamped := math.Min(math.Max(p, 1e-12), 1-1e-12)
		if actual {
			loss -= math.Log(clamped)
		} else {
			loss -= math.Log(1 - clamped)
		}
	}

	total := float64(len(probs))
	m.Accuracy = float64(m.TruePositives+m.TrueNegatives) / total
	if m.TruePositives+m.FalsePositives > 0 {
		m.Precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}
	if m.TruePositives+m.FalseNegatives > 0 {
		m.Recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}
	m.LogLoss = loss / total
	return m
}
