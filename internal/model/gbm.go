// Package model implements the churn classifier: gradient-boosted decision
// stumps with logistic loss. The learner is deliberately small; it stands in
// for the boosted-tree library the pipeline trains against, with the same
// contract (fit on a matrix, predict probabilities, serialize for the
// registry).
package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Stump is a single depth-one regression tree on one feature.
type Stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`
	Right     float64 `json:"right"`
}

// Classifier is a serialized boosted ensemble.
type Classifier struct {
	Bias         float64  `json:"bias"`
	LearningRate float64  `json:"learning_rate"`
	Stumps       []Stump  `json:"stumps"`
	Features     []string `json:"features"`
}

// TrainConfig controls the boosting loop.
type TrainConfig struct {
	Rounds              int
	LearningRate        float64
	EarlyStoppingRounds int
	MaxThresholds       int
}

// DefaultTrainConfig mirrors the production training parameters.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Rounds:              200,
		LearningRate:        0.1,
		EarlyStoppingRounds: 10,
		MaxThresholds:       32,
	}
}

const hessianFloor = 1e-6

// Train fits the ensemble on (x, y), evaluating log loss on (xVal, yVal)
// after every round and keeping the round with the best validation loss.
func Train(x [][]float64, y []float64, xVal [][]float64, yVal []float64, featureNames []string, cfg TrainConfig) (*Classifier, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, errors.New("training set is empty or misaligned")
	}
	if len(xVal) != len(yVal) {
		return nil, errors.New("validation set is misaligned")
	}
	if cfg.Rounds <= 0 || cfg.LearningRate <= 0 {
		return nil, fmt.Errorf("invalid training config: rounds=%d lr=%v", cfg.Rounds, cfg.LearningRate)
	}
	if cfg.MaxThresholds <= 0 {
		cfg.MaxThresholds = 32
	}

	clf := &Classifier{
		Bias:         initialBias(y),
		LearningRate: cfg.LearningRate,
		Features:     featureNames,
	}

	scores := make([]float64, len(x))
	for i := range scores {
		scores[i] = clf.Bias
	}
	valScores := make([]float64, len(xVal))
	for i := range valScores {
		valScores[i] = clf.Bias
	}

	bestLoss := math.Inf(1)
	bestRound := 0
	sinceBest := 0

	for round := 0; round < cfg.Rounds; round++ {
		stump, ok := fitStump(x, y, scores, cfg.MaxThresholds)
		if !ok {
			break
		}
		clf.Stumps = append(clf.Stumps, stump)
		applyStump(x, scores, stump, cfg.LearningRate)
		applyStump(xVal, valScores, stump, cfg.LearningRate)

		if len(xVal) > 0 && cfg.EarlyStoppingRounds > 0 {
			loss := logLossFromScores(valScores, yVal)
			if loss < bestLoss {
				bestLoss = loss
				bestRound = round + 1
				sinceBest = 0
			} else {
				sinceBest++
				if sinceBest >= cfg.EarlyStoppingRounds {
					clf.Stumps = clf.Stumps[:bestRound]
					break
				}
			}
		}
	}

	return clf, nil
}

// PredictProba returns the churn probability for each row.
func (c *Classifier) PredictProba(rows [][]float64) []float64 {
	probs := make([]float64, len(rows))
	for i, row := range rows {
		probs[i] = sigmoid(c.score(row))
	}
	return probs
}

func (c *Classifier) score(row []float64) float64 {
	score := c.Bias
	for _, stump := range c.Stumps {
		score += c.LearningRate * stump.value(row)
	}
	return score
}

func (s Stump) value(row []float64) float64 {
	if s.Feature < len(row) && row[s.Feature] <= s.Threshold {
		return s.Left
	}
	return s.Right
}

func applyStump(rows [][]float64, scores []float64, s Stump, lr float64) {
	for i, row := range rows {
		scores[i] += lr * s.value(row)
	}
}

// fitStump picks the split that best fits the current gradients, with a
// Newton step for the leaf values.
func fitStump(x [][]float64, y []float64, scores []float64, maxThresholds int) (Stump, bool) {
	n := len(x)
	grads := make([]float64, n)
	hess := make([]float64, n)
	for i := range x {
		p := sigmoid(scores[i])
		grads[i] = y[i] - p
		hess[i] = math.Max(p*(1-p), hessianFloor)
	}

	var best Stump
	bestGain := 0.0
	found := false

	features := len(x[0])
	for f := 0; f < features; f++ {
		thresholds := candidateThresholds(x, f, maxThresholds)
		for _, threshold := range thresholds {
			var gl, hl, gr, hr float64
			for i, row := range x {
				if row[f] <= threshold {
					gl += grads[i]
					hl += hess[i]
				} else {
					gr += grads[i]
					hr += hess[i]
				}
			}
			if hl == 0 || hr == 0 {
				continue
			}
			gain := gl*gl/hl + gr*gr/hr
			if gain > bestGain {
				bestGain = gain
				best = Stump{Feature: f, Threshold: threshold, Left: gl / hl, Right: gr / hr}
				found = true
			}
		}
	}
	return best, found
}

// candidateThresholds returns up to maxThresholds split points for a feature,
// taken as midpoints between consecutive distinct values.
func candidateThresholds(x [][]float64, feature, maxThresholds int) []float64 {
	values := make([]float64, 0, len(x))
	for _, row := range x {
		values = append(values, row[feature])
	}
	sort.Float64s(values)

	distinct := values[:0]
	for i, v := range values {
		if i == 0 || v != distinct[len(distinct)-1] {
			distinct = append(distinct, v)
		}
	}
	if len(distinct) < 2 {
		return nil
	}

	midpoints := make([]float64, 0, len(distinct)-1)
	for i := 1; i < len(distinct); i++ {
		midpoints = append(midpoints, (distinct[i-1]+distinct[i])/2)
	}
	if len(midpoints) <= maxThresholds {
		return midpoints
	}

	sampled := make([]float64, 0, maxThresholds)
	step := float64(len(midpoints)) / float64(maxThresholds)
	for i := 0; i < maxThresholds; i++ {
		sampled = append(sampled, midpoints[int(float64(i)*step)])
	}
	return sampled
}

func initialBias(y []float64) float64 {
	positives := 0.0
	for _, label := range y {
		if label > 0.5 {
			positives++
		}
	}
	p := positives / float64(len(y))
	p = math.Min(math.Max(p, 1e-4), 1-1e-4)
	return math.Log(p / (1 - p))
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func logLossFromScores(scores []float64, y []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	total := 0.0
	for i, score := range scores {
		p := math.Min(math.Max(sigmoid(score), 1e-12), 1-1e-12)
		if y[i] > 0.5 {
			total -= math.Log(p)
		} else {
			total -= math.Log(1 - p)
		}
	}
	return total / float64(len(scores))
}
