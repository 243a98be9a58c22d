package model

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"testing"
)

// toySet builds a separable problem: churn when revenue trend is negative
// and inactivity is high.
func toySet(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, 0, n)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		trend := rng.Float64()*2 - 1
		inactive := rng.Float64() * 12
		label := 0.0
		if trend < -0.1 && inactive > 4 {
			label = 1
		}
		x = append(x, []float64{trend, inactive, rng.Float64() * 100})
		y = append(y, label)
	}
	return x, y
}

func TestTrainSeparatesToySet(t *testing.T) {
	xTrain, yTrain := toySet(400, 1)
	xVal, yVal := toySet(120, 2)

	clf, err := Train(xTrain, yTrain, xVal, yVal, []string{"trend", "inactive", "noise"}, DefaultTrainConfig())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if len(clf.Stumps) == 0 {
		t.Fatal("expected at least one stump")
	}

	metrics := Evaluate(clf.PredictProba(xVal), yVal)
	if metrics.Accuracy < 0.9 {
		t.Fatalf("accuracy = %.3f, want >= 0.9 on separable data", metrics.Accuracy)
	}
	if metrics.Recall == 0 {
		t.Fatal("recall is zero; positive class never predicted")
	}
}

func TestTrainRejectsBadInput(t *testing.T) {
	if _, err := Train(nil, nil, nil, nil, nil, DefaultTrainConfig()); err == nil {
		t.Fatal("expected error for empty training set")
	}
	x := [][]float64{{1}, {2}}
	y := []float64{0}
	if _, err := Train(x, y, nil, nil, nil, DefaultTrainConfig()); err == nil {
		t.Fatal("expected error for misaligned labels")
	}
}

func TestClassifierJSONRoundTrip(t *testing.T) {
	xTrain, yTrain := toySet(200, 3)
	clf, err := Train(xTrain, yTrain, nil, nil, []string{"trend", "inactive", "noise"}, TrainConfig{
		Rounds:       25,
		LearningRate: 0.2,
	})
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	data, err := json.Marshal(clf)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored Classifier
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(*clf, restored) {
		t.Fatal("classifier changed across JSON round trip")
	}

	before := clf.PredictProba(xTrain[:5])
	after := restored.PredictProba(xTrain[:5])
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("predictions differ after round trip: %v vs %v", before, after)
	}
}

func TestOversampleBalancesClasses(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}, {5}}
	y := []float64{1, 0, 0, 0, 0}

	ox, oy := Oversample(x, y, 7)
	if len(ox) != len(oy) {
		t.Fatalf("misaligned oversample output: %d vs %d", len(ox), len(oy))
	}
	positives, negatives := 0, 0
	for _, label := range oy {
		if label > 0.5 {
			positives++
		} else {
			negatives++
		}
	}
	if positives != negatives {
		t.Fatalf("classes not balanced: %d positives vs %d negatives", positives, negatives)
	}

	again, againY := Oversample(x, y, 7)
	if !reflect.DeepEqual(ox, again) || !reflect.DeepEqual(oy, againY) {
		t.Fatal("oversampling not deterministic for a fixed seed")
	}
}

func TestOversampleNoOpWhenBalanced(t *testing.T) {
	x := [][]float64{{1}, {2}}
	y := []float64{1, 0}
	ox, oy := Oversample(x, y, 1)
	if len(ox) != 2 || len(oy) != 2 {
		t.Fatalf("balanced input should be untouched, got %d rows", len(ox))
	}
}
