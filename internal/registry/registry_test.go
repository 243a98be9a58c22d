package registry

import (
	"errors"
	"testing"

	"github.com/Taha-Alami/Chrun-prediction/internal/model"
)

func TestRegisterAndLoadLatest(t *testing.T) {
	reg := New(t.TempDir())

	first := &model.Classifier{Bias: -1.5, LearningRate: 0.1}
	v1, err := reg.Register("xgb_churn", first)
	if err != nil {
		t.Fatalf("register v1: %v", err)
	}
	if v1 != 1 {
		t.Fatalf("first version = %d, want 1", v1)
	}

	second := &model.Classifier{
		Bias:         -0.5,
		LearningRate: 0.2,
		Stumps:       []model.Stump{{Feature: 1, Threshold: 4, Left: -0.3, Right: 0.7}},
	}
	v2, err := reg.Register("xgb_churn", second)
	if err != nil {
		t.Fatalf("register v2: %v", err)
	}
	if v2 != 2 {
		t.Fatalf("second version = %d, want 2", v2)
	}

	var loaded model.Classifier
	version, err := reg.LoadLatest("xgb_churn", &loaded)
	if err != nil {
		t.Fatalf("load latest: %v", err)
	}
	if version != 2 {
		t.Fatalf("latest version = %d, want 2", version)
	}
	if loaded.Bias != second.Bias || len(loaded.Stumps) != 1 {
		t.Fatalf("loaded model mismatch: %+v", loaded)
	}
}

func TestLoadLatestMissingModel(t *testing.T) {
	reg := New(t.TempDir())
	var out model.Classifier
	if _, err := reg.LoadLatest("absent", &out); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
