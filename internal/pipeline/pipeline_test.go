package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Taha-Alami/Chrun-prediction/internal/config"
	"github.com/Taha-Alami/Chrun-prediction/internal/dataset"
	"github.com/Taha-Alami/Chrun-prediction/internal/registry"
	"github.com/Taha-Alami/Chrun-prediction/internal/runstore"
	"github.com/Taha-Alami/Chrun-prediction/internal/window"
)

var sourceColumns = []string{
	"account", "client_code", "client_origin_code",
	"main_product", "business_sector", "workforce", "frequency",
	"tenure", "inactive_months", "revenue_6_months", "revenue_12_months",
	"revenue_total", "revenue_growth", "transaction_trend", "business_age",
	"churn",
}

// fakeSource returns synthetic rows: cancellation and consumption-stop rows
// are churners with decaying revenue, client rows are healthy accounts.
type fakeSource struct {
	rowsPerQuery int
	lastDate     string
}

func (f *fakeSource) LastDataDate(context.Context) (string, error) {
	return f.lastDate, nil
}

func (f *fakeSource) rows(prefix string, churn bool) dataset.Table {
	t := dataset.Table{Columns: sourceColumns}
	for i := 0; i < f.rowsPerQuery; i++ {
		label, trend, delta := "0", fmt.Sprintf("%.2f", 0.2+float64(i%4)*0.1), "-40"
		inactive := fmt.Sprintf("%d", i%3)
		if churn {
			label, trend, delta = "1", fmt.Sprintf("%.2f", -0.5-float64(i%4)*0.1), "90"
			inactive = fmt.Sprintf("%d", 4+i%5)
		}
		t.Rows = append(t.Rows, []string{
			fmt.Sprintf("ACC-%s-%d", prefix, i),
			fmt.Sprintf("C-%s-%d", prefix, i),
			fmt.Sprintf("ORIG-%s-%d", prefix, i),
			"standard", "retail", "10 to 19", "12",
			fmt.Sprintf("%d", 12+i), // tenure
			inactive,
			fmt.Sprintf("%d", 120+10*i), // revenue_6_months
			fmt.Sprintf("%d", 400+20*i), // revenue_12_months
			fmt.Sprintf("%d", 1500+i),   // revenue_total
			delta,                       // raw revenue delta
			trend,
			fmt.Sprintf("%d", 30+i),
			label,
		})
	}
	return t
}

func (f *fakeSource) ResiliationData(_ context.Context, _ window.Window, s window.Scenario) (dataset.Table, error) {
	return f.rows("res"+s.String(), true), nil
}

func (f *fakeSource) ArretConsoData(_ context.Context, w window.Window, _ time.Time) (dataset.Table, error) {
	return f.rows("arret"+w.Start.Format("0102"), true), nil
}

func (f *fakeSource) ClientData(_ context.Context, w window.Window, _ time.Time) (dataset.Table, error) {
	return f.rows("client"+w.Start.Format("0102"), false), nil
}

type fakeRecorder struct {
	runs   []runstore.Run
	scores map[uuid.UUID][]runstore.Score
}

func (f *fakeRecorder) RecordRun(_ context.Context, run runstore.Run) (uuid.UUID, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	f.runs = append(f.runs, run)
	return run.ID, nil
}

func (f *fakeRecorder) RecordScores(_ context.Context, runID uuid.UUID, scores []runstore.Score) error {
	if f.scores == nil {
		f.scores = map[uuid.UUID][]runstore.Score{}
	}
	f.scores[runID] = scores
	return nil
}

type staticOwners map[string]string

func (s staticOwners) AccountOwners(context.Context) (map[string]string, error) {
	return s, nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		GlobalStart:         time.Date(2017, time.January, 1, 0, 0, 0, 0, time.UTC),
		ModelName:           "xgb_churn",
		MinTenureMonths:     6,
		MaxInactiveMonths:   9,
		MinRevenue12:        300,
		TrainRounds:         40,
		LearningRate:        0.2,
		EarlyStoppingRounds: 10,
		RiskThreshold:       0.5,
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	cfg := testConfig(t)

	source := &fakeSource{rowsPerQuery: 12, lastDate: "15/11/2023"}
	recorder := &fakeRecorder{}

	prepareOpts := PrepareOptions{
		TrainPath:      filepath.Join(dir, "train.csv"),
		TestPath:       filepath.Join(dir, "test.csv"),
		PredictionPath: filepath.Join(dir, "predict.csv"),
	}
	if err := Prepare(ctx, cfg, source, recorder, logger, prepareOpts); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	for _, path := range []string{prepareOpts.TrainPath, prepareOpts.TestPath, prepareOpts.PredictionPath} {
		table, err := dataset.ReadCSV(path)
		if err != nil {
			t.Fatalf("read artifact %s: %v", path, err)
		}
		if table.Empty() {
			t.Fatalf("artifact %s is empty", path)
		}
	}

	if len(recorder.runs) != 1 || recorder.runs[0].Stage != "prepare" {
		t.Fatalf("unexpected recorded runs: %+v", recorder.runs)
	}
	if !recorder.runs[0].ResiliationAsOf.Equal(time.Date(2023, time.October, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("recorded resiliation as-of = %s", recorder.runs[0].ResiliationAsOf)
	}

	models := registry.New(filepath.Join(dir, "models"))
	if err := Train(ctx, cfg, models, recorder, logger, TrainOptions{
		TrainPath: prepareOpts.TrainPath,
		TestPath:  prepareOpts.TestPath,
	}); err != nil {
		t.Fatalf("train: %v", err)
	}
	trainRun := recorder.runs[len(recorder.runs)-1]
	if trainRun.Stage != "train" || trainRun.ModelVersion != 1 {
		t.Fatalf("unexpected train run: %+v", trainRun)
	}

	reportCSV := filepath.Join(dir, "churn_report.csv")
	reportJSON := filepath.Join(dir, "churn_report.json")
	owners := staticOwners{"C-arret1201-0": "Jean Moreau"}
	if err := Predict(ctx, cfg, models, owners, recorder, logger, PredictOptions{
		InputPath:      prepareOpts.PredictionPath,
		ReportCSVPath:  reportCSV,
		ReportJSONPath: reportJSON,
	}); err != nil {
		t.Fatalf("predict: %v", err)
	}

	if _, err := os.Stat(reportCSV); err != nil {
		t.Fatalf("report csv missing: %v", err)
	}
	if _, err := os.Stat(reportJSON); err != nil {
		t.Fatalf("report json missing: %v", err)
	}

	predictRun := recorder.runs[len(recorder.runs)-1]
	if predictRun.Stage != "predict" || predictRun.ModelVersion != 1 {
		t.Fatalf("unexpected predict run: %+v", predictRun)
	}
	if predictRun.PredictionRows == 0 {
		t.Fatal("predict run recorded no scored rows")
	}
}

func TestPredictWithoutRegisteredModel(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	cfg := testConfig(t)

	source := &fakeSource{rowsPerQuery: 4, lastDate: "2023-11-15"}
	prepareOpts := PrepareOptions{
		TrainPath:      filepath.Join(dir, "train.csv"),
		TestPath:       filepath.Join(dir, "test.csv"),
		PredictionPath: filepath.Join(dir, "predict.csv"),
	}
	if err := Prepare(ctx, cfg, source, nil, logger, prepareOpts); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	models := registry.New(filepath.Join(dir, "models"))
	err := Predict(ctx, cfg, models, nil, nil, logger, PredictOptions{
		InputPath:     prepareOpts.PredictionPath,
		ReportCSVPath: filepath.Join(dir, "report.csv"),
	})
	if err == nil {
		t.Fatal("expected error when no model is registered")
	}
}
