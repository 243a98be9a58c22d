package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Taha-Alami/Chrun-prediction/internal/config"
	"github.com/Taha-Alami/Chrun-prediction/internal/dataset"
	"github.com/Taha-Alami/Chrun-prediction/internal/features"
	"github.com/Taha-Alami/Chrun-prediction/internal/model"
	"github.com/Taha-Alami/Chrun-prediction/internal/runstore"
)

// TrainOptions locates the dataset artifacts the stage reads.
type TrainOptions struct {
	TrainPath string
	TestPath  string
}

// Train fits the classifier on the prepared artifacts, logs its evaluation
// and registers the result as the model's next version.
func Train(ctx context.Context, cfg config.Config, models ModelStore, recorder RunRecorder, logger *slog.Logger, opts TrainOptions) error {
	trainTable, err := dataset.ReadCSV(opts.TrainPath)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	testTable, err := dataset.ReadCSV(opts.TestPath)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	fcfg := featureConfig(cfg)
	trainSet, err := features.Assemble(trainTable, fcfg, LabelColumn)
	if err != nil {
		return fmt.Errorf("train features: %w", err)
	}
	testSet, err := features.Assemble(testTable, fcfg, LabelColumn)
	if err != nil {
		return fmt.Errorf("test features: %w", err)
	}

	x, y := model.Oversample(trainSet.X.Rows, trainSet.Y, cfg.SampleSeed)
	logger.Info("training classifier",
		"train_rows", len(x),
		"raw_train_rows", len(trainSet.X.Rows),
		"test_rows", len(testSet.X.Rows),
		"features", len(trainSet.X.Columns),
	)

	clf, err := model.Train(x, y, testSet.X.Rows, testSet.Y, trainSet.X.Columns, model.TrainConfig{
		Rounds:              cfg.TrainRounds,
		LearningRate:        cfg.LearningRate,
		EarlyStoppingRounds: cfg.EarlyStoppingRounds,
	})
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	metrics := model.Evaluate(clf.PredictProba(testSet.X.Rows), testSet.Y)
	logger.Info("evaluated classifier",
		"rounds", len(clf.Stumps),
		"accuracy", metrics.Accuracy,
		"precision", metrics.Precision,
		"recall", metrics.Recall,
		"log_loss", metrics.LogLoss,
		"tp", metrics.TruePositives,
		"fp", metrics.FalsePositives,
		"tn", metrics.TrueNegatives,
		"fn", metrics.FalseNegatives,
	)

	version, err := models.Register(cfg.ModelName, clf)
	if err != nil {
		return fmt.Errorf("register model: %w", err)
	}
	logger.Info("registered model", "name", cfg.ModelName, "version", version)

	if recorder != nil {
		_, err := recorder.RecordRun(ctx, runstore.Run{
			Stage:        "train",
			TrainRows:    len(trainSet.X.Rows),
			TestRows:     len(testSet.X.Rows),
			ModelName:    cfg.ModelName,
			ModelVersion: version,
			Tag:          cfg.RunTag,
		})
		if err != nil {
			return fmt.Errorf("train: %w", err)
		}
	}
	return nil
}
