package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Taha-Alami/Chrun-prediction/internal/config"
	"github.com/Taha-Alami/Chrun-prediction/internal/dataset"
	"github.com/Taha-Alami/Chrun-prediction/internal/dates"
	"github.com/Taha-Alami/Chrun-prediction/internal/runstore"
)

// PrepareOptions locates the dataset artifacts the stage writes.
type PrepareOptions struct {
	TrainPath      string
	TestPath       string
	PredictionPath string
}

// Prepare extracts, windows and partitions the raw data into the train, test
// and prediction artifacts.
func Prepare(ctx context.Context, cfg config.Config, source DataSource, recorder RunRecorder, logger *slog.Logger, opts PrepareOptions) error {
	lastRaw, err := source.LastDataDate(ctx)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	lastKnown, err := dates.ParseLastDate(lastRaw)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	logger.Info("resolved last known data date", "last_known", lastKnown.Format("2006-01-02"))

	resolver := dates.NewResolver(cfg.GlobalStart)
	assembler := dataset.NewAssembler(source, logger)
	partitioner := dataset.NewPartitioner(assembler, resolver, logger)

	part, err := partitioner.Partition(ctx, cfg.GlobalStart, lastKnown)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}

	if err := part.Train.WriteCSV(opts.TrainPath); err != nil {
		return fmt.Errorf("write train artifact: %w", err)
	}
	if err := part.Test.WriteCSV(opts.TestPath); err != nil {
		return fmt.Errorf("write test artifact: %w", err)
	}
	if err := part.Prediction.WriteCSV(opts.PredictionPath); err != nil {
		return fmt.Errorf("write prediction artifact: %w", err)
	}
	logger.Info("wrote dataset artifacts",
		"train", opts.TrainPath,
		"test", opts.TestPath,
		"prediction", opts.PredictionPath,
	)

	if recorder != nil {
		_, err := recorder.RecordRun(ctx, runstore.Run{
			Stage:           "prepare",
			LastKnownDate:   part.AsOf.Normalized,
			ResiliationAsOf: part.AsOf.Resiliation,
			TrainRows:       part.Train.Len(),
			TestRows:        part.Test.Len(),
			PredictionRows:  part.Prediction.Len(),
			Tag:             cfg.RunTag,
		})
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
	}
	return nil
}
