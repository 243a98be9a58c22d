package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Taha-Alami/Chrun-prediction/internal/dates"
	"github.com/Taha-Alami/Chrun-prediction/internal/window"
)

// AsOfDates carries the per-category cutoffs resolved for one run.
type AsOfDates struct {
	Normalized      time.Time
	Resiliation     time.Time
	ArretConso      time.Time
	Client          time.Time
	PredictionStart time.Time
}

// Partition is the output of one dataset-assembly stage.
type Partition struct {
	Train      Table
	Test       Table
	Prediction Table
	AsOf       AsOfDates
}

// Partitioner derives the train/test/prediction split for a run. Training
// covers [globalStart, category as-of]; test covers the day after the
// resiliation as-of up to the last known date; prediction covers the one
// forward month after the last known date.
type Partitioner struct {
	assembler *Assembler
	resolver  *dates.Resolver
	logger    *slog.Logger
}

func NewPartitioner(assembler *Assembler, resolver *dates.Resolver, logger *slog.Logger) *Partitioner {
	return &Partitioner{assembler: assembler, resolver: resolver, logger: logger}
}

// Partition assembles the three dataset roles for the run. lastKnown is the
// most recent date present in the extract; globalStart bounds all history.
func (p *Partitioner) Partition(ctx context.Context, globalStart, lastKnown time.Time) (Partition, error) {
	asOf, err := p.resolveDates(lastKnown)
	if err != nil {
		return Partition{}, err
	}

	train, err := p.assembleUnion(ctx, globalStart, asOf.Resiliation,
		window.Window{Start: globalStart, End: asOf.ArretConso},
		window.Window{Start: globalStart, End: asOf.Client},
		asOf.Normalized)
	if err != nil {
		return Partition{}, fmt.Errorf("training set: %w", err)
	}

	// Each category's test range starts the day after its own cutoff, so
	// train and test never overlap for any category.
	resTestStart := asOf.Resiliation.AddDate(0, 0, 1)
	resTestWindow := window.Window{Start: resTestStart, End: asOf.Normalized}
	arretTestWindow := window.Window{Start: asOf.ArretConso.AddDate(0, 0, 1), End: asOf.Normalized}
	clientTestWindow := window.Window{Start: asOf.Client.AddDate(0, 0, 1), End: asOf.Normalized}
	for _, w := range []window.Window{resTestWindow, arretTestWindow, clientTestWindow} {
		if err := w.Validate(); err != nil {
			return Partition{}, fmt.Errorf("test set: %w", err)
		}
	}
	test, err := p.assembleUnion(ctx, resTestStart, asOf.Normalized, arretTestWindow, clientTestWindow, asOf.Normalized)
	if err != nil {
		return Partition{}, fmt.Errorf("test set: %w", err)
	}

	predictionWindow := window.Window{
		Start: asOf.PredictionStart,
		End:   dates.MonthEnd(asOf.PredictionStart),
	}
	if err := predictionWindow.Validate(); err != nil {
		return Partition{}, fmt.Errorf("prediction set: %w", err)
	}
	prediction, err := p.assembler.ArretConso(ctx, predictionWindow, asOf.Normalized)
	if err != nil {
		return Partition{}, fmt.Errorf("prediction set: %w", err)
	}

	p.logger.Info("partitioned datasets",
		"train_rows", train.Len(),
		"test_rows", test.Len(),
		"prediction_rows", prediction.Len(),
		"resiliation_as_of", asOf.Resiliation.Format("2006-01-02"),
		"last_known", asOf.Normalized.Format("2006-01-02"),
	)

	return Partition{Train: train, Test: test, Prediction: prediction, AsOf: asOf}, nil
}

// assembleUnion concatenates the three category datasets: resiliation over
// [resStart, resEnd] with scenario fan-out, arret conso and clients over
// their own windows.
func (p *Partitioner) assembleUnion(ctx context.Context, resStart, resEnd time.Time, arretWindow, clientWindow window.Window, lastKnown time.Time) (Table, error) {
	resiliations, err := p.assembler.Resiliations(ctx, resStart, resEnd)
	if err != nil {
		return Table{}, err
	}
	arrets, err := p.assembler.ArretConso(ctx, arretWindow, lastKnown)
	if err != nil {
		return Table{}, err
	}
	clients, err := p.assembler.Clients(ctx, clientWindow, lastKnown)
	if err != nil {
		return Table{}, err
	}
	combined, err := Concat(resiliations, arrets, clients)
	if err != nil {
		return Table{}, err
	}
	return combined, nil
}

func (p *Partitioner) resolveDates(lastKnown time.Time) (AsOfDates, error) {
	var asOf AsOfDates
	var err error
	if asOf.Normalized, err = p.resolver.Normalize(lastKnown); err != nil {
		return AsOfDates{}, err
	}
	if asOf.Resiliation, err = p.resolver.ResiliationDate(lastKnown); err != nil {
		return AsOfDates{}, err
	}
	if asOf.ArretConso, err = p.resolver.ArretConsoDate(lastKnown); err != nil {
		return AsOfDates{}, err
	}
	if asOf.Client, err = p.resolver.ClientDate(lastKnown); err != nil {
		return AsOfDates{}, err
	}
	if asOf.PredictionStart, err = p.resolver.PredictionStart(lastKnown); err != nil {
		return AsOfDates{}, err
	}
	return asOf, nil
}
