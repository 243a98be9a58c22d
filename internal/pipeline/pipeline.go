// Package pipeline wires the three run stages: dataset preparation, model
// training and churn scoring. Stages run strictly sequentially; collaborators
// come in through interfaces so stages stay testable without a warehouse.
package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Taha-Alami/Chrun-prediction/internal/config"
	"github.com/Taha-Alami/Chrun-prediction/internal/dataset"
	"github.com/Taha-Alami/Chrun-prediction/internal/features"
	"github.com/Taha-Alami/Chrun-prediction/internal/runstore"
)

// DataSource is the warehouse collaborator as the pipeline sees it.
type DataSource interface {
	dataset.Warehouse
	LastDataDate(ctx context.Context) (string, error)
}

// RunRecorder persists run audit rows. A nil recorder disables auditing.
type RunRecorder interface {
	RecordRun(ctx context.Context, run runstore.Run) (uuid.UUID, error)
	RecordScores(ctx context.Context, runID uuid.UUID, scores []runstore.Score) error
}

// ModelStore is the registry collaborator.
type ModelStore interface {
	Register(name string, artifact any) (int, error)
	LoadLatest(name string, out any) (int, error)
}

// LabelColumn is the target column present in train and test artifacts.
const LabelColumn = "churn"

func featureConfig(cfg config.Config) features.Config {
	fcfg := features.DefaultConfig()
	fcfg.MinTenureMonths = cfg.MinTenureMonths
	fcfg.MaxInactiveMonths = cfg.MaxInactiveMonths
	fcfg.MinRevenue12 = decimal.NewFromFloat(cfg.MinRevenue12)
	return fcfg
}
