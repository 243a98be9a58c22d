package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Taha-Alami/Chrun-prediction/internal/config"
	"github.com/Taha-Alami/Chrun-prediction/internal/crm"
	"github.com/Taha-Alami/Chrun-prediction/internal/dataset"
	"github.com/Taha-Alami/Chrun-prediction/internal/features"
	"github.com/Taha-Alami/Chrun-prediction/internal/model"
	"github.com/Taha-Alami/Chrun-prediction/internal/report"
	"github.com/Taha-Alami/Chrun-prediction/internal/runstore"
)

// PredictOptions locates the scoring input and report outputs.
type PredictOptions struct {
	InputPath      string
	ReportCSVPath  string
	ReportJSONPath string
}

// Predict scores the prediction artifact with the latest registered model
// and writes the churn-risk report. The CRM join is best-effort: a failed
// lookup degrades to a report without owner names.
func Predict(ctx context.Context, cfg config.Config, models ModelStore, owners crm.OwnerLookup, recorder RunRecorder, logger *slog.Logger, opts PredictOptions) error {
	table, err := dataset.ReadCSV(opts.InputPath)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}

	assembled, err := features.Assemble(table, featureConfig(cfg), "")
	if err != nil {
		return fmt.Errorf("predict features: %w", err)
	}

	var clf model.Classifier
	version, err := models.LoadLatest(cfg.ModelName, &clf)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	if len(clf.Features) > 0 && !slices.Equal(clf.Features, assembled.X.Columns) {
		return fmt.Errorf("%w: model %s v%d expects features %v, artifact provides %v",
			features.ErrSchema, cfg.ModelName, version, clf.Features, assembled.X.Columns)
	}
	logger.Info("loaded model", "name", cfg.ModelName, "version", version)

	probs := clf.PredictProba(assembled.X.Rows)

	var ownerNames map[string]string
	if owners != nil {
		ownerNames, err = owners.AccountOwners(ctx)
		if err != nil {
			logger.Warn("crm owner lookup failed; report will omit owners", "error", err)
			ownerNames = nil
		}
	}

	entries, err := report.Build(assembled.Kept, probs, ownerNames, cfg.RiskThreshold)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}
	logger.Info("scored prediction set",
		"scored_rows", len(probs),
		"at_risk", len(entries),
		"threshold", cfg.RiskThreshold,
	)

	if err := report.WriteCSV(entries, opts.ReportCSVPath); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if opts.ReportJSONPath != "" {
		if err := report.WriteJSON(entries, opts.ReportJSONPath); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if recorder != nil {
		runID, err := recorder.RecordRun(ctx, runstore.Run{
			Stage:          "predict",
			PredictionRows: len(probs),
			ModelName:      cfg.ModelName,
			ModelVersion:   version,
			Tag:            cfg.RunTag,
		})
		if err != nil {
			return fmt.Errorf("predict: %w", err)
		}
		scores := make([]runstore.Score, 0, len(entries))
		for _, entry := range entries {
			scores = append(scores, runstore.Score{
				ClientCode:   entry.ClientCode,
				OriginCode:   entry.OriginCode,
				ChurnRisk:    entry.ChurnRisk,
				AccountOwner: entry.AccountOwner,
			})
		}
		if err := recorder.RecordScores(ctx, runID, scores); err != nil {
			return fmt.Errorf("predict: %w", err)
		}
	}
	return nil
}
