package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Taha-Alami/Chrun-prediction/internal/config"
	"github.com/Taha-Alami/Chrun-prediction/internal/crm"
	"github.com/Taha-Alami/Chrun-prediction/internal/pipeline"
	"github.com/Taha-Alami/Chrun-prediction/internal/registry"
	"github.com/Taha-Alami/Chrun-prediction/internal/runstore"
	"github.com/Taha-Alami/Chrun-prediction/internal/warehouse"
)

const usage = `Usage: churnpipeline <command> [flags]

Commands:
  prepare   Extract the warehouse data and write the train, test and
            prediction artifacts.
  train     Fit the churn classifier on the prepared artifacts and
            register it.
  predict   Score the prediction artifact and write the churn report.

Run "churnpipeline <command> -h" for the command's flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "prepare":
		err = runPrepare(ctx, logger, os.Args[2:])
	case "train":
		err = runTrain(ctx, logger, os.Args[2:])
	case "predict":
		err = runPredict(ctx, logger, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		exitWithError(err)
	}
}

func runPrepare(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("prepare", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config file")
	trainPath := fs.String("train", "train.csv", "Train artifact output path")
	testPath := fs.String("test", "test.csv", "Test artifact output path")
	predictionPath := fs.String("prediction", "predict.csv", "Prediction artifact output path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	source, err := warehouse.Connect(ctx, cfg.WarehouseDSN, cfg.WarehouseSchema, logger)
	if err != nil {
		return err
	}
	defer source.Close()

	recorder, closeRecorder, err := openRecorder(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRecorder()

	return pipeline.Prepare(ctx, cfg, source, recorder, logger, pipeline.PrepareOptions{
		TrainPath:      *trainPath,
		TestPath:       *testPath,
		PredictionPath: *predictionPath,
	})
}

func runTrain(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config file")
	trainPath := fs.String("train", "train.csv", "Train artifact path")
	testPath := fs.String("test", "test.csv", "Test artifact path")
	modelName := fs.String("model", "", "Override the configured model name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *modelName != "" {
		cfg.ModelName = *modelName
	}

	recorder, closeRecorder, err := openRecorder(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRecorder()

	return pipeline.Train(ctx, cfg, registry.New(cfg.RegistryRoot), recorder, logger, pipeline.TrainOptions{
		TrainPath: *trainPath,
		TestPath:  *testPath,
	})
}

func runPredict(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config file")
	inputPath := fs.String("input", "predict.csv", "Prediction artifact path")
	reportCSV := fs.String("report", "churn_report.csv", "Churn report CSV output path")
	reportJSON := fs.String("json", "", "Optional churn report JSON output path")
	modelName := fs.String("model", "", "Override the configured model name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *modelName != "" {
		cfg.ModelName = *modelName
	}

	var owners crm.OwnerLookup
	if cfg.CRMEnabled {
		owners = crm.NewClient(crm.Config{
			BaseURL: cfg.CRMBaseURL,
			Token:   cfg.CRMToken,
			Timeout: cfg.CRMTimeout,
		})
	}

	recorder, closeRecorder, err := openRecorder(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRecorder()

	return pipeline.Predict(ctx, cfg, registry.New(cfg.RegistryRoot), owners, recorder, logger, pipeline.PredictOptions{
		InputPath:      *inputPath,
		ReportCSVPath:  *reportCSV,
		ReportJSONPath: *reportJSON,
	})
}

// openRecorder returns a nil RunRecorder when auditing is disabled. The
// returned close func is always safe to call.
func openRecorder(ctx context.Context, cfg config.Config) (pipeline.RunRecorder, func(), error) {
	if !cfg.RunStoreEnabled {
		return nil, func() {}, nil
	}
	store, err := runstore.Connect(ctx, cfg.RunStoreDSN, cfg.RunStoreSchema)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
