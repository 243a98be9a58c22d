// Package config resolves runtime configuration in priority order:
// compiled-in defaults, then the YAML file, then environment overrides.
// Secrets only ever come from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for a pipeline run.
type Config struct {
	GlobalStart time.Time

	WarehouseDSN    string
	WarehouseSchema string

	RunStoreEnabled bool
	RunStoreDSN     string
	RunStoreSchema  string
	RunTag          string

	CRMEnabled bool
	CRMBaseURL string
	CRMToken   string
	CRMTimeout time.Duration

	RegistryRoot string
	ModelName    string

	MinTenureMonths   float64
	MaxInactiveMonths float64
	MinRevenue12      float64

	TrainRounds         int
	LearningRate        float64
	EarlyStoppingRounds int
	SampleSeed          int64

	RiskThreshold float64
}

// configFile mirrors the YAML schema. Runtime-only fields stay out of it.
type configFile struct {
	Pipeline struct {
		GlobalStart string `yaml:"global_start"`
		RunTag      string `yaml:"run_tag"`
	} `yaml:"pipeline"`
	Warehouse struct {
		Schema string `yaml:"schema"`
	} `yaml:"warehouse"`
	RunStore struct {
		Enabled bool   `yaml:"enabled"`
		Schema  string `yaml:"schema"`
	} `yaml:"run_store"`
	CRM struct {
		Enabled        bool   `yaml:"enabled"`
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"crm"`
	Registry struct {
		Root      string `yaml:"root"`
		ModelName string `yaml:"model_name"`
	} `yaml:"registry"`
	Filters struct {
		MinTenureMonths   *float64 `yaml:"min_tenure_months"`
		MaxInactiveMonths *float64 `yaml:"max_inactive_months"`
		MinRevenue12      *float64 `yaml:"min_revenue_12_months"`
	} `yaml:"filters"`
	Model struct {
		Rounds              *int     `yaml:"rounds"`
		LearningRate        *float64 `yaml:"learning_rate"`
		EarlyStoppingRounds *int     `yaml:"early_stopping_rounds"`
		SampleSeed          *int64   `yaml:"sample_seed"`
	} `yaml:"model"`
	Report struct {
		RiskThreshold *float64 `yaml:"risk_threshold"`
	} `yaml:"report"`
}

// Load resolves the configuration. An empty path skips the file layer.
func Load(path string) (Config, error) {
	// A .env file is a local convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := Config{
		GlobalStart:         time.Date(2017, time.January, 1, 0, 0, 0, 0, time.UTC),
		WarehouseSchema:     "churn",
		RunStoreSchema:      "churn_audit",
		CRMTimeout:          30 * time.Second,
		RegistryRoot:        "models",
		ModelName:           "xgb_churn",
		MinTenureMonths:     6,
		MaxInactiveMonths:   9,
		MinRevenue12:        300,
		TrainRounds:         200,
		LearningRate:        0.1,
		EarlyStoppingRounds: 10,
		SampleSeed:          0,
		RiskThreshold:       0.5,
	}

	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if cfg.WarehouseDSN == "" {
		return Config{}, fmt.Errorf("warehouse DSN missing; set CHURN_WAREHOUSE_DSN or DATABASE_URL")
	}
	if cfg.RunStoreDSN == "" {
		cfg.RunStoreDSN = cfg.WarehouseDSN
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if file.Pipeline.GlobalStart != "" {
		start, err := time.Parse("2006-01-02", file.Pipeline.GlobalStart)
		if err != nil {
			return fmt.Errorf("parse global_start: %w", err)
		}
		cfg.GlobalStart = start
	}
	if file.Pipeline.RunTag != "" {
		cfg.RunTag = file.Pipeline.RunTag
	}
	if file.Warehouse.Schema != "" {
		cfg.WarehouseSchema = file.Warehouse.Schema
	}
	cfg.RunStoreEnabled = file.RunStore.Enabled
	if file.RunStore.Schema != "" {
		cfg.RunStoreSchema = file.RunStore.Schema
	}
	cfg.CRMEnabled = file.CRM.Enabled
	if file.CRM.BaseURL != "" {
		cfg.CRMBaseURL = file.CRM.BaseURL
	}
	if file.CRM.TimeoutSeconds > 0 {
		cfg.CRMTimeout = time.Duration(file.CRM.TimeoutSeconds) * time.Second
	}
	if file.Registry.Root != "" {
		cfg.RegistryRoot = file.Registry.Root
	}
	if file.Registry.ModelName != "" {
		cfg.ModelName = file.Registry.ModelName
	}
	if file.Filters.MinTenureMonths != nil {
		cfg.MinTenureMonths = *file.Filters.MinTenureMonths
	}
	if file.Filters.MaxInactiveMonths != nil {
		cfg.MaxInactiveMonths = *file.Filters.MaxInactiveMonths
	}
	if file.Filters.MinRevenue12 != nil {
		cfg.MinRevenue12 = *file.Filters.MinRevenue12
	}
	if file.Model.Rounds != nil {
		cfg.TrainRounds = *file.Model.Rounds
	}
	if file.Model.LearningRate != nil {
		cfg.LearningRate = *file.Model.LearningRate
	}
	if file.Model.EarlyStoppingRounds != nil {
		cfg.EarlyStoppingRounds = *file.Model.EarlyStoppingRounds
	}
	if file.Model.SampleSeed != nil {
		cfg.SampleSeed = *file.Model.SampleSeed
	}
	if file.Report.RiskThreshold != nil {
		cfg.RiskThreshold = *file.Report.RiskThreshold
	}
	return nil
}

func applyEnv(cfg *Config) {
	if value := os.Getenv("CHURN_WAREHOUSE_DSN"); value != "" {
		cfg.WarehouseDSN = value
	} else if value := os.Getenv("DATABASE_URL"); value != "" {
		cfg.WarehouseDSN = value
	}
	if value := os.Getenv("CHURN_RUNSTORE_DSN"); value != "" {
		cfg.RunStoreDSN = value
	}
	if value := os.Getenv("CHURN_CRM_BASE_URL"); value != "" {
		cfg.CRMBaseURL = value
	}
	if value := os.Getenv("CHURN_CRM_TOKEN"); value != "" {
		cfg.CRMToken = value
	}
	if value := os.Getenv("CHURN_REGISTRY_ROOT"); value != "" {
		cfg.RegistryRoot = value
	}
	if value := os.Getenv("CHURN_RUN_TAG"); value != "" {
		cfg.RunTag = value
	}
	if value := os.Getenv("CHURN_SAMPLE_SEED"); value != "" {
		if seed, err := strconv.ParseInt(value, 10, 64); err == nil {
			cfg.SampleSeed = seed
		}
	}
}
