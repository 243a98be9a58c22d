// Package runstore persists pipeline runs and scored rankings to Postgres so
// successive runs can be compared and audited.
package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const connectTimeout = 12 * time.Second

var validSchema = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Run is one recorded pipeline stage execution.
type Run struct {
	ID              uuid.UUID
	Stage           string
	LastKnownDate   time.Time
	ResiliationAsOf time.Time
	TrainRows       int
	TestRows        int
	PredictionRows  int
	ModelName       string
	ModelVersion    int
	Tag             string
}

// Score is one client's churn-risk entry within a run.
type Score struct {
	ClientCode   string
	OriginCode   string
	ChurnRisk    float64
	AccountOwner string
}

// Store wraps the run-audit database.
type Store struct {
	db     *sql.DB
	schema string
}

// Connect opens the store, pings it and creates the audit tables if needed.
func Connect(ctx context.Context, dsn, schema string) (*Store, error) {
	schema = strings.TrimSpace(schema)
	if !validSchema.MatchString(schema) {
		return nil, fmt.Errorf("invalid run store schema name: %q", schema)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping run store: %w", err)
	}

	store := &Store{db: db, schema: schema}
	if err := store.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts one run row and returns its generated ID.
func (s *Store) RecordRun(ctx context.Context, run Run) (uuid.UUID, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s.pipeline_runs (
			id, stage, last_known_date, resiliation_as_of,
			train_rows, test_rows, prediction_rows,
			model_name, model_version, run_tag
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`, s.schema),
		run.ID,
		run.Stage,
		nullDate(run.LastKnownDate),
		nullDate(run.ResiliationAsOf),
		run.TrainRows,
		run.TestRows,
		run.PredictionRows,
		nullString(run.ModelName),
		run.ModelVersion,
		nullString(run.Tag),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("record run: %w", err)
	}
	return run.ID, nil
}

// RecordScores stores the scored ranking for a run in one transaction.
func (s *Store) RecordScores(ctx context.Context, runID uuid.UUID, scores []Score) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record scores: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	insertSQL := fmt.Sprintf(`
		INSERT INTO %s.churn_scores (
			id, run_id, client_code, origin_code, churn_risk, account_owner
		) VALUES ($1,$2,$3,$4,$5,$6)`, s.schema)

	for _, score := range scores {
		if _, err = tx.ExecContext(ctx, insertSQL,
			uuid.New(),
			runID,
			score.ClientCode,
			nullString(score.OriginCode),
			score.ChurnRisk,
			nullString(score.AccountOwner),
		); err != nil {
			return fmt.Errorf("record scores: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("record scores: %w", err)
	}
	return nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, s.schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.pipeline_runs (
				id uuid PRIMARY KEY,
				stage text NOT NULL,
				last_known_date date,
				resiliation_as_of date,
				train_rows integer NOT NULL DEFAULT 0,
				test_rows integer NOT NULL DEFAULT 0,
				prediction_rows integer NOT NULL DEFAULT 0,
				model_name text,
				model_version integer NOT NULL DEFAULT 0,
				run_tag text,
				created_at timestamptz NOT NULL DEFAULT now()
			)`, s.schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.churn_scores (
				id uuid PRIMARY KEY,
				run_id uuid NOT NULL REFERENCES %s.pipeline_runs(id) ON DELETE CASCADE,
				client_code text NOT NULL,
				origin_code text,
				churn_risk numeric(5,4) NOT NULL,
				account_owner text,
				created_at timestamptz NOT NULL DEFAULT now()
			)`, s.schema, s.schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_churn_scores_run_idx ON %s.churn_scores (run_id)`, s.schema, s.schema),
	}
	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("ensure run store schema: %w", err)
		}
	}
	return nil
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullDate(value time.Time) sql.NullTime {
	if value.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value, Valid: true}
}
