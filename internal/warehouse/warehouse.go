// Package warehouse is the data-access collaborator: it runs the per-category
// feature queries against the analytics warehouse and returns raw record
// sets. No-match queries return empty tables, never errors.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Taha-Alami/Chrun-prediction/internal/dataset"
	"github.com/Taha-Alami/Chrun-prediction/internal/window"
)

const connectTimeout = 12 * time.Second

// featureColumns is the raw column set every category query projects. The
// views behind these queries own the heavy joins; this layer only windows
// and scans.
const featureColumns = `account, client_code, client_origin_code,
	main_product, business_sector, workforce, frequency,
	tenure, inactive_months, revenue_6_months, revenue_12_months,
	revenue_total, revenue_growth, transaction_trend, business_age, churn`

// Client wraps the warehouse connection.
type Client struct {
	db     *sql.DB
	schema string
	logger *slog.Logger
}

// Connect opens and pings the warehouse.
func Connect(ctx context.Context, dsn, schema string, logger *slog.Logger) (*Client, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}

	return &Client{db: db, schema: schema, logger: logger}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

// LastDataDate returns the most recent date present in the extract, as the
// warehouse formats it.
func (c *Client) LastDataDate(ctx context.Context) (string, error) {
	var value string
	query := fmt.Sprintf(`SELECT to_char(max(observed_on), 'YYYY-MM-DD') FROM %s.billing_facts`, c.schema)
	if err := c.db.QueryRowContext(ctx, query).Scan(&value); err != nil {
		return "", fmt.Errorf("last data date: %w", err)
	}
	return value, nil
}

// ResiliationData returns cancellation observations whose event falls inside
// the window, snapshotted at the scenario's month offset before the event.
func (c *Client) ResiliationData(ctx context.Context, w window.Window, s window.Scenario) (dataset.Table, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.resiliation_features
		WHERE resiliation_date >= $1 AND resiliation_date <= $2
		  AND snapshot_offset_months = $3
		ORDER BY resiliation_date, client_code`,
		featureColumns, c.schema)
	return c.queryTable(ctx, query, w.Start, w.End, s.ExtraMonths())
}

// ArretConsoData returns consumption-stop observations inside the window.
// lastKnown bounds the inactivity check on the right.
func (c *Client) ArretConsoData(ctx context.Context, w window.Window, lastKnown time.Time) (dataset.Table, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.arret_conso_features
		WHERE last_consumption_date >= $1 AND last_consumption_date <= $2
		  AND observed_through <= $3
		ORDER BY last_consumption_date, client_code`,
		featureColumns, c.schema)
	return c.queryTable(ctx, query, w.Start, w.End, lastKnown)
}

// ClientData returns the general client-inactivity observations inside the
// window.
func (c *Client) ClientData(ctx context.Context, w window.Window, lastKnown time.Time) (dataset.Table, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.client_features
		WHERE snapshot_date >= $1 AND snapshot_date <= $2
		  AND observed_through <= $3
		ORDER BY snapshot_date, client_code`,
		featureColumns, c.schema)
	return c.queryTable(ctx, query, w.Start, w.End, lastKnown)
}

// queryTable scans any projection into a column-ordered table, rendering
// every value as text. NULLs become empty strings; feature assembly owns
// their interpretation.
func (c *Client) queryTable(ctx context.Context, query string, args ...any) (dataset.Table, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return dataset.Table{}, fmt.Errorf("warehouse query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return dataset.Table{}, fmt.Errorf("warehouse columns: %w", err)
	}

	table := dataset.Table{Columns: columns}
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return dataset.Table{}, fmt.Errorf("warehouse scan: %w", err)
		}
		record := make([]string, len(columns))
		for i, value := range values {
			record[i] = renderValue(value)
		}
		table.Rows = append(table.Rows, record)
	}
	if err := rows.Err(); err != nil {
		return dataset.Table{}, fmt.Errorf("warehouse rows: %w", err)
	}
	return table, nil
}

func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case string:
		return v
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", v)
	}
}
