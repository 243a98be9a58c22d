// Package features turns raw scenario record sets into the numerical matrix
// the classifier consumes. The same assembly serves training and scoring;
// training additionally pops the label column.
package features

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Taha-Alami/Chrun-prediction/internal/dataset"
)

// ErrSchema marks a missing or mistyped column. Schema problems abort the
// run; there is no partial-feature fallback.
var ErrSchema = errors.New("schema error")

// Config holds the thresholds and column roles for feature assembly. Values
// come from run configuration, not package state, so tests can vary them.
type Config struct {
	MinTenureMonths   float64
	MaxInactiveMonths float64
	MinRevenue12      decimal.Decimal

	DropColumns        []string
	CategoricalColumns []string
	NumericalFeatures  []string

	// WorkforceFold maps sparse workforce categories onto the default
	// bucket used when the CRM never recorded a headcount.
	WorkforceDefault string
	WorkforceFold    []string
}

// DefaultConfig mirrors the production thresholds and column roles.
func DefaultConfig() Config {
	return Config{
		MinTenureMonths:   6,
		MaxInactiveMonths: 9,
		MinRevenue12:      decimal.NewFromInt(300),
		DropColumns:       []string{"account", "client_origin_code"},
		CategoricalColumns: []string{
			"main_product", "business_sector", "workforce",
		},
		NumericalFeatures: []string{
			"tenure", "inactive_months", "frequency",
			"revenue_6_months", "revenue_12_months", "revenue_total",
			"revenue_growth", "transaction_trend", "business_age",
		},
		WorkforceDefault: "1 or 2 employees",
		WorkforceFold: []string{
			"unknown", "0 employees as of 31/12", "1 to 9", "unit without employees",
		},
	}
}

// Matrix is a dense numerical feature matrix with named columns, rounded to
// two decimal places.
type Matrix struct {
	Columns []string
	Rows    [][]float64
}

// Result pairs the feature matrix with its labels (when a label column was
// given) and the filtered raw rows aligned with the matrix, which the churn
// report joins back on.
type Result struct {
	X     Matrix
	Y     []float64
	Kept  dataset.Table
	Codes []string
}

// Assemble filters, casts and derives features from a raw record set. With a
// non-empty labelColumn the label vector is popped before selection.
func Assemble(raw dataset.Table, cfg Config, labelColumn string) (Result, error) {
	if raw.Empty() {
		return Result{}, fmt.Errorf("%w: empty record set", ErrSchema)
	}

	required := make([]string, 0, len(cfg.CategoricalColumns)+len(cfg.NumericalFeatures)+2)
	required = append(required, cfg.CategoricalColumns...)
	required = append(required, cfg.NumericalFeatures...)
	required = append(required, "client_code")
	if labelColumn != "" {
		required = append(required, labelColumn)
	}
	index := make(map[string]int, len(required))
	for _, name := range required {
		idx, ok := raw.Column(name)
		if !ok {
			return Result{}, fmt.Errorf("%w: missing column %q", ErrSchema, name)
		}
		index[name] = idx
	}

	fold := make(map[string]bool, len(cfg.WorkforceFold))
	for _, v := range cfg.WorkforceFold {
		fold[strings.ToLower(v)] = true
	}
	drop := make(map[int]bool, len(cfg.DropColumns))
	for _, name := range cfg.DropColumns {
		if idx, ok := raw.Column(name); ok {
			drop[idx] = true
		}
	}

	result := Result{
		X:    Matrix{Columns: cfg.NumericalFeatures},
		Kept: dataset.Table{Columns: raw.Columns},
	}

	for rowNum, row := range raw.Rows {
		if len(row) != len(raw.Columns) {
			return Result{}, fmt.Errorf("%w: row %d has %d values, expected %d",
				ErrSchema, rowNum, len(row), len(raw.Columns))
		}

		clean := append([]string(nil), row...)

		// Absent tenure means a new client; negative values are extract
		// artifacts and treated the same way.
		tenure, err := numericOrZero(clean[index["tenure"]])
		if err != nil {
			return Result{}, castError("tenure", rowNum, err)
		}
		if tenure < 0 {
			tenure = 0
		}
		clean[index["tenure"]] = formatFloat(tenure)

		businessAge, err := numericOrZero(clean[index["business_age"]])
		if err != nil {
			return Result{}, castError("business_age", rowNum, err)
		}
		if businessAge < 0 {
			businessAge = 0
		}
		clean[index["business_age"]] = formatFloat(businessAge)

		workforce := strings.TrimSpace(clean[index["workforce"]])
		if workforce == "" || fold[strings.ToLower(workforce)] {
			clean[index["workforce"]] = cfg.WorkforceDefault
		}

		if _, err := strconv.Atoi(strings.TrimSpace(clean[index["frequency"]])); err != nil {
			return Result{}, castError("frequency", rowNum, err)
		}

		inactive, err := numericOrZero(clean[index["inactive_months"]])
		if err != nil {
			return Result{}, castError("inactive_months", rowNum, err)
		}
		revenue12, err := decimalValue(clean[index["revenue_12_months"]])
		if err != nil {
			return Result{}, castError("revenue_12_months", rowNum, err)
		}

		if tenure < cfg.MinTenureMonths || inactive > cfg.MaxInactiveMonths || revenue12.LessThan(cfg.MinRevenue12) {
			continue
		}

		revenue6, err := decimalValue(clean[index["revenue_6_months"]])
		if err != nil {
			return Result{}, castError("revenue_6_months", rowNum, err)
		}
		delta, err := decimalValue(clean[index["revenue_growth"]])
		if err != nil {
			return Result{}, castError("revenue_growth", rowNum, err)
		}
		growth := revenueGrowth(revenue6, delta)
		clean[index["revenue_growth"]] = growth.StringFixed(2)

		featureRow := make([]float64, len(cfg.NumericalFeatures))
		for i, name := range cfg.NumericalFeatures {
			value, err := decimalValue(clean[index[name]])
			if err != nil {
				return Result{}, castError(name, rowNum, err)
			}
			featureRow[i], _ = value.Round(2).Float64()
		}

		if labelColumn != "" {
			label, err := strconv.ParseFloat(strings.TrimSpace(clean[index[labelColumn]]), 64)
			if err != nil {
				return Result{}, castError(labelColumn, rowNum, err)
			}
			result.Y = append(result.Y, label)
		}

		result.X.Rows = append(result.X.Rows, featureRow)
		result.Kept.Rows = append(result.Kept.Rows, clean)
		result.Codes = append(result.Codes, strings.TrimSpace(clean[index["client_code"]]))
	}

	return result, nil
}

// revenueGrowth derives the growth ratio from the last 6-month revenue and
// the raw delta versus the prior period: rev6/(rev6-delta) - 1 equals
// rev6/prev6 - 1. A prior period with no revenue yields 0, not infinity.
func revenueGrowth(revenue6, delta decimal.Decimal) decimal.Decimal {
	denominator := revenue6.Sub(delta)
	if denominator.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return revenue6.Div(denominator).Sub(decimal.NewFromInt(1)).Round(4)
}

func numericOrZero(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}

func decimalValue(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func castError(column string, row int, err error) error {
	return fmt.Errorf("%w: column %q row %d: %v", ErrSchema, column, row, err)
}
