// Package report shapes scored predictions into the churn-risk ranking the
// account teams consume.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Taha-Alami/Chrun-prediction/internal/dataset"
)

// Entry is one at-risk client in the ranking.
type Entry struct {
	ClientCode        string  `json:"client_code"`
	OriginCode        string  `json:"client_origin_code"`
	ChurnRisk         float64 `json:"churn_risk"`
	Revenue6Months    string  `json:"revenue_6_months"`
	RevenueTotal      string  `json:"revenue_total"`
	ConsumptionChange string  `json:"consumption_change"`
	TransactionTrend  string  `json:"transaction_trend"`
	MonthsInvoiced    int     `json:"months_invoiced_last_12"`
	CustomerAgeYears  float64 `json:"customer_age_years"`
	AccountOwner      string  `json:"account_owner"`
}

// Build keeps rows at or above the risk threshold, enriches them from the
// raw record and the CRM owner map, and sorts by descending risk.
func Build(records dataset.Table, probs []float64, owners map[string]string, threshold float64) ([]Entry, error) {
	if len(probs) != records.Len() {
		return nil, fmt.Errorf("scores and records misaligned: %d vs %d", len(probs), records.Len())
	}

	columns := map[string]int{}
	for _, name := range []string{
		"client_code", "client_origin_code", "revenue_6_months", "revenue_total",
		"revenue_growth", "transaction_trend", "inactive_months", "tenure",
	} {
		idx, ok := records.Column(name)
		if !ok {
			return nil, fmt.Errorf("report column %q missing", name)
		}
		columns[name] = idx
	}

	entries := make([]Entry, 0, len(probs))
	for i, prob := range probs {
		if prob < threshold {
			continue
		}
		row := records.Rows[i]

		inactive, err := parseFloat(row[columns["inactive_months"]])
		if err != nil {
			return nil, fmt.Errorf("report row %d inactive_months: %w", i, err)
		}
		tenure, err := parseFloat(row[columns["tenure"]])
		if err != nil {
			return nil, fmt.Errorf("report row %d tenure: %w", i, err)
		}
		growth, err := parseFloat(row[columns["revenue_growth"]])
		if err != nil {
			return nil, fmt.Errorf("report row %d revenue_growth: %w", i, err)
		}

		code := strings.TrimSpace(row[columns["client_code"]])
		entries = append(entries, Entry{
			ClientCode:        code,
			OriginCode:        strings.TrimSpace(row[columns["client_origin_code"]]),
			ChurnRisk:         math.Round(prob*10000) / 10000,
			Revenue6Months:    strings.TrimSpace(row[columns["revenue_6_months"]]),
			RevenueTotal:      strings.TrimSpace(row[columns["revenue_total"]]),
			ConsumptionChange: consumptionChange(growth),
			TransactionTrend:  strings.TrimSpace(row[columns["transaction_trend"]]),
			MonthsInvoiced:    int(math.Max(0, 12-inactive)),
			CustomerAgeYears:  math.Round(tenure / 12),
			AccountOwner:      owners[code],
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ChurnRisk > entries[j].ChurnRisk
	})
	return entries, nil
}

func consumptionChange(growth float64) string {
	switch {
	case growth > 0:
		return "Increased consumption"
	case growth < 0:
		return "Decreased consumption"
	default:
		return "Stable consumption"
	}
}

func parseFloat(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}

// WriteCSV writes the ranking for distribution to account teams.
func WriteCSV(entries []Entry, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{
		"client_origin_code", "client_code", "churn_risk", "account_owner",
		"revenue_6_months", "revenue_total", "consumption_change",
		"transaction_trend", "months_invoiced_last_12", "customer_age_years",
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, entry := range entries {
		record := []string{
			entry.OriginCode,
			entry.ClientCode,
			strconv.FormatFloat(entry.ChurnRisk, 'f', 4, 64),
			entry.AccountOwner,
			entry.Revenue6Months,
			entry.RevenueTotal,
			entry.ConsumptionChange,
			entry.TransactionTrend,
			strconv.Itoa(entry.MonthsInvoiced),
			strconv.FormatFloat(entry.CustomerAgeYears, 'f', 0, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteJSON writes the ranking as a JSON artifact.
func WriteJSON(entries []Entry, path string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
