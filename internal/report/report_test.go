package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/Taha-Alami/Chrun-prediction/internal/dataset"
)

func sampleRecords() dataset.Table {
	return dataset.Table{
		Columns: []string{
			"client_code", "client_origin_code", "revenue_6_months", "revenue_total",
			"revenue_growth", "transaction_trend", "inactive_months", "tenure",
		},
		Rows: [][]string{
			{"C-1", "ORIG-1", "1500", "9000", "-0.25", "-0.1", "3", "48"},
			{"C-2", "ORIG-2", "800", "2000", "0.40", "0.2", "0", "18"},
			{"C-3", "ORIG-3", "300", "600", "0", "0", "6", "7"},
		},
	}
}

func TestBuildThresholdAndOrder(t *testing.T) {
	owners := map[string]string{"C-1": "Jean Moreau", "C-3": "Claire Petit"}
	probs := []float64{0.72, 0.31, 0.91}

	entries, err := Build(sampleRecords(), probs, owners, 0.5)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries above threshold, got %d", len(entries))
	}
	if entries[0].ClientCode != "C-3" || entries[1].ClientCode != "C-1" {
		t.Fatalf("entries not sorted by descending risk: %+v", entries)
	}
	if entries[0].AccountOwner != "Claire Petit" {
		t.Fatalf("owner join failed: %+v", entries[0])
	}
	if entries[1].ConsumptionChange != "Decreased consumption" {
		t.Fatalf("consumption change = %q, want decreased", entries[1].ConsumptionChange)
	}
	if entries[0].ConsumptionChange != "Stable consumption" {
		t.Fatalf("consumption change = %q, want stable", entries[0].ConsumptionChange)
	}
	if entries[1].MonthsInvoiced != 9 {
		t.Fatalf("months invoiced = %d, want 9", entries[1].MonthsInvoiced)
	}
	if entries[1].CustomerAgeYears != 4 {
		t.Fatalf("customer age = %v, want 4", entries[1].CustomerAgeYears)
	}
}

func TestBuildMisalignedScores(t *testing.T) {
	if _, err := Build(sampleRecords(), []float64{0.5}, nil, 0.5); err == nil {
		t.Fatal("expected error for misaligned scores")
	}
}

func TestWriteCSV(t *testing.T) {
	entries := []Entry{
		{
			ClientCode:        "C-1",
			OriginCode:        "ORIG-1",
			ChurnRisk:         0.7241,
			Revenue6Months:    "1500",
			RevenueTotal:      "9000",
			ConsumptionChange: "Decreased consumption",
			TransactionTrend:  "-0.1",
			MonthsInvoiced:    9,
			CustomerAgeYears:  4,
			AccountOwner:      "Jean Moreau",
		},
	}

	path := filepath.Join(t.TempDir(), "churn.csv")
	if err := WriteCSV(entries, path); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus 1 row, got %d rows", len(rows))
	}
	if rows[1][2] != "0.7241" {
		t.Fatalf("churn risk cell = %q, want 0.7241", rows[1][2])
	}
	if rows[1][3] != "Jean Moreau" {
		t.Fatalf("owner cell = %q", rows[1][3])
	}
}
