// Package dataset assembles the per-scenario record sets that feed training,
// testing and scoring. Record sets are column-ordered tables of string
// values; typed interpretation happens downstream in feature assembly.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table is a record set as returned by the warehouse: a header plus rows in
// source order. A Table with no rows is a valid, loggable outcome.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len reports the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Empty reports whether the table has no rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Column returns the index of the named column, case-insensitively.
func (t Table) Column(name string) (int, bool) {
	for i, col := range t.Columns {
		if strings.EqualFold(col, name) {
			return i, true
		}
	}
	return -1, false
}

// Concat row-concatenates tables in order, without deduplication. Empty
// tables are identity elements; the first non-empty table fixes the column
// set and later tables must match it.
func Concat(tables ...Table) (Table, error) {
	var out Table
	for _, t := range tables {
		if t.Empty() {
			continue
		}
		if out.Columns == nil {
			out.Columns = t.Columns
		} else if !sameColumns(out.Columns, t.Columns) {
			return Table{}, fmt.Errorf("cannot concatenate tables with mismatched columns: %v vs %v",
				out.Columns, t.Columns)
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out, nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

// WriteCSV serializes the table as a CSV artifact.
func (t Table) WriteCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV loads a table artifact written by WriteCSV.
func ReadCSV(path string) (Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Table{}, fmt.Errorf("unable to read header from %s: %w", path, err)
	}

	table := Table{Columns: header}
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Table{}, fmt.Errorf("unable to read %s: %w", path, err)
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}
