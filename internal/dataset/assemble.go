package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Taha-Alami/Chrun-prediction/internal/window"
)

// Warehouse is the data-access collaborator. Implementations return an empty
// table, never an error, for no-match queries.
type Warehouse interface {
	ResiliationData(ctx context.Context, w window.Window, s window.Scenario) (Table, error)
	ArretConsoData(ctx context.Context, w window.Window, lastKnown time.Time) (Table, error)
	ClientData(ctx context.Context, w window.Window, lastKnown time.Time) (Table, error)
}

// Assembler fetches and combines scenario record sets. Empty results are
// logged and carried forward; only inverted windows and query failures abort.
type Assembler struct {
	warehouse Warehouse
	logger    *slog.Logger
}

func NewAssembler(warehouse Warehouse, logger *slog.Logger) *Assembler {
	return &Assembler{warehouse: warehouse, logger: logger}
}

// Resiliations combines the three scenario snapshots over
// [globalStart, asOf], preserving scenario-then-source row order.
func (a *Assembler) Resiliations(ctx context.Context, globalStart, asOf time.Time) (Table, error) {
	parts := make([]Table, 0, 3)
	for _, s := range window.Scenarios() {
		w := window.Resiliation(globalStart, asOf, s)
		if err := w.Validate(); err != nil {
			return Table{}, fmt.Errorf("resiliation %s: %w", s, err)
		}
		data, err := a.warehouse.ResiliationData(ctx, w, s)
		if err != nil {
			return Table{}, fmt.Errorf("resiliation %s %s: %w", s, w, err)
		}
		a.logResult(window.CategoryResiliation, s.String(), w, data)
		parts = append(parts, data)
	}
	combined, err := Concat(parts...)
	if err != nil {
		return Table{}, fmt.Errorf("combine resiliation scenarios: %w", err)
	}
	return combined, nil
}

// ArretConso fetches consumption-stop data over the window; lastKnown is the
// right-open sentinel the warehouse query needs to judge current inactivity.
func (a *Assembler) ArretConso(ctx context.Context, w window.Window, lastKnown time.Time) (Table, error) {
	if err := w.Validate(); err != nil {
		return Table{}, fmt.Errorf("arret conso: %w", err)
	}
	data, err := a.warehouse.ArretConsoData(ctx, w, lastKnown)
	if err != nil {
		return Table{}, fmt.Errorf("arret conso %s: %w", w, err)
	}
	a.logResult(window.CategoryArretConso, "", w, data)
	return data, nil
}

// Clients fetches general client-inactivity data over the window.
func (a *Assembler) Clients(ctx context.Context, w window.Window, lastKnown time.Time) (Table, error) {
	if err := w.Validate(); err != nil {
		return Table{}, fmt.Errorf("clients: %w", err)
	}
	data, err := a.warehouse.ClientData(ctx, w, lastKnown)
	if err != nil {
		return Table{}, fmt.Errorf("clients %s: %w", w, err)
	}
	a.logResult(window.CategoryClient, "", w, data)
	return data, nil
}

func (a *Assembler) logResult(c window.Category, scenario string, w window.Window, data Table) {
	attrs := []any{
		"category", c.String(),
		"start", w.Start.Format("2006-01-02"),
		"end", w.End.Format("2006-01-02"),
		"rows", data.Len(),
	}
	if scenario != "" {
		attrs = append(attrs, "scenario", scenario)
	}
	if data.Empty() {
		a.logger.Warn("no data for window", attrs...)
		return
	}
	a.logger.Info("fetched window data", attrs...)
}
