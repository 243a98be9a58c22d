// Package window builds the observation windows that bound every warehouse
// query. Windows are constructed freely and validated before use: an
// inverted window is a caller error, never a silent empty query.
package window

import (
	"errors"
	"fmt"
	"time"

	"github.com/Taha-Alami/Chrun-prediction/internal/dates"
)

// ErrInvalidWindow marks windows whose start falls after their end.
var ErrInvalidWindow = errors.New("invalid window")

// Category identifies which churn signal a dataset captures.
type Category int

const (
	CategoryResiliation Category = iota
	CategoryArretConso
	CategoryClient
)

func (c Category) String() string {
	switch c {
	case CategoryResiliation:
		return "resiliation"
	case CategoryArretConso:
		return "arret_conso"
	case CategoryClient:
		return "client"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Scenario is one of the three time-shifted snapshots used for resiliation
// data. Each scenario advances the base window by its extra month offset so
// the classifier sees the same cohort at successive monthly snapshots.
type Scenario int

const (
	ScenarioBase Scenario = iota
	ScenarioPlusOne
	ScenarioPlusTwo
)

// resiliationBaseShiftMonths is the shift applied to both window bounds
// before any per-scenario offset.
const resiliationBaseShiftMonths = 6

// Scenarios lists the resiliation scenarios in snapshot order.
func Scenarios() [3]Scenario {
	return [3]Scenario{ScenarioBase, ScenarioPlusOne, ScenarioPlusTwo}
}

// ExtraMonths is the scenario's offset beyond the base shift.
func (s Scenario) ExtraMonths() int {
	switch s {
	case ScenarioBase:
		return 0
	case ScenarioPlusOne:
		return 1
	case ScenarioPlusTwo:
		return 2
	default:
		return 0
	}
}

func (s Scenario) String() string {
	return fmt.Sprintf("scenario_%d", int(s))
}

// Window is a day-granular observation interval. Start must not fall after
// End; both bounds are included when querying.
type Window struct {
	Start time.Time
	End   time.Time
}

// Validate rejects inverted windows.
func (w Window) Validate() error {
	if w.Start.After(w.End) {
		return fmt.Errorf("%w: start %s after end %s",
			ErrInvalidWindow, w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
	}
	return nil
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// Resiliation returns the observation window for one resiliation scenario:
// both bounds shifted by the 6-month base plus the scenario's extra months.
func Resiliation(globalStart, asOf time.Time, s Scenario) Window {
	shift := resiliationBaseShiftMonths + s.ExtraMonths()
	return Window{
		Start: dates.AddMonths(globalStart, shift),
		End:   dates.AddMonths(asOf, shift),
	}
}

// ResiliationAll returns the three scenario windows in snapshot order. The
// windows tile forward through time by one-month steps; callers must
// Validate each before querying.
func ResiliationAll(globalStart, asOf time.Time) [3]Window {
	var windows [3]Window
	for i, s := range Scenarios() {
		windows[i] = Resiliation(globalStart, asOf, s)
	}
	return windows
}
