// Package dates resolves the reference dates that anchor every pipeline run.
// All derivations start from the most recent date observed in the warehouse
// extract, normalized to the last calendar day of its month.
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDate marks unparseable dates and dates outside the supported range.
var ErrInvalidDate = errors.New("invalid date")

var parseLayouts = []string{
	"02/01/2006",
	"2006/01/02",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseLastDate parses the warehouse's last-data date and normalizes it to
// month-end. Extracts have carried both DD/MM/YYYY and YYYY/MM/DD over time,
// so both layouts are accepted.
func ParseLastDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidDate)
	}
	for _, layout := range parseLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return MonthEnd(parsed), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unsupported date format %q", ErrInvalidDate, value)
}

// DateOnly truncates a timestamp to midnight UTC.
func DateOnly(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns the last calendar day of the value's month.
func MonthEnd(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first calendar day of the value's month.
func MonthStart(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths shifts a date by n calendar months, clamping to the target
// month's last day. time.AddDate would roll Oct 31 + 6 months into May 1;
// window arithmetic needs Apr 30.
func AddMonths(value time.Time, n int) time.Time {
	year, month, day := value.Date()
	target := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := MonthEnd(target).Day()
	if day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, 0, 0, 0, 0, time.UTC)
}

// Resolver derives per-category preparation dates from the last known data
// date. Derived dates before Min are rejected.
type Resolver struct {
	Min time.Time
}

// NewResolver returns a Resolver that refuses dates before min.
func NewResolver(min time.Time) *Resolver {
	return &Resolver{Min: DateOnly(min)}
}

// Normalize snaps a candidate date to its month-end. Idempotent.
func (r *Resolver) Normalize(candidate time.Time) (time.Time, error) {
	normalized := MonthEnd(DateOnly(candidate))
	if err := r.check(normalized); err != nil {
		return time.Time{}, err
	}
	return normalized, nil
}

// ResiliationDate is the training cutoff for cancellation data: one month
// before the normalized last date, snapped back to month-end.
func (r *Resolver) ResiliationDate(candidate time.Time) (time.Time, error) {
	return r.offsetMonthEnd(candidate, -1)
}

// ArretConsoDate is the training cutoff for consumption-stop data.
func (r *Resolver) ArretConsoDate(candidate time.Time) (time.Time, error) {
	return r.offsetMonthEnd(candidate, -7)
}

// ClientDate is the training cutoff for general client-inactivity data.
func (r *Resolver) ClientDate(candidate time.Time) (time.Time, error) {
	return r.offsetMonthEnd(candidate, -9)
}

// PredictionStart is the first day of the month following the normalized
// last date; scoring looks forward from there.
func (r *Resolver) PredictionStart(candidate time.Time) (time.Time, error) {
	normalized, err := r.Normalize(candidate)
	if err != nil {
		return time.Time{}, err
	}
	start := normalized.AddDate(0, 0, 1)
	if err := r.check(start); err != nil {
		return time.Time{}, err
	}
	return start, nil
}

func (r *Resolver) offsetMonthEnd(candidate time.Time, months int) (time.Time, error) {
	normalized, err := r.Normalize(candidate)
	if err != nil {
		return time.Time{}, err
	}
	shifted := MonthEnd(AddMonths(normalized, months))
	if err := r.check(shifted); err != nil {
		return time.Time{}, err
	}
	return shifted, nil
}

func (r *Resolver) check(value time.Time) error {
	if !r.Min.IsZero() && value.Before(r.Min) {
		return fmt.Errorf("%w: %s precedes minimum supported date %s",
			ErrInvalidDate, value.Format("2006-01-02"), r.Min.Format("2006-01-02"))
	}
	return nil
}
