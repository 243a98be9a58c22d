package dates

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthEndIdempotent(t *testing.T) {
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{date(2023, time.November, 15), date(2023, time.November, 30)},
		{date(2023, time.February, 1), date(2023, time.February, 28)},
		{date(2024, time.February, 10), date(2024, time.February, 29)},
		{date(2023, time.October, 31), date(2023, time.October, 31)},
		{date(2023, time.April, 30), date(2023, time.April, 30)},
	}
	for _, tc := range cases {
		got := MonthEnd(tc.in)
		if !got.Equal(tc.want) {
			t.Fatalf("MonthEnd(%s) = %s, want %s", tc.in, got, tc.want)
		}
		if again := MonthEnd(got); !again.Equal(got) {
			t.Fatalf("MonthEnd not idempotent: %s -> %s", got, again)
		}
	}
}

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	if got := AddMonths(date(2023, time.October, 31), 6); !got.Equal(date(2024, time.April, 30)) {
		t.Fatalf("Oct 31 + 6 months = %s, want 2024-04-30", got)
	}
	if got := AddMonths(date(2023, time.November, 30), -1); !got.Equal(date(2023, time.October, 30)) {
		t.Fatalf("Nov 30 - 1 month = %s, want 2023-10-30", got)
	}
	if got := AddMonths(date(2024, time.January, 31), 1); !got.Equal(date(2024, time.February, 29)) {
		t.Fatalf("Jan 31 + 1 month = %s, want 2024-02-29", got)
	}
	if got := AddMonths(date(2023, time.March, 15), 2); !got.Equal(date(2023, time.May, 15)) {
		t.Fatalf("Mar 15 + 2 months = %s, want 2023-05-15", got)
	}
}

func TestParseLastDate(t *testing.T) {
	for _, value := range []string{"15/11/2023", "2023/11/15", "2023-11-15"} {
		got, err := ParseLastDate(value)
		if err != nil {
			t.Fatalf("ParseLastDate(%q): %v", value, err)
		}
		if !got.Equal(date(2023, time.November, 30)) {
			t.Fatalf("ParseLastDate(%q) = %s, want 2023-11-30", value, got)
		}
	}

	if _, err := ParseLastDate("not-a-date"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := ParseLastDate(""); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate for empty input, got %v", err)
	}
}

func TestResolverPreparationDates(t *testing.T) {
	r := NewResolver(date(2017, time.January, 1))
	last := date(2023, time.November, 15)

	normalized, err := r.Normalize(last)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !normalized.Equal(date(2023, time.November, 30)) {
		t.Fatalf("normalized = %s, want 2023-11-30", normalized)
	}

	res, err := r.ResiliationDate(last)
	if err != nil {
		t.Fatalf("resiliation date: %v", err)
	}
	if !res.Equal(date(2023, time.October, 31)) {
		t.Fatalf("resiliation date = %s, want 2023-10-31", res)
	}

	arret, err := r.ArretConsoDate(last)
	if err != nil {
		t.Fatalf("arret conso date: %v", err)
	}
	if !arret.Equal(date(2023, time.April, 30)) {
		t.Fatalf("arret conso date = %s, want 2023-04-30", arret)
	}

	client, err := r.ClientDate(last)
	if err != nil {
		t.Fatalf("client date: %v", err)
	}
	if !client.Equal(date(2023, time.February, 28)) {
		t.Fatalf("client date = %s, want 2023-02-28", client)
	}

	pred, err := r.PredictionStart(last)
	if err != nil {
		t.Fatalf("prediction start: %v", err)
	}
	if !pred.Equal(date(2023, time.December, 1)) {
		t.Fatalf("prediction start = %s, want 2023-12-01", pred)
	}
}

func TestResolverMinimumDate(t *testing.T) {
	r := NewResolver(date(2017, time.January, 1))
	if _, err := r.ClientDate(date(2017, time.March, 10)); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate for derivation before minimum, got %v", err)
	}
	if _, err := r.Normalize(date(2016, time.June, 1)); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate for candidate before minimum, got %v", err)
	}
}
