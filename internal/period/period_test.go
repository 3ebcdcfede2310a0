package period

import (
	"testing"
	"time"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}

func TestResolve(t *testing.T) {
	loc := mustLoc(t, "Europe/Moscow")
	// Wednesday, 14 May 2025, 10:30 in Moscow.
	now := time.Date(2025, time.May, 14, 10, 30, 0, 0, loc)
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, loc) }

	cases := []struct {
		p     Period
		start time.Time
		end   time.Time
	}{
		{Today, day(2025, 5, 14), day(2025, 5, 15)},
		{Week, day(2025, 5, 12), day(2025, 5, 19)},
		{Month, day(2025, 5, 1), day(2025, 6, 1)},
		{Quarter, day(2025, 4, 1), day(2025, 7, 1)},
		{Year, day(2025, 1, 1), day(2026, 1, 1)},
		{PreviousMonth, day(2025, 4, 1), day(2025, 5, 1)},
	}
	for _, tc := range cases {
		r, err := Resolve(tc.p, now, loc)
		if err != nil {
			t.Fatalf("%s: %v", tc.p, err)
		}
		if !r.Start.Equal(tc.start) || !r.End.Equal(tc.end) {
			t.Fatalf("%s: got [%s, %s), want [%s, %s)", tc.p, r.Start, r.End, tc.start, tc.end)
		}
		if !r.Contains(now) && tc.p != PreviousMonth {
			t.Fatalf("%s: range does not contain now", tc.p)
		}
		if r.Contains(r.End) {
			t.Fatalf("%s: range must exclude its end", tc.p)
		}
	}
}

func TestResolveUsesCallerTimezone(t *testing.T) {
	loc := mustLoc(t, "Asia/Tokyo")
	// 23:30 UTC on 31 Jan is already 1 Feb in Tokyo.
	now := time.Date(2025, time.January, 31, 23, 30, 0, 0, time.UTC)
	r, err := Resolve(Month, now, loc)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, time.February, 1, 0, 0, 0, 0, loc)
	if !r.Start.Equal(want) {
		t.Fatalf("month start = %s, want %s", r.Start, want)
	}
}

func TestWeekStartsOnMonday(t *testing.T) {
	sunday := time.Date(2025, time.May, 18, 12, 0, 0, 0, time.UTC)
	r, err := Resolve(Week, sunday, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if r.Start.Weekday() != time.Monday || r.Start.Day() != 12 {
		t.Fatalf("week start = %s, want Monday 12th", r.Start)
	}
}

func TestPreviousMonthAcrossYear(t *testing.T) {
	now := time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)
	r, err := Resolve(PreviousMonth, now, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Start.Equal(time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %s", r.Start)
	}
	if !r.End.Equal(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %s", r.End)
	}
}

func TestAllIsUnbounded(t *testing.T) {
	r, err := Resolve(All, time.Now(), time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Start.IsZero() || !r.End.IsZero() {
		t.Fatalf("all-time range should be unbounded, got %+v", r)
	}
	if !r.Contains(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("all-time range should contain any instant")
	}
}

func TestParseBetween(t *testing.T) {
	cases := []struct {
		in     string
		layout string
		ok     bool
		days   int
	}{
		{"01.01.2025-31.01.2025", "02.01.2006", true, 31},
		{"01.01.2025 - 01.01.2025", "02.01.2006", true, 1},
		{"2025-03-01-2025-03-10", "2006-01-02", true, 10},
		{"31.01.2025-01.01.2025", "02.01.2006", false, 0},
		{"garbage", "02.01.2006", false, 0},
		{"32.01.2025-01.02.2025", "02.01.2006", false, 0},
	}
	for _, tc := range cases {
		r, err := ParseBetween(tc.in, tc.layout, time.UTC)
		if tc.ok != (err == nil) {
			t.Fatalf("ParseBetween(%q) err = %v, want ok=%v", tc.in, err, tc.ok)
		}
		if !tc.ok {
			continue
		}
		if got := int(r.End.Sub(r.Start).Hours() / 24); got != tc.days {
			t.Fatalf("ParseBetween(%q) spans %d days, want %d", tc.in, got, tc.days)
		}
	}
}
