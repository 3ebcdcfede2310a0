// Package period turns symbolic reporting periods into half-open time
// ranges in a given location.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// Period names a reporting window.
type Period string

const (
	Today         Period = "today"
	Week          Period = "week"
	Month         Period = "month"
	Quarter       Period = "quarter"
	Year          Period = "year"
	All           Period = "all"
	PreviousMonth Period = "prev_month"
	Custom        Period = "custom"
)

// Selectable lists the periods offered in the statistics menu.
var Selectable = []Period{Today, Week, Month, Quarter, Year, All}

var ErrInvalidRange = errors.New("invalid date range")

// Range is the interval [Start, End). A zero Start or End is unbounded.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && !t.Before(r.End) {
		return false
	}
	return true
}

// Parse validates a stored or callback-supplied period name.
func Parse(s string) (Period, error) {
	switch p := Period(s); p {
	case Today, Week, Month, Quarter, Year, All, PreviousMonth, Custom:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Title is the human label of the period.
func (p Period) Title() string {
	switch p {
	case Today:
		return "Today"
	case Week:
		return "This week"
	case Month:
		return "This month"
	case Quarter:
		return "This quarter"
	case Year:
		return "This year"
	case All:
		return "All time"
	case PreviousMonth:
		return "Previous month"
	case Custom:
		return "Custom range"
	}
	return string(p)
}

// Resolve computes the range of p around now, in loc. Custom ranges carry
// explicit dates and are built with Between instead.
func Resolve(p Period, now time.Time, loc *time.Location) (Range, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	switch p {
	case Today:
		return Range{Start: today, End: today.AddDate(0, 0, 1)}, nil
	case Week:
		offset := (int(now.Weekday()) + 6) % 7
		start := today.AddDate(0, 0, -offset)
		return Range{Start: start, End: start.AddDate(0, 0, 7)}, nil
	case Month:
		return Range{Start: monthStart, End: monthStart.AddDate(0, 1, 0)}, nil
	case Quarter:
		first := time.Month((int(now.Month())-1)/3*3 + 1)
		start := time.Date(now.Year(), first, 1, 0, 0, 0, 0, loc)
		return Range{Start: start, End: start.AddDate(0, 3, 0)}, nil
	case Year:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return Range{Start: start, End: start.AddDate(1, 0, 0)}, nil
	case All:
		return Range{}, nil
	case PreviousMonth:
		return Range{Start: monthStart.AddDate(0, -1, 0), End: monthStart}, nil
	case Custom:
		return Range{}, fmt.Errorf("custom period needs explicit dates")
	}
	return Range{}, fmt.Errorf("unknown period %q", string(p))
}

// Between returns the range covering the calendar days from..to inclusive.
func Between(from, to time.Time, loc *time.Location) (Range, error) {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	last := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc)
	if last.Before(start) {
		return Range{}, ErrInvalidRange
	}
	return Range{Start: start, End: last.AddDate(0, 0, 1)}, nil
}

// ParseBetween parses "<date>-<date>" (or "<date> - <date>") using layout.
func ParseBetween(s, layout string, loc *time.Location) (Range, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	// Layouts may contain '-' themselves, so split on the middle of the
	// string where the two equally long dates meet.
	compact := strings.ReplaceAll(s, " ", "")
	n := len(layout)
	if len(compact) != 2*n+1 || compact[n] != '-' {
		return Range{}, ErrInvalidRange
	}
	from, err := time.ParseInLocation(layout, compact[:n], loc)
	if err != nil {
		return Range{}, ErrInvalidRange
	}
	to, err := time.ParseInLocation(layout, compact[n+1:], loc)
	if err != nil {
		return Range{}, ErrInvalidRange
	}
	return Between(from, to, loc)
}

// MonthTitle renders "January 2025".
func MonthTitle(t time.Time) string {
	return fmt.Sprintf("%s %d", t.Month(), t.Year())
}
