// Package timeperiod resolves natural-language time-period phrases into
// inclusive calendar date ranges.
package timeperiod

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	errs "github.com/timeclerk/timeclerk/internal/errors"
)

// ISODate is the wire format for calendar dates.
const ISODate = "2006-01-02"

// DateRange is an inclusive range of calendar dates.
// Start and End are midnight-anchored in the resolver's location.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// String renders the range as "YYYY-MM-DD to YYYY-MM-DD".
func (r DateRange) String() string {
	return fmt.Sprintf("%s to %s", r.Start.Format(ISODate), r.End.Format(ISODate))
}

// Contains reports whether the given date falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	day := Truncate(t)
	return !day.Before(r.Start) && !day.After(r.End)
}

// monthsByName maps month names and standard abbreviations to months.
var monthsByName = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// acceptedForms is the vocabulary reported on resolution failure.
var acceptedForms = []string{
	"today", "yesterday",
	"this week", "last week",
	"this month", "last month",
	"this year",
	"<month> <year> (e.g. june 2025)",
	"YYYY-MM-DD to YYYY-MM-DD",
	"YYYY-MM-DD",
}

// Resolver turns period phrases into date ranges. The reference clock is
// injectable so resolution is a pure function of (phrase, now).
type Resolver struct {
	now func() time.Time
}

// NewResolver creates a resolver anchored on the wall clock.
func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// WithNow returns a resolver anchored on the given clock.
func (r *Resolver) WithNow(now func() time.Time) *Resolver {
	return &Resolver{now: now}
}

// Truncate drops the time-of-day component, keeping the location.
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekStart returns the Monday of the week containing t.
func WeekStart(t time.Time) time.Time {
	day := Truncate(t)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return day.AddDate(0, 0, -(weekday - 1))
}

// Resolve parses a period phrase into an inclusive date range.
// Recognized forms are tried in order; the first match wins.
func (r *Resolver) Resolve(phrase string) (DateRange, error) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	today := Truncate(r.now())

	switch p {
	case "today":
		return DateRange{Start: today, End: today}, nil
	case "yesterday":
		d := today.AddDate(0, 0, -1)
		return DateRange{Start: d, End: d}, nil
	case "this week":
		monday := WeekStart(today)
		return DateRange{Start: monday, End: monday.AddDate(0, 0, 6)}, nil
	case "last week":
		monday := WeekStart(today).AddDate(0, 0, -7)
		return DateRange{Start: monday, End: monday.AddDate(0, 0, 6)}, nil
	case "this month":
		return monthRange(today.Year(), today.Month(), today.Location()), nil
	case "last month":
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()).AddDate(0, -1, 0)
		return monthRange(first.Year(), first.Month(), today.Location()), nil
	case "this year":
		start := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
		end := time.Date(today.Year(), time.December, 31, 0, 0, 0, 0, today.Location())
		return DateRange{Start: start, End: end}, nil
	}

	if rng, ok := parseMonthYear(p, today.Location()); ok {
		return rng, nil
	}

	if before, after, found := strings.Cut(p, " to "); found {
		start, err1 := time.ParseInLocation(ISODate, strings.TrimSpace(before), today.Location())
		end, err2 := time.ParseInLocation(ISODate, strings.TrimSpace(after), today.Location())
		if err1 != nil || err2 != nil {
			return DateRange{}, invalidPeriod(phrase)
		}
		if end.Before(start) {
			return DateRange{}, errs.InvalidPeriod(fmt.Sprintf(
				"period %q ends before it starts", phrase))
		}
		return DateRange{Start: start, End: end}, nil
	}

	if d, err := time.ParseInLocation(ISODate, p, today.Location()); err == nil {
		return DateRange{Start: d, End: d}, nil
	}

	return DateRange{}, invalidPeriod(phrase)
}

// ResolveDate parses a single-date word used by entry creation:
// today, yesterday, tomorrow, or a literal YYYY-MM-DD date.
func (r *Resolver) ResolveDate(word string) (time.Time, error) {
	w := strings.ToLower(strings.TrimSpace(word))
	today := Truncate(r.now())

	switch w {
	case "today", "now", "":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	}

	if d, err := time.ParseInLocation(ISODate, w, today.Location()); err == nil {
		return d, nil
	}

	return time.Time{}, errs.InvalidArgument(fmt.Sprintf(
		"unrecognized date %q: use today, yesterday, tomorrow, or YYYY-MM-DD", word))
}

// parseMonthYear matches "<month> <year>" phrases like "june 2025".
func parseMonthYear(p string, loc *time.Location) (DateRange, bool) {
	words := strings.Fields(p)
	if len(words) != 2 {
		return DateRange{}, false
	}

	month, ok := monthsByName[words[0]]
	if !ok {
		return DateRange{}, false
	}

	year, err := strconv.Atoi(words[1])
	if err != nil || len(words[1]) != 4 || year < 1900 || year > 2100 {
		return DateRange{}, false
	}

	return monthRange(year, month, loc), true
}

// monthRange covers the first through last calendar day of a month.
// AddDate handles the December rollover into the next January.
func monthRange(year int, month time.Month, loc *time.Location) DateRange {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, 0).AddDate(0, 0, -1)
	return DateRange{Start: first, End: last}
}

func invalidPeriod(phrase string) error {
	return errs.InvalidPeriod(fmt.Sprintf(
		"unrecognized time period %q; supported forms: %s",
		phrase, strings.Join(acceptedForms, ", ")))
}
