package timeperiod

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/timeclerk/timeclerk/internal/errors"
)

func fixedResolver(year int, month time.Month, day int) *Resolver {
	now := time.Date(year, month, day, 10, 30, 0, 0, time.UTC)
	return NewResolver().WithNow(func() time.Time { return now })
}

func TestResolve_Keywords(t *testing.T) {
	// 2025-06-18 is a Wednesday.
	r := fixedResolver(2025, time.June, 18)

	tests := []struct {
		name      string
		phrase    string
		wantStart string
		wantEnd   string
	}{
		{"today", "today", "2025-06-18", "2025-06-18"},
		{"yesterday", "yesterday", "2025-06-17", "2025-06-17"},
		{"this week", "this week", "2025-06-16", "2025-06-22"},
		{"last week", "last week", "2025-06-09", "2025-06-15"},
		{"this month", "this month", "2025-06-01", "2025-06-30"},
		{"last month", "last month", "2025-05-01", "2025-05-31"},
		{"this year", "this year", "2025-01-01", "2025-12-31"},
		{"case and whitespace", "  Last Week ", "2025-06-09", "2025-06-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.phrase)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, got.Start.Format(ISODate))
			assert.Equal(t, tt.wantEnd, got.End.Format(ISODate))
			assert.False(t, got.End.Before(got.Start))
		})
	}
}

func TestResolve_MonthRollovers(t *testing.T) {
	// January: last month crosses the year boundary backwards.
	r := fixedResolver(2025, time.January, 15)
	got, err := r.Resolve("last month")
	require.NoError(t, err)
	assert.Equal(t, "2024-12-01", got.Start.Format(ISODate))
	assert.Equal(t, "2024-12-31", got.End.Format(ISODate))

	// December: this month must not spill into next January.
	r = fixedResolver(2024, time.December, 3)
	got, err = r.Resolve("this month")
	require.NoError(t, err)
	assert.Equal(t, "2024-12-01", got.Start.Format(ISODate))
	assert.Equal(t, "2024-12-31", got.End.Format(ISODate))
}

func TestResolve_MonthYear(t *testing.T) {
	r := fixedResolver(2025, time.June, 18)

	tests := []struct {
		phrase    string
		wantStart string
		wantEnd   string
	}{
		{"june 2025", "2025-06-01", "2025-06-30"},
		{"June 2025", "2025-06-01", "2025-06-30"},
		{"jun 2025", "2025-06-01", "2025-06-30"},
		{"sept 2023", "2023-09-01", "2023-09-30"},
		{"december 2024", "2024-12-01", "2024-12-31"},
		{"february 2024", "2024-02-01", "2024-02-29"},
		{"february 2025", "2025-02-01", "2025-02-28"},
	}

	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			got, err := r.Resolve(tt.phrase)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, got.Start.Format(ISODate))
			assert.Equal(t, tt.wantEnd, got.End.Format(ISODate))
		})
	}
}

func TestResolve_ExplicitDates(t *testing.T) {
	r := fixedResolver(2025, time.June, 18)

	got, err := r.Resolve("2025-06-01 to 2025-06-30")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", got.Start.Format(ISODate))
	assert.Equal(t, "2025-06-30", got.End.Format(ISODate))

	got, err = r.Resolve("2025-06-05")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-05", got.Start.Format(ISODate))
	assert.Equal(t, "2025-06-05", got.End.Format(ISODate))

	// A range that ends before it starts never produces a DateRange.
	_, err = r.Resolve("2025-06-30 to 2025-06-01")
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrCodeInvalidPeriod))
	assert.Contains(t, err.Error(), "ends before it starts")
}

func TestResolve_InvalidPeriods(t *testing.T) {
	r := fixedResolver(2025, time.June, 18)

	invalid := []string{
		"not a date",
		"",
		"june",
		"june 25",
		"june 1825",
		"tomorrow 2025",
		"2025-06-50",
		"2025-06-01 to nonsense",
		"06/01/2025 to 06/30/2025",
	}

	for _, phrase := range invalid {
		t.Run("invalid "+phrase, func(t *testing.T) {
			_, err := r.Resolve(phrase)
			require.Error(t, err)
			assert.True(t, errs.IsCode(err, errs.ErrCodeInvalidPeriod))
		})
	}

	// The error reports the offending phrase and the accepted vocabulary.
	_, err := r.Resolve("not a date")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a date")
	assert.Contains(t, err.Error(), "this week")
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestResolve_Deterministic(t *testing.T) {
	r := fixedResolver(2025, time.June, 18)

	first, err := r.Resolve("last week")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := r.Resolve("last week")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolveDate(t *testing.T) {
	r := fixedResolver(2025, time.June, 15)

	tests := []struct {
		name  string
		word  string
		want  string
		valid bool
	}{
		{"today", "today", "2025-06-15", true},
		{"now", "now", "2025-06-15", true},
		{"empty defaults to today", "", "2025-06-15", true},
		{"yesterday", "yesterday", "2025-06-14", true},
		{"tomorrow", "tomorrow", "2025-06-16", true},
		{"iso date", "2025-01-31", "2025-01-31", true},
		{"garbage", "next tuesday-ish", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveDate(tt.word)
			if !tt.valid {
				require.Error(t, err)
				assert.True(t, errs.IsCode(err, errs.ErrCodeInvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format(ISODate))
		})
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		day  string
		want string
	}{
		{"2025-06-16", "2025-06-16"}, // Monday
		{"2025-06-18", "2025-06-16"}, // Wednesday
		{"2025-06-22", "2025-06-16"}, // Sunday stays in the same week
		{"2025-06-23", "2025-06-23"}, // next Monday
	}

	for _, tt := range tests {
		d, err := time.Parse(ISODate, tt.day)
		require.NoError(t, err)
		assert.Equal(t, tt.want, WeekStart(d).Format(ISODate), "week start of %s", tt.day)
	}
}

func TestDateRange_Contains(t *testing.T) {
	r := fixedResolver(2025, time.June, 18)
	rng, err := r.Resolve("june 2025")
	require.NoError(t, err)

	assert.True(t, rng.Contains(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, rng.Contains(time.Date(2025, time.June, 30, 23, 0, 0, 0, time.UTC)))
	assert.False(t, rng.Contains(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, rng.Contains(time.Date(2025, time.May, 31, 0, 0, 0, 0, time.UTC)))
}
