package report

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeclerk/timeclerk/server/timeperiod"
)

func day(value string) time.Time {
	d, err := time.Parse(timeperiod.ISODate, value)
	if err != nil {
		panic(err)
	}
	return d
}

func weekRange(start, end string) timeperiod.DateRange {
	return timeperiod.DateRange{Start: day(start), End: day(end)}
}

func TestAggregate_SingleWeekScenario(t *testing.T) {
	// Three entries in the same week (Mon, Wed, Fri): two billable at 2.0h
	// and 3.5h, one non-billable at 1.0h.
	entries := []Entry{
		{UserName: "Ada Lovelace", DatePerformed: day("2025-06-18"), ProjectName: "Big Bend Medical", Minutes: 210, Billable: true, Notes: "api work"},
		{UserName: "Ada Lovelace", DatePerformed: day("2025-06-16"), ProjectName: "Big Bend Medical", TaskName: "Design Review", Minutes: 120, Billable: true, Notes: "kickoff"},
		{UserName: "Ada Lovelace", DatePerformed: day("2025-06-20"), ProjectName: "Internal", Minutes: 60, Billable: false, Notes: ""},
	}

	rpt := Aggregate(entries, weekRange("2025-06-16", "2025-06-22"))

	assert.Equal(t, 3, rpt.TotalEntries)
	assert.InDelta(t, 6.5, rpt.TotalHours, 0.001)
	assert.InDelta(t, 5.5, rpt.BillableHours, 0.001)

	table := rpt.FormattedTable
	assert.Contains(t, table, "=== Week of June 16, 2025 ===")
	assert.Equal(t, 1, strings.Count(table, "=== Week of"))
	assert.Contains(t, table, "Total Entries: 3")
	assert.Contains(t, table, "Total Hours: 6.5")
	assert.Contains(t, table, "Billable Hours: 5.5")

	// Rows appear in date order regardless of input order.
	monday := strings.Index(table, "2025-06-16")
	wednesday := strings.Index(table, "2025-06-18")
	friday := strings.Index(table, "2025-06-20")
	require.Positive(t, monday)
	assert.Less(t, monday, wednesday)
	assert.Less(t, wednesday, friday)
}

func TestAggregate_EmptyInput(t *testing.T) {
	rpt := Aggregate(nil, weekRange("2025-06-01", "2025-06-30"))

	assert.Equal(t, "No time entries found for 2025-06-01 to 2025-06-30", rpt.FormattedTable)
	assert.Zero(t, rpt.TotalEntries)
	assert.Zero(t, rpt.TotalHours)
	assert.NotContains(t, rpt.FormattedTable, "SUMMARY")
}

func TestAggregate_OrderIndependent(t *testing.T) {
	entries := []Entry{
		{UserName: "Ada", DatePerformed: day("2025-06-02"), ProjectName: "Alpha", Minutes: 90, Billable: true, Notes: "a"},
		{UserName: "Grace", DatePerformed: day("2025-06-10"), ProjectName: "Beta", Minutes: 45, Billable: false, Notes: "b"},
		{UserName: "Ada", DatePerformed: day("2025-06-17"), ProjectName: "Alpha", Minutes: 30, Billable: true, Notes: "c"},
		{UserName: "Grace", DatePerformed: day("2025-06-04"), ProjectName: "Gamma", Minutes: 480, Billable: true, Notes: "d"},
	}
	rng := weekRange("2025-06-01", "2025-06-30")

	want := Aggregate(entries, rng)

	shuffler := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := make([]Entry, len(entries))
		copy(shuffled, entries)
		shuffler.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got := Aggregate(shuffled, rng)
		assert.Equal(t, want.FormattedTable, got.FormattedTable)
		assert.Equal(t, want.TotalHours, got.TotalHours)
	}
}

func TestAggregate_WeeksSortedAscending(t *testing.T) {
	entries := []Entry{
		{UserName: "Ada", DatePerformed: day("2025-06-17"), ProjectName: "Alpha", Minutes: 60},
		{UserName: "Ada", DatePerformed: day("2025-06-03"), ProjectName: "Alpha", Minutes: 60},
		{UserName: "Ada", DatePerformed: day("2025-06-10"), ProjectName: "Alpha", Minutes: 60},
	}

	rpt := Aggregate(entries, weekRange("2025-06-01", "2025-06-30"))

	first := strings.Index(rpt.FormattedTable, "=== Week of June 02, 2025 ===")
	second := strings.Index(rpt.FormattedTable, "=== Week of June 09, 2025 ===")
	third := strings.Index(rpt.FormattedTable, "=== Week of June 16, 2025 ===")
	require.Positive(t, second)
	assert.Less(t, first, second)
	assert.Less(t, second, third)
}

func TestAggregate_ColumnTruncationAndPadding(t *testing.T) {
	entries := []Entry{{
		UserName:      "An Extremely Long User Name",
		DatePerformed: day("2025-06-16"),
		ProjectName:   "Project With A Very Long Title",
		TaskName:      "short",
		Minutes:       30,
		Billable:      true,
		Notes:         "notes that run far beyond the column",
	}}

	rpt := Aggregate(entries, weekRange("2025-06-16", "2025-06-22"))

	assert.Contains(t, rpt.FormattedTable, "│ An Extremel │")
	assert.Contains(t, rpt.FormattedTable, "│ Project With A  │")
	assert.Contains(t, rpt.FormattedTable, "│ short           │")
	assert.Contains(t, rpt.FormattedTable, "│ notes that run far │")
	assert.Contains(t, rpt.FormattedTable, "│   0.5 │")
	assert.Contains(t, rpt.FormattedTable, "│ Yes      │")

	// Every row between the borders has the same rendered width.
	var widths []int
	for _, line := range strings.Split(rpt.FormattedTable, "\n") {
		if strings.HasPrefix(line, "│") || strings.HasPrefix(line, "┌") || strings.HasPrefix(line, "├") || strings.HasPrefix(line, "└") {
			widths = append(widths, len([]rune(line)))
		}
	}
	require.NotEmpty(t, widths)
	for _, w := range widths {
		assert.Equal(t, widths[0], w)
	}
}

func TestAggregate_SkipsMalformedEntries(t *testing.T) {
	entries := []Entry{
		{UserName: "Ada", DatePerformed: day("2025-06-16"), ProjectName: "Alpha", Minutes: 60, Billable: true},
		{UserName: "broken", ProjectName: "Alpha", Minutes: 600}, // no date
	}

	rpt := Aggregate(entries, weekRange("2025-06-16", "2025-06-22"))

	assert.Equal(t, 1, rpt.TotalEntries)
	assert.InDelta(t, 1.0, rpt.TotalHours, 0.001)
	assert.NotContains(t, rpt.FormattedTable, "broken")
}

func TestAggregate_SummaryMatchesDisplayedRows(t *testing.T) {
	// Durations that do not divide evenly into tenths of an hour: the
	// summary must equal the sum of the rounded per-row values.
	entries := []Entry{
		{UserName: "Ada", DatePerformed: day("2025-06-16"), ProjectName: "Alpha", Minutes: 50, Billable: true},
		{UserName: "Ada", DatePerformed: day("2025-06-17"), ProjectName: "Alpha", Minutes: 50, Billable: true},
		{UserName: "Ada", DatePerformed: day("2025-06-18"), ProjectName: "Alpha", Minutes: 50, Billable: false},
	}

	rpt := Aggregate(entries, weekRange("2025-06-16", "2025-06-22"))

	// 50 minutes renders as 0.8h; three rows sum to 2.4, not 2.5.
	assert.Equal(t, 3, strings.Count(rpt.FormattedTable, "  0.8 │"))
	assert.Contains(t, rpt.FormattedTable, "Total Hours: 2.4")
	assert.Contains(t, rpt.FormattedTable, "Billable Hours: 1.6")
}
