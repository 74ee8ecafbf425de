// Package report groups resolved time entries into Monday-anchored week
// buckets and renders the fixed-width summary table.
package report

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/timeclerk/timeclerk/server/timeperiod"
)

// Entry is a time entry with its foreign keys already resolved to names.
type Entry struct {
	UserName      string
	DatePerformed time.Time
	ProjectName   string
	TaskName      string // empty when the entry has no task
	Minutes       int
	Billable      bool
	Notes         string
}

// Report is the aggregated result over one query's entries.
type Report struct {
	FormattedTable string  `json:"formatted_table"`
	TotalEntries   int     `json:"total_entries"`
	TotalHours     float64 `json:"total_hours"`
	BillableHours  float64 `json:"billable_hours"`
}

// Column widths of the rendered table.
const (
	colUser     = 11
	colDate     = 10
	colProject  = 15
	colTask     = 15
	colHours    = 5
	colBillable = 8
	colNotes    = 18
)

// Aggregate buckets entries by week, renders one table per week in ascending
// week order, and accumulates grand totals. Input order does not affect the
// output beyond breaking ties between entries on the same date. Malformed
// entries (no performed date) are skipped, never failing the whole report.
func Aggregate(entries []Entry, rng timeperiod.DateRange) *Report {
	weeks := make(map[string][]Entry)
	for _, entry := range entries {
		if entry.DatePerformed.IsZero() {
			slog.Warn("skipping entry without performed date",
				slog.String("user", entry.UserName))
			continue
		}
		key := timeperiod.WeekStart(entry.DatePerformed).Format(timeperiod.ISODate)
		weeks[key] = append(weeks[key], entry)
	}

	if len(weeks) == 0 {
		return &Report{
			FormattedTable: fmt.Sprintf("No time entries found for %s", rng),
		}
	}

	weekKeys := make([]string, 0, len(weeks))
	for key := range weeks {
		weekKeys = append(weekKeys, key)
	}
	sort.Strings(weekKeys)

	rpt := &Report{}
	var out strings.Builder

	for _, key := range weekKeys {
		bucket := weeks[key]
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].DatePerformed.Before(bucket[j].DatePerformed)
		})

		monday, _ := time.Parse(timeperiod.ISODate, key)
		fmt.Fprintf(&out, "=== Week of %s ===\n", monday.Format("January 02, 2006"))
		writeTable(&out, bucket)
		out.WriteString("\n")

		for _, entry := range bucket {
			hours := roundHours(entry.Minutes)
			rpt.TotalEntries++
			rpt.TotalHours += hours
			if entry.Billable {
				rpt.BillableHours += hours
			}
		}
	}

	out.WriteString("SUMMARY\n")
	fmt.Fprintf(&out, "Total Entries: %d\n", rpt.TotalEntries)
	fmt.Fprintf(&out, "Total Hours: %.1f\n", rpt.TotalHours)
	fmt.Fprintf(&out, "Billable Hours: %.1f", rpt.BillableHours)

	rpt.FormattedTable = out.String()
	return rpt
}

func writeTable(out *strings.Builder, bucket []Entry) {
	border := func(left, mid, right string) string {
		segments := []string{
			strings.Repeat("─", colUser+2),
			strings.Repeat("─", colDate+2),
			strings.Repeat("─", colProject+2),
			strings.Repeat("─", colTask+2),
			strings.Repeat("─", colHours+2),
			strings.Repeat("─", colBillable+2),
			strings.Repeat("─", colNotes+2),
		}
		return left + strings.Join(segments, mid) + right
	}

	out.WriteString(border("┌", "┬", "┐") + "\n")
	fmt.Fprintf(out, "│ %s │ %s │ %s │ %s │ %s │ %s │ %s │\n",
		pad("User", colUser), pad("Date", colDate), pad("Project", colProject),
		pad("Task", colTask), pad("Hours", colHours), pad("Billable", colBillable),
		pad("Notes", colNotes))
	out.WriteString(border("├", "┼", "┤") + "\n")

	for _, entry := range bucket {
		billable := "No"
		if entry.Billable {
			billable = "Yes"
		}
		fmt.Fprintf(out, "│ %s │ %s │ %s │ %s │ %5.1f │ %s │ %s │\n",
			pad(entry.UserName, colUser),
			pad(entry.DatePerformed.Format(timeperiod.ISODate), colDate),
			pad(entry.ProjectName, colProject),
			pad(entry.TaskName, colTask),
			roundHours(entry.Minutes),
			pad(billable, colBillable),
			pad(entry.Notes, colNotes))
	}

	out.WriteString(border("└", "┴", "┘") + "\n")
}

// pad left-justifies s into exactly width cells, truncating when longer.
func pad(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-len(runes))
}

// roundHours converts minutes to hours rounded to one decimal, matching the
// rendered value so the summary equals the sum of the displayed rows.
func roundHours(minutes int) float64 {
	return math.Round(float64(minutes)/60.0*10) / 10
}
