package kantata

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	errs "github.com/timeclerk/timeclerk/internal/errors"
)

const (
	defaultPerPage = 100

	// maxPages bounds pagination in case the upstream keeps reporting full
	// pages. 50 pages at 100 entries each is far beyond any sane report.
	maxPages = 50
)

// EntryFilters narrows a time-entry fetch server-side. Zero values mean
// "no filter on that dimension".
type EntryFilters struct {
	UserID      ID
	WorkspaceID ID
	StoryID     ID
}

// FetchResult holds the accumulated entries of a paginated fetch.
// Partial is set when pagination stopped early on an upstream error; the
// entries gathered up to that point are still returned.
type FetchResult struct {
	Entries []TimeEntry
	Pages   int
	Partial bool
	Err     error
}

// FetchTimeEntries retrieves all time entries performed between start and end
// (inclusive calendar dates), following pagination until the upstream returns
// a short page. Duplicate entry IDs across pages are tolerated and resolved
// last-write-wins while keeping the first occurrence's position.
func (c *Client) FetchTimeEntries(ctx context.Context, start, end time.Time, filters EntryFilters) (*FetchResult, error) {
	query := url.Values{}
	query.Set("start_date", start.Format("2006-01-02"))
	query.Set("end_date", end.Format("2006-01-02"))
	query.Set("per_page", strconv.Itoa(c.perPage))
	if filters.UserID != 0 {
		query.Set("user_id", filters.UserID.String())
	}
	if filters.WorkspaceID != 0 {
		query.Set("workspace_id", filters.WorkspaceID.String())
	}
	if filters.StoryID != 0 {
		query.Set("story_id", filters.StoryID.String())
	}

	result := &FetchResult{}
	seen := make(map[ID]int)

	for page := 1; ; page++ {
		if page > maxPages {
			return nil, errs.Upstream(fmt.Sprintf(
				"time entry pagination exceeded %d pages without a short page", maxPages), nil)
		}

		query.Set("page", strconv.Itoa(page))
		var resp listResponse
		if err := c.get(ctx, "/time_entries.json", query, &resp); err != nil {
			if page == 1 {
				// Nothing retrieved yet, the whole fetch failed.
				return nil, err
			}
			result.Partial = true
			result.Err = err
			return result, nil
		}
		result.Pages = page

		for _, entry := range orderedEntries(resp) {
			if idx, ok := seen[entry.ID]; ok {
				result.Entries[idx] = entry
				continue
			}
			seen[entry.ID] = len(result.Entries)
			result.Entries = append(result.Entries, entry)
		}

		if len(resp.TimeEntries) < c.perPage {
			return result, nil
		}
	}
}

// orderedEntries flattens a page's ID-keyed entry map into upstream order.
// The "results" array carries the ordering; when it is absent the entries
// fall back to ascending ID order so output stays deterministic.
func orderedEntries(resp listResponse) []TimeEntry {
	entries := make([]TimeEntry, 0, len(resp.TimeEntries))

	if len(resp.Results) > 0 {
		for _, ref := range resp.Results {
			if wire, ok := resp.TimeEntries[ref.ID]; ok {
				entries = append(entries, wire.toEntry())
			}
		}
		if len(entries) == len(resp.TimeEntries) {
			return entries
		}
		entries = entries[:0]
	}

	ids := make([]ID, 0, len(resp.TimeEntries))
	for id := range resp.TimeEntries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		entries = append(entries, resp.TimeEntries[id].toEntry())
	}
	return entries
}

// CreateTimeEntry creates a time entry upstream and returns its new ID.
func (c *Client) CreateTimeEntry(ctx context.Context, entry TimeEntry) (ID, error) {
	body := map[string]any{
		"time_entry": map[string]any{
			"user_id":         entry.UserID,
			"workspace_id":    entry.WorkspaceID,
			"date_performed":  entry.DatePerformed.Format("2006-01-02"),
			"time_in_minutes": entry.Minutes,
			"billable":        entry.Billable,
			"notes":           entry.Notes,
		},
	}
	if entry.StoryID != 0 {
		body["time_entry"].(map[string]any)["story_id"] = entry.StoryID
	}

	var resp listResponse
	if err := c.post(ctx, "/time_entries.json", body, &resp); err != nil {
		return 0, err
	}

	if len(resp.Results) > 0 {
		return resp.Results[0].ID, nil
	}
	for id := range resp.TimeEntries {
		return id, nil
	}
	return 0, errs.Upstream("time entry created but no ID returned", nil)
}
