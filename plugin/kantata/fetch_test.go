package kantata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	errs "github.com/timeclerk/timeclerk/internal/errors"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-token", WithRateLimit(rate.Inf, 1), WithPerPage(3))
}

// entryPage renders a time_entries list response with the given entry IDs.
func entryPage(ids ...int64) map[string]any {
	results := make([]map[string]any, 0, len(ids))
	entries := make(map[string]any, len(ids))
	for _, id := range ids {
		results = append(results, map[string]any{"key": "time_entries", "id": fmt.Sprint(id)})
		entries[fmt.Sprint(id)] = map[string]any{
			"id":              id,
			"user_id":         fmt.Sprint(100 + id), // upstream sends IDs as strings
			"workspace_id":    7,
			"date_performed":  "2025-06-16",
			"time_in_minutes": 60,
			"billable":        true,
			"notes":           fmt.Sprintf("entry %d", id),
		}
	}
	return map[string]any{"count": len(ids), "results": results, "time_entries": entries}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestFetchTimeEntries_PaginationTerminates(t *testing.T) {
	// Two full pages of three, then a partial page of one: three requests total.
	pages := []map[string]any{
		entryPage(1, 2, 3),
		entryPage(4, 5, 6),
		entryPage(7),
	}
	var requests int

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		page := r.URL.Query().Get("page")
		assert.Equal(t, fmt.Sprint(requests), page)
		assert.Equal(t, "2025-06-01", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2025-06-30", r.URL.Query().Get("end_date"))
		assert.Equal(t, "3", r.URL.Query().Get("per_page"))
		writeJSON(t, w, pages[requests-1])
	}))

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	result, err := client.FetchTimeEntries(context.Background(), start, end, EntryFilters{})
	require.NoError(t, err)

	assert.Equal(t, 3, requests)
	assert.Equal(t, 3, result.Pages)
	assert.False(t, result.Partial)
	require.Len(t, result.Entries, 7)

	// Upstream order is preserved and IDs are normalized to int64.
	assert.Equal(t, ID(1), result.Entries[0].ID)
	assert.Equal(t, ID(7), result.Entries[6].ID)
	assert.Equal(t, ID(101), result.Entries[0].UserID)
	assert.Equal(t, 60, result.Entries[0].Minutes)
}

func TestFetchTimeEntries_ServerSideFilters(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.URL.Query().Get("user_id"))
		assert.Equal(t, "7", r.URL.Query().Get("workspace_id"))
		assert.Empty(t, r.URL.Query().Get("story_id"))
		writeJSON(t, w, entryPage())
	}))

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	result, err := client.FetchTimeEntries(context.Background(), start, start,
		EntryFilters{UserID: 42, WorkspaceID: 7})
	require.NoError(t, err)
	assert.Empty(t, result.Entries)
}

func TestFetchTimeEntries_PartialOnMidPaginationError(t *testing.T) {
	var requests int
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 2 {
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
			return
		}
		writeJSON(t, w, entryPage(1, 2, 3))
	}))

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	result, err := client.FetchTimeEntries(context.Background(), start, start, EntryFilters{})
	require.NoError(t, err)

	assert.True(t, result.Partial)
	require.Error(t, result.Err)
	assert.True(t, errs.IsCode(result.Err, errs.ErrCodeUpstreamError))
	assert.Len(t, result.Entries, 3)
}

func TestFetchTimeEntries_FirstPageErrorIsFatal(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := client.FetchTimeEntries(context.Background(), start, start, EntryFilters{})
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrCodeUpstreamError))
}

func TestFetchTimeEntries_PageCapStopsRunawayPagination(t *testing.T) {
	// The upstream keeps returning full pages forever.
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, entryPage(1, 2, 3))
	}))

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := client.FetchTimeEntries(context.Background(), start, start, EntryFilters{})
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrCodeUpstreamError))
	assert.Contains(t, err.Error(), "pagination exceeded")
}

func TestFetchTimeEntries_DuplicateIDsLastWriteWins(t *testing.T) {
	var requests int
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		if requests == 1 {
			writeJSON(t, w, entryPage(1, 2, 3))
			return
		}
		// Entry 2 appears again with updated notes.
		page := entryPage(2)
		page["time_entries"].(map[string]any)["2"].(map[string]any)["notes"] = "updated"
		writeJSON(t, w, page)
	}))

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	result, err := client.FetchTimeEntries(context.Background(), start, start, EntryFilters{})
	require.NoError(t, err)

	require.Len(t, result.Entries, 3)
	assert.Equal(t, ID(2), result.Entries[1].ID)
	assert.Equal(t, "updated", result.Entries[1].Notes)
}

func TestFetchTimeEntries_MissingTokenRejected(t *testing.T) {
	client := NewClient("http://localhost:0", "")
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := client.FetchTimeEntries(context.Background(), start, start, EntryFilters{})
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrCodeUnauthorized))
}

func TestCreateTimeEntry(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/time_entries.json", r.URL.Path)

		var body struct {
			TimeEntry map[string]any `json:"time_entry"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(42), body.TimeEntry["user_id"])
		assert.Equal(t, "2025-06-15", body.TimeEntry["date_performed"])
		assert.Equal(t, float64(90), body.TimeEntry["time_in_minutes"])
		assert.NotContains(t, body.TimeEntry, "story_id")

		writeJSON(t, w, map[string]any{
			"results": []map[string]any{{"key": "time_entries", "id": "9001"}},
		})
	}))

	id, err := client.CreateTimeEntry(context.Background(), TimeEntry{
		UserID:        42,
		WorkspaceID:   7,
		DatePerformed: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		Minutes:       90,
		Billable:      true,
		Notes:         "sprint work",
	})
	require.NoError(t, err)
	assert.Equal(t, ID(9001), id)
}
