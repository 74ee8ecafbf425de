package timeentry

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/timeclerk/timeclerk/plugin/kantata"
	"github.com/timeclerk/timeclerk/server/report"
	"github.com/timeclerk/timeclerk/server/timeperiod"
)

// nameLookupConcurrency bounds parallel per-entry name lookups.
const nameLookupConcurrency = 8

// QueryRequest asks for all entries in a natural-language time period,
// optionally narrowed by user, project, and task names.
type QueryRequest struct {
	TimePeriod  string `json:"time_period"`
	UserName    string `json:"user_name,omitempty"`
	ProjectName string `json:"project_name,omitempty"`
	TaskName    string `json:"task_name,omitempty"`
}

// QueryResult is the aggregated report for one query.
type QueryResult struct {
	TimePeriod      string  `json:"time_period"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	FormattedOutput string  `json:"formatted_output"`
	TotalEntries    int     `json:"total_entries"`
	TotalHours      float64 `json:"total_hours"`
	BillableHours   float64 `json:"billable_hours"`
	// Partial is set when the upstream failed mid-pagination and the report
	// covers only the pages retrieved before the failure.
	Partial bool `json:"partial,omitempty"`
}

// Query runs the full pipeline: resolve period, resolve optional name
// filters, fetch, filter locally, resolve names, aggregate.
//
// A period that cannot be resolved fails the query. Filter lookups are
// best-effort: a user/project/task name that cannot be resolved drops that
// filter and the pipeline continues.
func (s *Service) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	rng, err := s.resolver.Resolve(req.TimePeriod)
	if err != nil {
		return nil, err
	}

	filters := s.resolveFilters(ctx, req)

	fetched, err := s.records.FetchTimeEntries(ctx, rng.Start, rng.End, filters)
	if err != nil {
		return nil, err
	}
	if fetched.Partial {
		s.logger.Warn("report built from partial fetch",
			slog.String("period", rng.String()),
			slog.Int("pages", fetched.Pages),
			slog.String("error", fetched.Err.Error()))
	}

	// Upstream filters are advisory; re-apply the exact range and user
	// filter locally before aggregating.
	kept := fetched.Entries[:0:0]
	for _, entry := range fetched.Entries {
		if entry.DatePerformed.IsZero() || !rng.Contains(entry.DatePerformed) {
			continue
		}
		if filters.UserID != 0 && entry.UserID != filters.UserID {
			continue
		}
		kept = append(kept, entry)
	}

	resolved := s.resolveNames(ctx, kept)
	rpt := report.Aggregate(resolved, rng)

	return &QueryResult{
		TimePeriod:      req.TimePeriod,
		StartDate:       rng.Start.Format(timeperiod.ISODate),
		EndDate:         rng.End.Format(timeperiod.ISODate),
		FormattedOutput: rpt.FormattedTable,
		TotalEntries:    rpt.TotalEntries,
		TotalHours:      rpt.TotalHours,
		BillableHours:   rpt.BillableHours,
		Partial:         fetched.Partial,
	}, nil
}

// resolveFilters turns the optional names into server-side ID filters.
// User and project lookups are independent and run concurrently; the task
// lookup needs the resolved project scope and runs after. Failures only
// drop the corresponding filter.
func (s *Service) resolveFilters(ctx context.Context, req QueryRequest) kantata.EntryFilters {
	var filters kantata.EntryFilters

	g, gctx := errgroup.WithContext(ctx)
	if req.UserName != "" {
		g.Go(func() error {
			match, err := s.names.FindUser(gctx, req.UserName)
			if err != nil {
				s.logger.Debug("user filter dropped", slog.String("name", req.UserName), slog.String("error", err.Error()))
				return nil
			}
			filters.UserID = match.ID
			return nil
		})
	}
	if req.ProjectName != "" {
		g.Go(func() error {
			match, err := s.names.FindWorkspace(gctx, req.ProjectName)
			if err != nil {
				s.logger.Debug("project filter dropped", slog.String("name", req.ProjectName), slog.String("error", err.Error()))
				return nil
			}
			filters.WorkspaceID = match.ID
			return nil
		})
	}
	_ = g.Wait()

	// Task lookup requires a project scope; without one the filter is
	// silently dropped.
	if req.TaskName != "" && filters.WorkspaceID != 0 {
		match, err := s.names.FindStory(ctx, filters.WorkspaceID, req.TaskName)
		if err != nil {
			s.logger.Debug("task filter dropped", slog.String("name", req.TaskName), slog.String("error", err.Error()))
		} else {
			filters.StoryID = match.ID
		}
	}

	return filters
}

// resolveNames replaces each entry's foreign keys with display names.
// Lookups are memoized per unique ID within the query and run concurrently
// with a bounded group; name resolution never fails, so neither does this.
func (s *Service) resolveNames(ctx context.Context, entries []kantata.TimeEntry) []report.Entry {
	type kind int
	const (
		kindUser kind = iota
		kindWorkspace
		kindStory
	)
	type key struct {
		kind kind
		id   kantata.ID
	}

	names := make(map[key]string)
	for _, entry := range entries {
		names[key{kindUser, entry.UserID}] = ""
		names[key{kindWorkspace, entry.WorkspaceID}] = ""
		if entry.StoryID != 0 {
			names[key{kindStory, entry.StoryID}] = ""
		}
	}

	// Snapshot the keys: the workers write into the map, so it must not be
	// iterated while they run.
	keys := make([]key, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nameLookupConcurrency)
	for _, k := range keys {
		g.Go(func() error {
			var name string
			switch k.kind {
			case kindUser:
				name = s.names.UserName(gctx, k.id)
			case kindWorkspace:
				name = s.names.WorkspaceName(gctx, k.id)
			case kindStory:
				name = s.names.StoryName(gctx, k.id)
			}
			mu.Lock()
			names[k] = name
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	resolved := make([]report.Entry, 0, len(entries))
	for _, entry := range entries {
		item := report.Entry{
			UserName:      names[key{kindUser, entry.UserID}],
			DatePerformed: entry.DatePerformed,
			ProjectName:   names[key{kindWorkspace, entry.WorkspaceID}],
			Minutes:       entry.Minutes,
			Billable:      entry.Billable,
			Notes:         entry.Notes,
		}
		if entry.StoryID != 0 {
			item.TaskName = names[key{kindStory, entry.StoryID}]
		}
		resolved = append(resolved, item)
	}
	return resolved
}
