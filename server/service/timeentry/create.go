package timeentry

import (
	"context"
	"fmt"
	"time"

	"github.com/timeclerk/timeclerk/plugin/kantata"
	errs "github.com/timeclerk/timeclerk/internal/errors"
	"github.com/timeclerk/timeclerk/server/timeperiod"
)

// CreateRequest logs a time entry by raw IDs.
type CreateRequest struct {
	UserID    kantata.ID `json:"user_id"`
	ProjectID kantata.ID `json:"project_id"`
	TaskID    kantata.ID `json:"task_id,omitempty"`
	Hours     float64    `json:"hours"`
	Billable  bool       `json:"billable"`
	Date      string     `json:"date,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

// CreateByNameRequest logs a time entry using display names instead of IDs.
// Unlike query filters, these lookups are mandatory: writing hours against
// the wrong person or project is worse than refusing.
type CreateByNameRequest struct {
	UserName    string  `json:"user_name"`
	ProjectName string  `json:"project_name"`
	TaskName    string  `json:"task_name,omitempty"`
	Hours       float64 `json:"hours"`
	Billable    bool    `json:"billable"`
	Date        string  `json:"date,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

// CreateResult reports the created entry with resolved display names.
type CreateResult struct {
	EntryID     kantata.ID `json:"entry_id"`
	UserName    string     `json:"user_name"`
	ProjectName string     `json:"project_name"`
	TaskName    string     `json:"task_name,omitempty"`
	Date        string     `json:"date"`
	Hours       float64    `json:"hours"`
	Billable    bool       `json:"billable"`
	Notes       string     `json:"notes,omitempty"`
}

// Create logs a time entry by IDs. The date accepts the same vocabulary as
// ResolveDate and defaults to today.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.UserID == 0 || req.ProjectID == 0 {
		return nil, errs.InvalidArgument("user_id and project_id are required")
	}
	date, minutes, err := s.validateEntry(req.Hours, req.Date)
	if err != nil {
		return nil, err
	}

	entryID, err := s.records.CreateTimeEntry(ctx, kantata.TimeEntry{
		UserID:        req.UserID,
		WorkspaceID:   req.ProjectID,
		StoryID:       req.TaskID,
		DatePerformed: date,
		Minutes:       minutes,
		Billable:      req.Billable,
		Notes:         req.Notes,
	})
	if err != nil {
		return nil, err
	}

	result := &CreateResult{
		EntryID:     entryID,
		UserName:    s.names.UserName(ctx, req.UserID),
		ProjectName: s.names.WorkspaceName(ctx, req.ProjectID),
		Date:        date.Format(timeperiod.ISODate),
		Hours:       float64(minutes) / 60,
		Billable:    req.Billable,
		Notes:       req.Notes,
	}
	if req.TaskID != 0 {
		result.TaskName = s.names.StoryName(ctx, req.TaskID)
	}
	return result, nil
}

// CreateByName resolves the names to IDs and logs the entry. Any lookup
// failure aborts the create.
func (s *Service) CreateByName(ctx context.Context, req CreateByNameRequest) (*CreateResult, error) {
	if req.UserName == "" || req.ProjectName == "" {
		return nil, errs.InvalidArgument("user_name and project_name are required")
	}
	date, minutes, err := s.validateEntry(req.Hours, req.Date)
	if err != nil {
		return nil, err
	}

	user, err := s.names.FindUser(ctx, req.UserName)
	if err != nil {
		return nil, err
	}
	workspace, err := s.names.FindWorkspace(ctx, req.ProjectName)
	if err != nil {
		return nil, err
	}

	entry := kantata.TimeEntry{
		UserID:        user.ID,
		WorkspaceID:   workspace.ID,
		DatePerformed: date,
		Minutes:       minutes,
		Billable:      req.Billable,
		Notes:         req.Notes,
	}
	result := &CreateResult{
		UserName:    user.Name,
		ProjectName: workspace.Name,
		Date:        date.Format(timeperiod.ISODate),
		Hours:       float64(minutes) / 60,
		Billable:    req.Billable,
		Notes:       req.Notes,
	}
	if req.TaskName != "" {
		story, err := s.names.FindStory(ctx, workspace.ID, req.TaskName)
		if err != nil {
			return nil, err
		}
		entry.StoryID = story.ID
		result.TaskName = story.Name
	}

	entryID, err := s.records.CreateTimeEntry(ctx, entry)
	if err != nil {
		return nil, err
	}
	result.EntryID = entryID
	return result, nil
}

func (s *Service) validateEntry(hours float64, dateWord string) (time.Time, int, error) {
	if hours <= 0 {
		return time.Time{}, 0, errs.InvalidArgument(fmt.Sprintf("hours must be positive, got %v", hours))
	}
	iso, err := s.ResolveDate(dateWord)
	if err != nil {
		return time.Time{}, 0, err
	}
	date, err := time.Parse(timeperiod.ISODate, iso)
	if err != nil {
		return time.Time{}, 0, errs.InvalidArgument(fmt.Sprintf("invalid date %q", dateWord))
	}
	return date, int(hours*60 + 0.5), nil
}
