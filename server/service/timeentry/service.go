// Package timeentry composes the period resolver, the Kantata adapter, and
// the report aggregator into the time-entry query and create operations.
package timeentry

import (
	"context"
	"log/slog"
	"time"

	"github.com/timeclerk/timeclerk/plugin/kantata"
	"github.com/timeclerk/timeclerk/server/timeperiod"
)

// RecordSource is the paginated time-entry source.
type RecordSource interface {
	FetchTimeEntries(ctx context.Context, start, end time.Time, filters kantata.EntryFilters) (*kantata.FetchResult, error)
	CreateTimeEntry(ctx context.Context, entry kantata.TimeEntry) (kantata.ID, error)
}

// NameSource resolves IDs to display names and searches records by name.
type NameSource interface {
	UserName(ctx context.Context, id kantata.ID) string
	WorkspaceName(ctx context.Context, id kantata.ID) string
	StoryName(ctx context.Context, id kantata.ID) string
	FindUser(ctx context.Context, name string) (*kantata.UserMatch, error)
	FindWorkspace(ctx context.Context, name string) (*kantata.WorkspaceMatch, error)
	FindStory(ctx context.Context, workspaceID kantata.ID, name string) (*kantata.StoryMatch, error)
}

// Service implements the time-entry operations. The kantata client satisfies
// both source interfaces; tests substitute fakes.
type Service struct {
	records  RecordSource
	names    NameSource
	resolver *timeperiod.Resolver
	logger   *slog.Logger
}

// NewService creates a time-entry service backed by the given sources.
func NewService(records RecordSource, names NameSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		records:  records,
		names:    names,
		resolver: timeperiod.NewResolver(),
		logger:   logger,
	}
}

// WithResolver overrides the period resolver, used by tests to fix "today".
func (s *Service) WithResolver(r *timeperiod.Resolver) *Service {
	s.resolver = r
	return s
}

// ResolveDate resolves a single date word (today/yesterday/tomorrow/ISO).
func (s *Service) ResolveDate(word string) (string, error) {
	d, err := s.resolver.ResolveDate(word)
	if err != nil {
		return "", err
	}
	return d.Format(timeperiod.ISODate), nil
}

// LookupUser finds a user by name.
func (s *Service) LookupUser(ctx context.Context, name string) (*kantata.UserMatch, error) {
	return s.names.FindUser(ctx, name)
}

// LookupWorkspace finds a workspace by name.
func (s *Service) LookupWorkspace(ctx context.Context, name string) (*kantata.WorkspaceMatch, error) {
	return s.names.FindWorkspace(ctx, name)
}

// LookupStory finds a story by name within a workspace.
func (s *Service) LookupStory(ctx context.Context, workspaceID kantata.ID, name string) (*kantata.StoryMatch, error) {
	return s.names.FindStory(ctx, workspaceID, name)
}
