package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/timeclerk/timeclerk/plugin/kantata"
	errs "github.com/timeclerk/timeclerk/internal/errors"
	"github.com/timeclerk/timeclerk/server/internal/observability"
	"github.com/timeclerk/timeclerk/server/service/timeentry"
)

func (s *APIV1Service) queryTimeEntries(c echo.Context) error {
	var req timeentry.QueryRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, errs.InvalidArgument("malformed request body"))
	}

	reqCtx := observability.NewRequestContext(s.logger, "query_time_entries")
	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)

	result, err := s.TimeEntry.Query(ctx, req)
	s.metrics.Record("query_time_entries", reqCtx.Duration(), err != nil)
	if err != nil {
		reqCtx.Error("query failed", err)
		return writeError(c, err)
	}
	reqCtx.Info("query completed",
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
		slog.Int(observability.LogFieldEntryCount, result.TotalEntries))
	return c.JSON(http.StatusOK, result)
}

func (s *APIV1Service) createTimeEntry(c echo.Context) error {
	var req timeentry.CreateRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, errs.InvalidArgument("malformed request body"))
	}

	reqCtx := observability.NewRequestContext(s.logger, "create_time_entry")
	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)

	result, err := s.TimeEntry.Create(ctx, req)
	s.metrics.Record("create_time_entry", reqCtx.Duration(), err != nil)
	if err != nil {
		reqCtx.Error("create failed", err)
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (s *APIV1Service) createTimeEntryByName(c echo.Context) error {
	var req timeentry.CreateByNameRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, errs.InvalidArgument("malformed request body"))
	}

	reqCtx := observability.NewRequestContext(s.logger, "create_time_entry_by_name")
	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)

	result, err := s.TimeEntry.CreateByName(ctx, req)
	s.metrics.Record("create_time_entry_by_name", reqCtx.Duration(), err != nil)
	if err != nil {
		reqCtx.Error("create by name failed", err)
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}

type resolveDateRequest struct {
	Date string `json:"date"`
}

type resolveDateResponse struct {
	Date string `json:"date"`
}

func (s *APIV1Service) resolveDate(c echo.Context) error {
	var req resolveDateRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, errs.InvalidArgument("malformed request body"))
	}
	iso, err := s.TimeEntry.ResolveDate(req.Date)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resolveDateResponse{Date: iso})
}

func (s *APIV1Service) lookupUser(c echo.Context) error {
	match, err := s.TimeEntry.LookupUser(c.Request().Context(), c.Param("name"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, match)
}

func (s *APIV1Service) lookupWorkspace(c echo.Context) error {
	match, err := s.TimeEntry.LookupWorkspace(c.Request().Context(), c.Param("name"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, match)
}

func (s *APIV1Service) lookupStory(c echo.Context) error {
	var workspaceID kantata.ID
	if err := workspaceID.UnmarshalText([]byte(c.Param("workspaceID"))); err != nil || workspaceID == 0 {
		return writeError(c, errs.InvalidArgument("workspaceID must be a numeric id"))
	}
	match, err := s.TimeEntry.LookupStory(c.Request().Context(), workspaceID, c.Param("name"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, match)
}
