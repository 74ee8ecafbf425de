// Package v1 exposes the time-entry operations as a JSON tool server.
package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/timeclerk/timeclerk/internal/profile"
	errs "github.com/timeclerk/timeclerk/internal/errors"
	"github.com/timeclerk/timeclerk/server/internal/observability"
	"github.com/timeclerk/timeclerk/server/middleware"
	"github.com/timeclerk/timeclerk/server/service/timeentry"
)

type APIV1Service struct {
	Profile   *profile.Profile
	TimeEntry *timeentry.Service

	logger      *slog.Logger
	rateLimiter *middleware.RateLimiter
	metrics     *observability.Metrics
}

func NewAPIV1Service(profile *profile.Profile, svc *timeentry.Service, logger *slog.Logger) *APIV1Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIV1Service{
		Profile:     profile,
		TimeEntry:   svc,
		logger:      logger,
		rateLimiter: middleware.NewRateLimiter(),
		metrics:     observability.NewMetrics(),
	}
}

// Register wires the routes into the given echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	group := e.Group("/api/v1", s.rateLimiter.Echo())

	group.POST("/query_time_entries", s.queryTimeEntries)
	group.POST("/time_entry", s.createTimeEntry)
	group.POST("/time_entry_by_name", s.createTimeEntryByName)
	group.POST("/resolve_date", s.resolveDate)

	group.GET("/lookup/user/:name", s.lookupUser)
	group.GET("/lookup/workspace/:name", s.lookupWorkspace)
	group.GET("/lookup/story/:workspaceID/:name", s.lookupStory)

	group.GET("/metrics", s.getMetrics)
	e.GET("/healthz", s.healthz)
}

func (s *APIV1Service) getMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.metrics.Snapshot())
}

func (s *APIV1Service) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.Profile.Version,
	})
}

// errorResponse is the JSON body for failed requests.
type errorResponse struct {
	Code    errs.ErrorCode `json:"code"`
	Message string         `json:"message"`
}

// writeError maps domain error codes onto HTTP statuses.
func writeError(c echo.Context, err error) error {
	code := errs.CodeOf(err, errs.ErrCodeUpstreamError)
	status := http.StatusBadGateway
	switch code {
	case errs.ErrCodeInvalidPeriod, errs.ErrCodeInvalidArgument:
		status = http.StatusBadRequest
	case errs.ErrCodeNotFound:
		status = http.StatusNotFound
	case errs.ErrCodeUnauthorized:
		status = http.StatusUnauthorized
	case errs.ErrCodeTimeout:
		status = http.StatusGatewayTimeout
	}
	return c.JSON(status, errorResponse{Code: code, Message: err.Error()})
}
