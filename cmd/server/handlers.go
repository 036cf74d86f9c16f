package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jonasweber/staffwerk/internal/config"
	"github.com/jonasweber/staffwerk/pkg/core/lifecycle"
	"github.com/jonasweber/staffwerk/pkg/core/recruiting"
	"github.com/jonasweber/staffwerk/pkg/core/services"
	"github.com/jonasweber/staffwerk/pkg/db"
	"github.com/jonasweber/staffwerk/pkg/postgres"
)

// Server groups the HTTP surface's dependencies. The endpoints are thin:
// each one binds the request, calls the matching service or controller
// operation and maps sentinel errors to status codes.
type Server struct {
	store      *postgres.DB
	controller *lifecycle.Controller
	cfg        *config.Config
	logger     *zap.Logger
}

func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", s.handleHealth)
	e.POST("/replies", s.handleIngestReply)
	e.POST("/sweep", s.handleSweep)
	e.GET("/events/:id/recruitment", s.handleRecruitmentStatus)
	e.POST("/events/:id/recruit", s.handleTriggerRecruitment)
	e.POST("/events/:id/signin", s.handleSignIn)
	e.POST("/events/:id/signout", s.handleSignOut)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// handleIngestReply records a free-text reply to an invitation. Ambiguous
// replies are acknowledged but change nothing; the operator follows up
// manually.
func (s *Server) handleIngestReply(c echo.Context) error {
	var body struct {
		EmployeeID string `json:"employee_id"`
		EventID    string `json:"event_id"`
		Body       string `json:"body"`
		Method     string `json:"method"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.EmployeeID == "" || body.EventID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "employee_id and event_id are required"})
	}
	if body.Method == "" {
		body.Method = "api"
	}

	result, err := services.IngestReply(c.Request().Context(), s.store, s.logger, services.Reply{
		EmployeeID: body.EmployeeID,
		EventID:    body.EventID,
		Body:       body.Body,
		Method:     body.Method,
	})
	if err != nil {
		return s.mapError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"intent":  string(result.Intent),
		"updated": result.Updated,
	})
}

// handleSweep runs one lifecycle sweep on demand. A sweep already running
// (usually the background loop) yields 409; the caller just retries later.
func (s *Server) handleSweep(c echo.Context) error {
	if err := s.controller.Sweep(c.Request().Context()); err != nil {
		if errors.Is(err, lifecycle.ErrSweepInProgress) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "sweep already in progress"})
		}
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "swept"})
}

func (s *Server) handleRecruitmentStatus(c echo.Context) error {
	ctx := c.Request().Context()
	eventID := c.Param("id")

	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return s.mapError(c, err)
	}
	employees, err := s.store.ListEmployees(ctx, db.EmployeeFilter{})
	if err != nil {
		return s.mapError(c, err)
	}
	statuses, err := s.store.GetEmployeeEventStatuses(ctx, event.ID)
	if err != nil {
		return s.mapError(c, err)
	}
	areas, err := s.store.GetWorkAreas(ctx, event.ID)
	if err != nil {
		return s.mapError(c, err)
	}

	eval := recruiting.Evaluate(*event, employees, statuses, areas, lifecycleConfig(s.cfg).Plateau)
	return c.JSON(http.StatusOK, evaluationResponse(string(event.Status), eval))
}

func (s *Server) handleTriggerRecruitment(c echo.Context) error {
	report, err := s.controller.TriggerAdditionalRecruitment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.mapError(c, err)
	}

	failures := make([]echo.Map, 0, len(report.Failures))
	for _, f := range report.Failures {
		failures = append(failures, echo.Map{
			"employee_id": f.EmployeeID,
			"error":       f.Err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"evaluation": evaluationResponse("", report.Evaluation),
		"invited":    report.Invited,
		"failures":   failures,
	})
}

func (s *Server) handleSignIn(c echo.Context) error {
	var body struct {
		EmployeeID string `json:"employee_id"`
	}
	if err := c.Bind(&body); err != nil || body.EmployeeID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "employee_id is required"})
	}

	record, err := services.SignIn(c.Request().Context(), s.store, s.logger, body.EmployeeID, c.Param("id"), time.Now())
	if err != nil {
		return s.mapError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"record_id":    record.ID,
		"sign_in_time": record.SignInTime,
	})
}

func (s *Server) handleSignOut(c echo.Context) error {
	var body struct {
		EmployeeID string `json:"employee_id"`
	}
	if err := c.Bind(&body); err != nil || body.EmployeeID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "employee_id is required"})
	}

	record, err := services.SignOut(c.Request().Context(), s.store, s.logger, body.EmployeeID, c.Param("id"), time.Now())
	if err != nil {
		return s.mapError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"record_id":     record.ID,
		"total_hours":   record.TotalHours,
		"total_payment": record.TotalPayment,
	})
}

func evaluationResponse(status string, eval recruiting.Evaluation) echo.Map {
	resp := echo.Map{
		"event_id":                  eval.EventID,
		"employees_needed":          eval.EmployeesNeeded,
		"employees_available":       eval.EmployeesAvailable,
		"employees_asked":           eval.EmployeesAsked,
		"remaining_pool":            eval.RemainingPool,
		"needs_more_recruitment":    eval.NeedsMoreRecruitment,
		"suggested_additional_asks": eval.SuggestedAdditionalAsks,
	}
	if status != "" {
		resp["event_status"] = status
	}
	return resp
}

func (s *Server) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, db.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, db.ErrInvalidTransition):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	}
	s.logger.Error("Request failed",
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
