package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/menta2k/trackmate/internal/api/middleware"
	"github.com/menta2k/trackmate/internal/api/response"
	"github.com/menta2k/trackmate/internal/logging"
	"github.com/menta2k/trackmate/internal/service"
)

// StatsController serves the read-only activity views
type StatsController struct {
	service *service.StatsService
	logger  *slog.Logger
}

// NewStatsController creates a StatsController
func NewStatsController(s *service.StatsService, logger *slog.Logger) *StatsController {
	return &StatsController{service: s, logger: logging.Module(logger, "api")}
}

// Stats handles GET /api/activity-stats?period=&date=
func (ctrl *StatsController) Stats(c *gin.Context) {
	userID, ok := ctrl.user(c)
	if !ok {
		return
	}
	stats, err := ctrl.service.Stats(c.Request.Context(), userID, c.DefaultQuery("period", "today"), c.Query("date"))
	if err != nil {
		ctrl.fail(c, "activity stats", err)
		return
	}
	response.Success(c, stats)
}

// Latest handles GET /api/latest-activity
func (ctrl *StatsController) Latest(c *gin.Context) {
	userID, ok := ctrl.user(c)
	if !ok {
		return
	}
	latest, err := ctrl.service.Latest(c.Request.Context(), userID)
	if err != nil {
		ctrl.fail(c, "latest activity", err)
		return
	}
	if latest == nil {
		response.SuccessWithMessage(c, nil, "No activities detected yet")
		return
	}
	response.Success(c, latest)
}

// Calendar handles GET /api/calendar-activities?month=YYYY-MM
func (ctrl *StatsController) Calendar(c *gin.Context) {
	userID, ok := ctrl.user(c)
	if !ok {
		return
	}
	cal, err := ctrl.service.Calendar(c.Request.Context(), userID, c.Query("month"))
	if err != nil {
		ctrl.fail(c, "calendar", err)
		return
	}
	response.Success(c, cal)
}

// Report handles GET /api/reports?period=&start_date=&end_date=&compare=
func (ctrl *StatsController) Report(c *gin.Context) {
	userID, ok := ctrl.user(c)
	if !ok {
		return
	}
	q := service.ReportQuery{
		Period:    c.DefaultQuery("period", "daily"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
		Compare:   c.Query("compare") == "true",
	}
	report, err := ctrl.service.Report(c.Request.Context(), userID, q)
	if err != nil {
		ctrl.fail(c, "report", err)
		return
	}
	response.Success(c, report)
}

func (ctrl *StatsController) user(c *gin.Context) (uint64, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, middleware.UnauthenticatedMessage)
	}
	return userID, ok
}

func (ctrl *StatsController) fail(c *gin.Context, what string, err error) {
	if errors.Is(err, service.ErrInvalidDate) {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	ctrl.logger.Error("query failed", "view", what, "error", err)
	response.Error(c, http.StatusInternalServerError, "Database error")
}
