package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/menta2k/trackmate/internal/api/middleware"
	"github.com/menta2k/trackmate/internal/api/response"
	"github.com/menta2k/trackmate/internal/logging"
	"github.com/menta2k/trackmate/internal/service"
	"github.com/menta2k/trackmate/pkg/client"
	"github.com/menta2k/trackmate/pkg/detection"
	"github.com/menta2k/trackmate/pkg/processing"
	"github.com/menta2k/trackmate/pkg/types"
)

const (
	msgNoImage      = "No image data provided"
	timestampFormat = "2006-01-02 15:04:05"
)

// ActivityController serves the classification endpoint
type ActivityController struct {
	service *service.ActivityService
	logger  *slog.Logger
}

// NewActivityController creates an ActivityController
func NewActivityController(s *service.ActivityService, logger *slog.Logger) *ActivityController {
	return &ActivityController{service: s, logger: logging.Module(logger, "api")}
}

// AnalyzeRequest is the body of POST /api/analyze-activity
type AnalyzeRequest struct {
	Image       string `json:"image"`
	CheckHealth bool   `json:"check_health"`
}

// AnalyzeResponse is a successful classification
type AnalyzeResponse struct {
	Success     bool           `json:"success"`
	Activity    string         `json:"activity"`
	Category    types.Category `json:"category"`
	LogID       uint64         `json:"log_id,omitempty"`
	Timestamp   string         `json:"timestamp"`
	Description string         `json:"description"`
	RawResponse string         `json:"ai_raw_response"`
	Confidence  float64        `json:"confidence"`
	Method      string         `json:"method"`
	Cached      bool           `json:"cached"`
	Warning     string         `json:"warning,omitempty"`
}

// AnalyzeFailure is returned when no classification could be produced
type AnalyzeFailure struct {
	Success  bool           `json:"success"`
	Error    string         `json:"error"`
	Details  string         `json:"details,omitempty"`
	Activity string         `json:"activity"`
	Category types.Category `json:"category"`
}

// HealthResponse reports inference backend availability
type HealthResponse struct {
	Success         bool   `json:"success"`
	HybridAvailable bool   `json:"hybrid_available"`
	Status          string `json:"status"`
}

// Analyze classifies an uploaded webcam frame and records it
func (ctrl *ActivityController) Analyze(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, middleware.UnauthenticatedMessage)
		return
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgNoImage)
		return
	}

	if req.CheckHealth {
		online := ctrl.service.Health(c.Request.Context())
		status := "offline"
		if online {
			status = "online"
		}
		c.JSON(http.StatusOK, HealthResponse{Success: true, HybridAvailable: online, Status: status})
		return
	}

	image, err := processing.DecodePayload(req.Image)
	if err != nil {
		if errors.Is(err, processing.ErrEmptyImage) {
			response.Error(c, http.StatusBadRequest, msgNoImage)
		} else {
			response.Error(c, http.StatusBadRequest, "Invalid image data")
		}
		return
	}

	out, err := ctrl.service.Analyze(c.Request.Context(), userID, image)
	if err != nil {
		ctrl.logger.Error("classification failed", "user_id", userID, "kind", string(client.KindOf(err)), "error", err)
		c.JSON(http.StatusInternalServerError, failure(err))
		return
	}

	res := out.Result
	c.JSON(http.StatusOK, AnalyzeResponse{
		Success:     true,
		Activity:    res.Activity,
		Category:    res.Category,
		LogID:       out.LogID,
		Timestamp:   res.Timestamp.Format(timestampFormat),
		Description: res.Description,
		RawResponse: res.RawResponse,
		Confidence:  res.Confidence,
		Method:      res.Method,
		Cached:      res.Cached,
		Warning:     out.Warning,
	})
}

func failure(err error) AnalyzeFailure {
	f := AnalyzeFailure{
		Success:  false,
		Activity: detection.FailureActivity(err),
		Category: types.CategoryOther,
	}

	var ie *client.InferenceError
	if !errors.As(err, &ie) {
		f.Error = "Classification failed"
		f.Details = err.Error()
		return f
	}

	switch ie.Kind {
	case client.KindBadStatus:
		f.Error = fmt.Sprintf("%s API returned status %d", ie.Backend, ie.StatusCode)
	case client.KindMalformed:
		f.Error = fmt.Sprintf("Invalid response from %s", ie.Backend)
	default:
		f.Error = fmt.Sprintf("Cannot connect to %s server", ie.Backend)
	}
	if ie.Err != nil {
		f.Details = ie.Err.Error()
	}
	return f
}
