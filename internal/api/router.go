package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/menta2k/trackmate/internal/api/controller"
	"github.com/menta2k/trackmate/internal/api/middleware"
	"github.com/menta2k/trackmate/internal/logging"
	"github.com/menta2k/trackmate/internal/metrics"
)

// Deps are the handlers and settings the router wires together
type Deps struct {
	Activity *controller.ActivityController
	Stats    *controller.StatsController
	Metrics  *metrics.Metrics
	Auth     middleware.AuthConfig
	Logger   *slog.Logger
}

// NewRouter builds the gin engine with every route registered
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), logging.RequestLogger(d.Logger))
	RegisterRoutes(r, d)
	return r
}

// RegisterRoutes registers all routes on r
func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	protected := r.Group("/api")
	protected.Use(middleware.JWTAuth(d.Auth))
	{
		protected.POST("/analyze-activity", d.Activity.Analyze)
		protected.GET("/activity-stats", d.Stats.Stats)
		protected.GET("/latest-activity", d.Stats.Latest)
		protected.GET("/calendar-activities", d.Stats.Calendar)
		protected.GET("/reports", d.Stats.Report)
	}
}
