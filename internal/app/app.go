// Package app assembles the tracker from its configuration.
package app

import (
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/menta2k/trackmate/internal/api"
	"github.com/menta2k/trackmate/internal/api/controller"
	"github.com/menta2k/trackmate/internal/api/middleware"
	"github.com/menta2k/trackmate/internal/config"
	"github.com/menta2k/trackmate/internal/infrastructure/database"
	"github.com/menta2k/trackmate/internal/metrics"
	"github.com/menta2k/trackmate/internal/repository"
	"github.com/menta2k/trackmate/internal/service"
	"github.com/menta2k/trackmate/pkg/client"
	"github.com/menta2k/trackmate/pkg/detection"
	"github.com/menta2k/trackmate/pkg/llamacpp"
	"github.com/menta2k/trackmate/pkg/ollama"
	"github.com/menta2k/trackmate/pkg/processing"
	"github.com/menta2k/trackmate/pkg/resultcache"
	"github.com/menta2k/trackmate/pkg/types"
)

// App is a fully wired server
type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Router   *gin.Engine
	Metrics  *metrics.Metrics
	Detector *detection.Detector
}

// NewVisionClient creates the inference client selected by inference.backend
func NewVisionClient(cfg config.InferenceConfig) (client.VisionClient, error) {
	opts := types.GenerationOptions{
		Temperature:   cfg.Temperature,
		NumPredict:    cfg.NumPredict,
		TopP:          cfg.TopP,
		TopK:          cfg.TopK,
		RepeatPenalty: cfg.RepeatPenalty,
		Stop:          cfg.Stop,
	}
	transport := client.TransportConfig{
		ConnectTimeout: cfg.ConnectTimeout,
		Timeout:        cfg.Timeout,
		VerifyPeer:     cfg.VerifyPeer,
		VerifyHost:     cfg.VerifyHost,
	}

	switch cfg.Backend {
	case ollama.BackendName:
		return ollama.NewClient(ollama.Config{URL: cfg.URL, Model: cfg.Model, Options: opts, Transport: transport})
	case llamacpp.BackendName:
		return llamacpp.NewClient(llamacpp.Config{URL: cfg.URL, Model: cfg.Model, Options: opts, Transport: transport})
	default:
		return nil, fmt.Errorf("unknown inference backend %q (use %q or %q)", cfg.Backend, ollama.BackendName, llamacpp.BackendName)
	}
}

// NewDetector builds the classification pipeline: vision client, frame
// preparation, result cache and category names
func NewDetector(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*detection.Detector, error) {
	categories, err := types.NewCategoryTable(cfg.Activities.Categories)
	if err != nil {
		return nil, err
	}
	vc, err := NewVisionClient(cfg.Inference)
	if err != nil {
		return nil, err
	}

	return detection.NewDetector(vc,
		detection.WithProcessor(processing.NewProcessor(cfg.Image.MaxSize, cfg.Image.Quality)),
		detection.WithCache(resultcache.New(cfg.CacheTTL())),
		detection.WithCategories(categories),
		detection.WithMetrics(m),
		detection.WithLogger(logger),
	), nil
}

// New opens the store and wires every HTTP handler
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	m, err := metrics.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	det, err := NewDetector(cfg, m, logger)
	if err != nil {
		return nil, err
	}
	categories, _ := types.NewCategoryTable(cfg.Activities.Categories)

	db, err := database.Open(database.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		AutoMigrate:     cfg.Database.AutoMigrate,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		SlowThreshold:   cfg.Database.SlowThreshold,
	}, logger)
	if err != nil {
		return nil, err
	}

	repo := repository.NewActivityRepo(db)
	activity := service.NewActivityService(det, repo, m, logger)
	stats := service.NewStatsService(repo, service.StatsConfig{
		Categories:          categories,
		SecondsPerDetection: cfg.Stats.SecondsPerDetection,
		RecentLimit:         cfg.Stats.RecentLimit,
	})

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := api.NewRouter(api.Deps{
		Activity: controller.NewActivityController(activity, logger),
		Stats:    controller.NewStatsController(stats, logger),
		Metrics:  m,
		Auth:     middleware.AuthConfig{Secret: cfg.Auth.JWTSecret, CookieName: cfg.Auth.CookieName},
		Logger:   logger,
	})

	return &App{Config: cfg, DB: db, Router: router, Metrics: m, Detector: det}, nil
}

// Close releases the store connection
func (a *App) Close() error {
	return database.Close(a.DB)
}
