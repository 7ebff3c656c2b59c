package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/menta2k/trackmate/internal/logging"
	"github.com/menta2k/trackmate/internal/metrics"
	"github.com/menta2k/trackmate/internal/model"
	"github.com/menta2k/trackmate/internal/repository"
	"github.com/menta2k/trackmate/pkg/types"
)

// PersistWarning is reported when a classification succeeded but was not stored
const PersistWarning = "Activity detected but not logged to database"

// Detector classifies decoded frames
type Detector interface {
	Detect(ctx context.Context, image []byte) (*types.Result, error)
	Ping(ctx context.Context) error
	Backend() string
}

// AnalyzeOutcome is a classification plus what happened when storing it
type AnalyzeOutcome struct {
	Result  *types.Result
	LogID   uint64 // zero when the row was not stored
	Warning string
}

// ActivityService classifies frames and records them for a user
type ActivityService struct {
	detector Detector
	repo     repository.ActivityRepo
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewActivityService wires the classification pipeline to the activity store
func NewActivityService(d Detector, repo repository.ActivityRepo, m *metrics.Metrics, logger *slog.Logger) *ActivityService {
	return &ActivityService{
		detector: d,
		repo:     repo,
		metrics:  m,
		logger:   logging.Module(logger, "activity"),
		now:      time.Now,
	}
}

// Analyze classifies image and stores the result for userID. Inference
// failures are returned unchanged; a storage failure keeps the result and
// sets Warning.
func (s *ActivityService) Analyze(ctx context.Context, userID uint64, image []byte) (*AnalyzeOutcome, error) {
	res, err := s.detector.Detect(ctx, image)
	if err != nil {
		return nil, err
	}

	out := &AnalyzeOutcome{Result: res}
	row := model.NewDetection(userID, res, s.now())
	if err := s.repo.Create(ctx, row); err != nil {
		s.metrics.IncrementPersistFailures()
		s.logger.Error("failed to store detection", "user_id", userID, "category", int(res.Category), "error", err)
		out.Warning = PersistWarning
		return out, nil
	}

	out.LogID = row.ID
	return out, nil
}

// Health reports whether the inference backend is reachable
func (s *ActivityService) Health(ctx context.Context) bool {
	if err := s.detector.Ping(ctx); err != nil {
		s.logger.Warn("inference backend offline", "backend", s.detector.Backend(), "error", err)
		return false
	}
	return true
}
