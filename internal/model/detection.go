package model

import (
	"time"

	"github.com/menta2k/trackmate/pkg/types"
)

// Detection is one classified frame. Rows are never updated or deleted.
type Detection struct {
	ID           uint64         `gorm:"primaryKey" json:"id"`
	UserID       uint64         `gorm:"not null;index:idx_activity_user_time,priority:1" json:"user_id"`
	Category     types.Category `gorm:"not null" json:"category"`
	ActivityName string         `gorm:"size:64;not null" json:"activity_name"`
	Description  string         `gorm:"type:text" json:"description"`
	Confidence   float64        `gorm:"not null;default:0.5" json:"confidence"`
	Method       string         `gorm:"size:32" json:"method"`
	Cached       bool           `gorm:"not null;default:false" json:"cached"`
	DetectedAt   time.Time      `gorm:"not null;index:idx_activity_user_time,priority:2" json:"detected_at"`
}

// TableName keeps the table name used by existing installations
func (Detection) TableName() string {
	return "activity_logs"
}

// NewDetection builds the row stored for a classification result
func NewDetection(userID uint64, r *types.Result, detectedAt time.Time) *Detection {
	return &Detection{
		UserID:       userID,
		Category:     r.Category,
		ActivityName: r.Activity,
		Description:  r.Description,
		Confidence:   r.Confidence,
		Method:       r.Method,
		Cached:       r.Cached,
		DetectedAt:   detectedAt,
	}
}
