package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// GormLogger adapts slog to GORM's logger.Interface.
// SQL queries are logged at DEBUG, slow queries and query errors at WARN.
type GormLogger struct {
	logger        *slog.Logger
	slowThreshold time.Duration
}

// NewGormLogger creates a new GORM logger adapter. Use a zero slowThreshold
// to disable slow query warnings.
func NewGormLogger(l *slog.Logger, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{
		logger:        Module(l, "datastore"),
		slowThreshold: slowThreshold,
	}
}

// LogMode returns the adapter itself; the level comes from the slog handler
func (a *GormLogger) LogMode(_ gorm_logger.LogLevel) gorm_logger.Interface {
	return a
}

func (a *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	a.logger.DebugContext(ctx, fmt.Sprintf(msg, data...))
}

func (a *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	a.logger.WarnContext(ctx, fmt.Sprintf(msg, data...))
}

func (a *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	a.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
}

// Trace logs one executed statement
func (a *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		a.logger.WarnContext(ctx, "query error",
			"sql", sql,
			"rows_affected", rows,
			"duration_ms", elapsed.Milliseconds(),
			"error", err)

	case a.slowThreshold > 0 && elapsed > a.slowThreshold:
		a.logger.WarnContext(ctx, "slow query",
			"sql", sql,
			"rows_affected", rows,
			"duration_ms", elapsed.Milliseconds(),
			"threshold", a.slowThreshold)

	default:
		a.logger.DebugContext(ctx, "sql query",
			"sql", sql,
			"rows_affected", rows,
			"duration_ms", elapsed.Milliseconds())
	}
}
