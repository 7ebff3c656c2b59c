package database

import (
	"fmt"
	"log/slog"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/menta2k/trackmate/internal/logging"
	"github.com/menta2k/trackmate/internal/model"
)

// Config holds connection and pool settings
type Config struct {
	Driver          string // mysql or sqlite
	DSN             string
	AutoMigrate     bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SlowThreshold   time.Duration
}

// Open connects to the activity store and optionally creates the schema
func Open(cfg Config, logger *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dsn, err := MySQLDSN(cfg.DSN)
		if err != nil {
			return nil, err
		}
		dialector = mysql.New(mysql.Config{DSN: dsn.FormatDSN(), DSNConfig: dsn})
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logging.NewGormLogger(logger, cfg.SlowThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return db, nil
}

// MySQLDSN parses a MySQL DSN and forces DATETIME columns to scan into
// time.Time in the server's local zone.
func MySQLDSN(raw string) (*gomysql.Config, error) {
	dsn, err := gomysql.ParseDSN(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	dsn.ParseTime = true
	dsn.Loc = time.Local
	return dsn, nil
}

// Migrate creates or updates the activity_logs table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Detection{}); err != nil {
		return fmt.Errorf("failed to migrate activity_logs: %w", err)
	}
	return nil
}

// Close releases the connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
