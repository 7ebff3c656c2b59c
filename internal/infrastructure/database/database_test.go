package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/trackmate/internal/logging"
	"github.com/menta2k/trackmate/internal/model"
)

func TestOpenSQLiteMigrates(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "trackmate.db")
	db, err := Open(Config{Driver: "sqlite", DSN: dsn, AutoMigrate: true, MaxOpenConns: 1}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	assert.True(t, db.Migrator().HasTable(&model.Detection{}))
	assert.True(t, db.Migrator().HasTable("activity_logs"))
	assert.True(t, db.Migrator().HasIndex(&model.Detection{}, "idx_activity_user_time"))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "postgres", DSN: "x"}, logging.Discard())
	assert.Error(t, err)
}

func TestMySQLDSNForcesParseTime(t *testing.T) {
	dsn, err := MySQLDSN("user:pass@tcp(db:3306)/trackmate?charset=utf8mb4")
	require.NoError(t, err)

	assert.True(t, dsn.ParseTime)
	assert.Equal(t, time.Local, dsn.Loc)
	assert.Equal(t, "trackmate", dsn.DBName)
	assert.Equal(t, "db:3306", dsn.Addr)

	formatted := dsn.FormatDSN()
	assert.Contains(t, formatted, "parseTime=true")
	assert.Contains(t, formatted, "charset=utf8mb4")
}

func TestMySQLDSNRejectsGarbage(t *testing.T) {
	_, err := MySQLDSN("not a dsn")
	assert.Error(t, err)
}
