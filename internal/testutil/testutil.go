package testutil

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ambralab/tpdb-backend/internal/db"
	"github.com/ambralab/tpdb-backend/internal/platform/logger"
)

// NewLogger builds a development logger for tests.
func NewLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

// NewDB opens a throwaway sqlite database in the test's temp dir with the
// full schema migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite")
	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	if err := db.AutoMigrateAll(conn); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return conn
}
