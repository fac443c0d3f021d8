// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"prizepool_service/internal/database"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens an in-memory sqlite database private to t and migrates
// models into it. The pool holds a single connection; shared-cache sqlite
// locks tables across connections.
func NewTestDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	// Subtests share a prefix with their parent, so the full name is used.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: database.NewQueryLogger(zap.NewNop(), logger.Silent, 0, false),
	})
	if err != nil {
		t.Fatalf("open sqlite %s: %v", name, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db, models...); err != nil {
		t.Fatalf("migrate %s: %v", name, err)
	}
	return db
}
