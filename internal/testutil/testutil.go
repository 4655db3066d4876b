// Package testutil holds helpers shared by package tests.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"task-assigner/internal/database"

	"gorm.io/gorm"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OpenDB returns a migrated sqlite database living in the test's temp dir.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Options{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "tasks.db"),
		Attempts: 1,
		Logger:   DiscardLogger(),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
