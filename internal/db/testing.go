package db

import (
	"path/filepath"
	"testing"

	"portfolio/internal/config"

	"gorm.io/gorm"
)

// OpenTest returns a migrated sqlite database living in t.TempDir.
func OpenTest(t testing.TB) *gorm.DB {
	t.Helper()

	conn, err := Open(config.DatabaseConfig{
		Driver:   "sqlite",
		FilePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return conn
}
