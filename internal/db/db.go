package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"portfolio/internal/config"
	"portfolio/internal/logging"
	"portfolio/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database. Supported drivers are postgres
// (production) and sqlite (local development and tests).
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "postgres", "":
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		})
	case "sqlite":
		if dir := filepath.Dir(cfg.FilePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite dir: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.FilePath + "?_foreign_keys=1&_busy_timeout=5000")
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
		}
	}

	logger := logging.L()
	logger.Info().Str("driver", cfg.Driver).Msg("database connection established")
	return conn, nil
}

// Migrate creates or updates every table and seeds the default tags.
func Migrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.GuestbookEntry{},
		&models.Like{},
		&models.Contact{},
		&models.Tag{},
		&models.Post{},
		&models.Comment{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	logger := logging.L()
	logger.Info().Msg("database migration completed")
	return seedTags(conn)
}

func seedTags(conn *gorm.DB) error {
	var count int64
	conn.Model(&models.Tag{}).Count(&count)
	if count > 0 {
		return nil
	}

	tags := []models.Tag{
		{Name: "go"},
		{Name: "web"},
		{Name: "notes"},
		{Name: "projects"},
	}
	for i := range tags {
		if err := conn.Create(&tags[i]).Error; err != nil {
			return fmt.Errorf("failed to create tag %s: %w", tags[i].Name, err)
		}
	}
	logger := logging.L()
	logger.Info().Int("count", len(tags)).Msg("initial tags created")
	return nil
}
