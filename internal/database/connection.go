package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"laundry_ledger/internal/models"
)

// Initialize connects to PostgreSQL. Schema changes are left to the migrations package.
func Initialize(databaseURL, logLevel string) (*gorm.DB, error) {
	return Open(postgres.Open(databaseURL), logLevel)
}

// Open connects through any gorm dialector with the configured log level.
func Open(dialector gorm.Dialector, logLevel string) (*gorm.DB, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(ParseLogLevel(logLevel)),
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// AutoMigrate creates or updates the ledger tables. Parents are migrated before children so
// foreign keys can be created.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Client{},
		&models.Service{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	)
}

// ParseLogLevel maps a DB_LOG_LEVEL value to gorm's logger level. Unknown values mean warn.
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
