package database

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"laundry_ledger/internal/models"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, ParseLogLevel("silent"))
	assert.Equal(t, logger.Error, ParseLogLevel("ERROR"))
	assert.Equal(t, logger.Info, ParseLogLevel("info"))
	assert.Equal(t, logger.Warn, ParseLogLevel("warn"))
	assert.Equal(t, logger.Warn, ParseLogLevel("verbose"))
}

func TestOpenLeavesSchemaToMigrations(t *testing.T) {
	db, err := Open(sqlite.Open(filepath.Join(t.TempDir(), "open.db")), "silent")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	assert.False(t, db.Migrator().HasTable(&models.Order{}))

	require.NoError(t, AutoMigrate(db))
	for _, table := range []interface{}{&models.Client{}, &models.Service{}, &models.Order{}, &models.OrderItem{}, &models.Payment{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
}
