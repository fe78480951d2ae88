// Package testutil opens throwaway SQLite databases with the ledger schema for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"laundry_ledger/internal/database"
	"laundry_ledger/internal/models"
)

// NewDB returns a migrated database file under t.TempDir(). A single connection is used so
// transactions serialize the way row locks would on PostgreSQL.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "ledger.db") + "?_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// Catalog is the fixture created by Seed.
type Catalog struct {
	Client  models.Client
	Wash    models.Service // 10.00
	Ironing models.Service // 4.50
}

// Seed inserts one client and two services.
func Seed(t testing.TB, db *gorm.DB) Catalog {
	t.Helper()
	ctx := context.Background()

	c := Catalog{
		Client:  models.Client{Name: "Maria Souza", Phone: "5511999990000"},
		Wash:    models.Service{Name: "Wash", Price: decimal.RequireFromString("10.00"), Unit: "kg"},
		Ironing: models.Service{Name: "Ironing", Price: decimal.RequireFromString("4.50"), Unit: "piece"},
	}
	require.NoError(t, db.WithContext(ctx).Create(&c.Client).Error)
	require.NoError(t, db.WithContext(ctx).Create(&c.Wash).Error)
	require.NoError(t, db.WithContext(ctx).Create(&c.Ironing).Error)
	return c
}
