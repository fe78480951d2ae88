package migrations

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"laundry_ledger/internal/database"
	"laundry_ledger/internal/models"
	"laundry_ledger/internal/repository"
)

// RunMigrations migrates the ledger tables and creates default data when the catalog is empty.
func RunMigrations(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	log.Info("Running database migrations")

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := createDefaultData(ctx, repository.NewStore(db), log); err != nil {
		log.Warn("Failed to create default data", zap.Error(err))
	}

	log.Info("Database migrations completed")
	return nil
}

var defaultServices = []models.Service{
	{Name: "Wash and fold", Price: decimal.RequireFromString("12.50"), Unit: "kg"},
	{Name: "Shirt ironing", Price: decimal.RequireFromString("6.00"), Unit: "piece"},
	{Name: "Suit dry cleaning", Price: decimal.RequireFromString("45.00"), Unit: "piece"},
	{Name: "Duvet", Price: decimal.RequireFromString("38.90"), Unit: "piece"},
}

// createDefaultData seeds a demo catalog and a walk-in client in one transaction.
func createDefaultData(ctx context.Context, store repository.Store, log *zap.Logger) error {
	existing, err := store.Catalog().ListServices(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Info("Catalog already seeded", zap.Int("services", len(existing)))
		return nil
	}

	return store.Transaction(ctx, func(tx repository.Store) error {
		for _, s := range defaultServices {
			service := s
			if err := tx.Catalog().CreateService(ctx, &service); err != nil {
				return err
			}
		}

		walkIn := &models.Client{Name: "Walk-in customer"}
		if err := tx.Catalog().CreateClient(ctx, walkIn); err != nil {
			return err
		}

		log.Info("Default catalog created",
			zap.Int("services", len(defaultServices)),
			zap.Uint("client_id", walkIn.ID),
		)
		return nil
	})
}
