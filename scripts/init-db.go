package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"laundry_ledger/internal/config"
	"laundry_ledger/internal/database"
	"laundry_ledger/internal/migrations"
	"laundry_ledger/internal/services"
	"laundry_ledger/pkg/logger"
)

func main() {
	fmt.Println("Initializing database...")

	// Load configuration
	cfg := config.Load()

	zapLogger, err := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer zapLogger.Sync()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Create tables and the default catalog
	fmt.Println("Creating tables and default catalog...")
	if err := migrations.RunMigrations(context.Background(), db, zapLogger); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Print an operator hash when a password is supplied
	if password := os.Getenv("OPERATOR_PASSWORD"); password != "" {
		hash, err := services.HashPassword(password)
		if err != nil {
			log.Fatal("Failed to hash operator password:", err)
		}
		fmt.Println("Set this in your environment:")
		fmt.Printf("OPERATOR_PASSWORD_HASH=%s\n", hash)
	}

	fmt.Println("Database initialization completed successfully!")
}
