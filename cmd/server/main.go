package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"laundry_ledger/internal/config"
	"laundry_ledger/internal/database"
	"laundry_ledger/internal/events"
	"laundry_ledger/internal/handlers"
	"laundry_ledger/internal/middleware"
	"laundry_ledger/internal/migrations"
	"laundry_ledger/internal/redis"
	"laundry_ledger/internal/repository"
	"laundry_ledger/internal/services"
	"laundry_ledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zapLogger, err := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer zapLogger.Sync()

	// Amounts are rendered as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := migrations.RunMigrations(context.Background(), db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Breakdown cache is optional
	var cache services.BreakdownCache
	if cfg.RedisURL != "" {
		redisClient, err := redis.Initialize(cfg.RedisURL, time.Duration(cfg.CacheTTL)*time.Second)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		cache = redisClient
		zapLogger.Info("Breakdown cache enabled", zap.Int("ttl_seconds", cfg.CacheTTL))
	}

	// Event publishing is optional
	var publisher events.Publisher
	if cfg.RabbitMQURL != "" {
		rabbit, err := events.NewRabbitMQ(cfg.RabbitMQURL, cfg.EventsExchange)
		if err != nil {
			zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer rabbit.Close()
		publisher = rabbit
		zapLogger.Info("Order events enabled", zap.String("exchange", cfg.EventsExchange))
	}

	// Initialize services
	store := repository.NewStore(db)
	ledger := services.NewOrderLedger(store, cache, publisher, zapLogger.Named("ledger"))
	operator := services.NewOperatorService(cfg.OperatorUsername, cfg.OperatorPasswordHash)
	if !operator.Enabled() {
		zapLogger.Warn("OPERATOR_PASSWORD_HASH not set, API authentication disabled")
	}

	// Initialize handlers
	orderHandler := handlers.NewOrderHandler(ledger, store.Catalog(), zapLogger.Named("http"))

	// Setup routes
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(zapLogger.Named("http")), middleware.Prometheus())

	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api", middleware.BasicAuth(operator))
	orderHandler.RegisterRoutes(api)

	// Start server
	zapLogger.Info("Server starting", zap.String("port", cfg.ServerPort))
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
