// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fankick/storefront/internal/config"
	"github.com/fankick/storefront/internal/infrastructure/database/postgres"
	"github.com/fankick/storefront/internal/infrastructure/database/redis"
	"github.com/fankick/storefront/internal/interfaces/http"
	"github.com/fankick/storefront/internal/pkg/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg)
	entry := appLogger.WithFields(logrus.Fields{
		"app":     cfg.App.Name,
		"version": cfg.App.Version,
		"env":     cfg.App.Environment,
	})
	entry.Info("Starting API")

	// Connect to database
	db, err := postgres.NewConnection(cfg, entry)
	if err != nil {
		entry.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Connect to Redis
	redisClient, err := redis.NewConnection(cfg, entry)
	if err != nil {
		entry.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Health check
	if err := db.Health(); err != nil {
		entry.WithError(err).Fatal("Database health check failed")
	}
	if err := redisClient.Health(); err != nil {
		entry.WithError(err).Fatal("Redis health check failed")
	}

	// Run database migrations
	migration := postgres.NewMigration(db.GetDB(), entry)

	if err := migration.RunAutoMigrations(); err != nil {
		entry.WithError(err).Fatal("Database migration failed")
	}

	if err := migration.CreateIndexes(); err != nil {
		entry.WithError(err).Warn("Index creation failed")
	}

	// Seed initial data in development
	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			entry.WithError(err).Warn("Data seeding failed")
		}
	}

	server := http.NewServer(cfg, db.GetDB(), redisClient.GetClient(), appLogger)

	go func() {
		if err := server.Start(); err != nil {
			entry.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	entry.Info("Shutting down gracefully")

	// Give server 30 seconds to shutdown gracefully
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		entry.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	entry.Info("Server shutdown completed")
}
