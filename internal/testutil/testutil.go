// Package testutil opens throwaway SQLite and Redis instances for package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fankick/storefront/internal/config"
	"github.com/fankick/storefront/internal/infrastructure/database/postgres"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with the full schema migrated
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:fankick_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// shared-cache memory databases report SQLITE_LOCKED under concurrent writers
	sqlDB.SetMaxOpenConns(1)
	if err := postgres.NewMigration(db, nil).RunAutoMigrations(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// NewRedis starts a miniredis server and returns a client for it
func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

// Config returns a configuration suitable for tests
func Config() *config.Config {
	return &config.Config{
		App: config.AppConfig{Environment: "test"},
		JWT: config.JWTConfig{
			Secret:            "test-secret-that-is-at-least-32-characters",
			AccessTokenExpiry: 15 * time.Minute,
		},
		Security: config.SecurityConfig{BcryptCost: 4, RateLimitPerMinute: 1000},
		Redis:    config.RedisConfig{CatalogTTL: time.Minute},
	}
}
