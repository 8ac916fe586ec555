package database

import (
	"context"
	"fmt"
	"time"

	"fulfillment-api/internal/config"
	"fulfillment-api/internal/models"
	"fulfillment-api/pkg/logging"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	// Durable is the remote durable store (PostgreSQL in production,
	// SQLite when DATABASE_URL is unset).
	Durable *gorm.DB

	// Fallback is the local store that absorbs writes while the
	// durable store is unreachable.
	Fallback *gorm.DB

	RedisClient *redis.Client
)

// InitDatabase initializes both stores and the Redis event bus.
func InitDatabase() error {
	if err := initDurable(); err != nil {
		return fmt.Errorf("failed to initialize durable store: %w", err)
	}

	if err := initFallback(); err != nil {
		return fmt.Errorf("failed to initialize fallback store: %w", err)
	}

	if err := initRedis(); err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}

	for _, db := range []*gorm.DB{Durable, Fallback} {
		if err := autoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return nil
}

// initDurable initializes the durable store connection
func initDurable() error {
	var err error
	var dsn string

	if dsn = config.AppConfig.DatabaseURL; dsn == "" {
		// Fallback to SQLite for development
		logging.Infof("Database URL not set, using SQLite for development")
		Durable, err = gorm.Open(sqlite.Open("fulfillment-api.db"), gormConfig())
	} else {
		// Use PostgreSQL for production
		Durable, err = gorm.Open(postgres.Open(dsn), gormConfig())
	}

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	logging.Infof("Durable store connected successfully")
	return nil
}

// initFallback opens the local SQLite store used when the durable
// store is down.
func initFallback() error {
	var err error
	path := config.AppConfig.FallbackDBPath
	Fallback, err = gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return fmt.Errorf("failed to open fallback store %s: %w", path, err)
	}

	logging.Infof("Fallback store opened at %s", path)
	return nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	}
}

// initRedis initializes the Redis connection backing the event bus.
// Redis is optional; without it events are logged only.
func initRedis() error {
	redisURL := config.AppConfig.RedisURL
	if redisURL == "" {
		logging.Infof("Redis URL not set, event bus disabled")
		return nil
	}

	logging.Infof("Connecting to Redis: %s", maskRedisURL(redisURL))

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		logging.Errorf("Failed to parse Redis URL: %v", err)
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err = RedisClient.Ping(ctx).Result(); err != nil {
		logging.Errorf("Failed to connect to Redis: %v", err)
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Infof("Redis connected successfully")
	return nil
}

// maskRedisURL masks sensitive information in Redis URL for logging
func maskRedisURL(url string) string {
	if len(url) > 20 {
		return url[:10] + "***" + url[len(url)-10:]
	}
	return "***"
}

// autoMigrate performs database migration
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Credential{},
		&models.StockIssue{},
		&models.Subscription{},
	)
}

// GetDurable returns the durable store instance
func GetDurable() *gorm.DB {
	return Durable
}

// GetFallback returns the local fallback store instance
func GetFallback() *gorm.DB {
	return Fallback
}

// GetRedis returns Redis client
func GetRedis() *redis.Client {
	return RedisClient
}

// CloseDatabase closes database connections
func CloseDatabase() error {
	for _, db := range []*gorm.DB{Durable, Fallback} {
		if db == nil {
			continue
		}
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logging.Errorf("Failed to close database: %v", err)
			}
		}
	}

	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logging.Errorf("Failed to close Redis: %v", err)
		}
	}

	return nil
}
