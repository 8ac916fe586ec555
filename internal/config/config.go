package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Durable store configuration (PostgreSQL; SQLite when unset)
	DatabaseURL string

	// Local fallback store (SQLite file used when the durable store is down)
	FallbackDBPath string

	// Redis configuration (event bus)
	RedisURL string

	// Brevo email configuration
	BrevoAPIKey    string
	BrevoFromEmail string
	BrevoFromName  string

	// Operations alerting
	OpsEmail      string
	WebhookURL    string
	WebhookSecret string

	// Operator console authentication
	AdminAPIKey string

	// Reconciliation sweep
	ReconcileIntervalMinutes int
	ServiceName              string
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = &Config{
		Port:                     getEnv("PORT", "8080"),
		Mode:                     getEnv("GIN_MODE", "debug"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		FallbackDBPath:           getEnv("FALLBACK_DB_PATH", "fulfillment-fallback.db"),
		RedisURL:                 getEnv("REDIS_URL", ""),
		BrevoAPIKey:              getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail:           getEnv("BREVO_FROM_EMAIL", ""),
		BrevoFromName:            getEnv("BREVO_FROM_NAME", "Fulfillment Service"),
		OpsEmail:                 getEnv("OPS_EMAIL", ""),
		WebhookURL:               getEnv("WEBHOOK_URL", ""),
		WebhookSecret:            getEnv("WEBHOOK_SECRET", ""),
		AdminAPIKey:              getEnv("ADMIN_API_KEY", ""),
		ReconcileIntervalMinutes: getEnvInt("RECONCILE_INTERVAL_MINUTES", 15),
		ServiceName:              getEnv("SERVICE_NAME", "Fulfillment Service"),
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
