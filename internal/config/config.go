package config

import (
	"os"
	"strconv"
	"time"

	"anjoman/internal/auth"
	"anjoman/internal/cache"
	"anjoman/internal/database"
	"anjoman/internal/external"
	"anjoman/internal/messaging"
)

// Config holds the full application configuration.
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	FrontendCallbackURL string

	Database database.Config
	Redis    cache.Config
	NATS     messaging.Config
	Zarinpal external.ZarinpalConfig
	Auth     auth.Config
}

// Load builds the configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		FrontendCallbackURL: getEnv("FRONTEND_CALLBACK_URL", "http://localhost:3000/payments/result"),

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "anjoman"),
			Password:           getEnv("DB_PASSWORD", "anjoman123"),
			DBName:             getEnv("DB_NAME", "anjoman"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		Redis: cache.Config{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			EventTTL: time.Duration(getEnvInt("REDIS_EVENT_TTL_SEC", 60)) * time.Second,
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "anjoman"),
			ClientID:  getEnv("NATS_CLIENT_ID", "anjoman-api"),
		},

		Zarinpal: external.ZarinpalConfig{
			BaseURL:     getEnv("ZARINPAL_BASE_URL", "https://payment.zarinpal.com"),
			MerchantID:  getEnv("ZARINPAL_MERCHANT_ID", ""),
			CallbackURL: getEnv("ZARINPAL_CALLBACK_URL", "http://localhost:8080/api/payments/callback"),
			Timeout:     time.Duration(getEnvInt("ZARINPAL_TIMEOUT_SEC", 15)) * time.Second,
		},

		Auth: auth.Config{
			JWTSecret:       getEnv("JWT_SECRET", "change-me"),
			AccessTokenTTL:  time.Duration(getEnvInt("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute,
			RefreshTokenTTL: time.Duration(getEnvInt("REFRESH_TOKEN_TTL_HOURS", 24*7)) * time.Hour,
		},
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable value or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
