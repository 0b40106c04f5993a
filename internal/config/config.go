package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr           string
	DatabaseURL        string
	JWTSecret          string
	RefreshSecret      string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	RedisAddr          string
	RedisPassword      string
	PermissionCacheTTL time.Duration
	AMQPURL            string
	EventsQueue        string
	PaymentTaxRate     float64
	LogLevel           string
	SeedData           bool
	AdminEmail         string
	AdminPassword      string
	ShutdownTimeout    time.Duration
}

func Load() Config {
	addr := getenv("HTTP_ADDR", "")
	if addr == "" {
		// HTTP_PORT is what older deployments set
		addr = ":" + getenv("HTTP_PORT", "8080")
	}
	return Config{
		HTTPAddr:           addr,
		DatabaseURL:        getenv("DATABASE_URL", ""),
		JWTSecret:          getenv("JWT_SECRET", "dev-secret"),
		RefreshSecret:      getenv("REFRESH_TOKEN_SECRET", "dev-refresh-secret"),
		AccessTokenTTL:     getenvDuration("JWT_ACCESS_TOKEN_EXPIRES_IN", 15*time.Minute),
		RefreshTokenTTL:    getenvDuration("JWT_REFRESH_TOKEN_EXPIRES_IN", 7*24*time.Hour),
		RedisAddr:          getenv("REDIS_ADDR", ""),
		RedisPassword:      getenv("REDIS_PASSWORD", ""),
		PermissionCacheTTL: getenvDuration("PERMISSION_CACHE_TTL", time.Minute),
		AMQPURL:            getenv("AMQP_URL", ""),
		EventsQueue:        getenv("EVENTS_QUEUE", "classhub_events"),
		PaymentTaxRate:     getenvFloat("PAYMENT_TAX_RATE", 0.09),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		SeedData:           getenvBool("SEED_DATA", true),
		AdminEmail:         getenv("ADMIN_EMAIL", "admin@classhub.local"),
		AdminPassword:      getenv("ADMIN_PASSWORD", "admin123"),
		ShutdownTimeout:    getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}
