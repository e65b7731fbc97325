// Package config loads application configuration from the environment.
// A .env file is honored in development; real environment variables win.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	// Server
	Port        string
	Environment string

	// Storage
	DBPath string

	// Audit events (optional; empty brokers = no-op publisher)
	KafkaBrokers []string
	KafkaTopic   string

	// Reporting
	CostPerML decimal.Decimal

	// CORS
	AllowedOrigins []string
}

// Load reads configuration from environment variables, with a best-effort
// .env load first.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		DBPath:         getEnv("DB_PATH", "ledgers.db"),
		KafkaBrokers:   getEnvAsSlice("KAFKA_BROKERS", nil),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "ledger-audit"),
		CostPerML:      getEnvAsDecimal("COST_PER_ML", "4.50"),
		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvAsSlice(key string, fallback []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func getEnvAsDecimal(key, fallback string) decimal.Decimal {
	d, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil {
		d, _ = decimal.NewFromString(fallback)
	}
	return d
}
