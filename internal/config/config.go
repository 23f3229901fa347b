package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv      string
	Port         string
	TraceBaseURL string
	Database     DatabaseConfig
	Simulation   SimulationConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver     string // "postgres" or "sqlite"
	Host       string
	Port       string
	Username   string
	Password   string
	Database   string
	SQLitePath string
	Alter      bool
}

// SimulationConfig controls the simulated hardware layer
type SimulationConfig struct {
	// Fast collapses all artificial sensor/printer delays to near zero.
	Fast bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	driver := getEnv("DB_DRIVER", "postgres")
	if driver != "postgres" && driver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", driver)
	}

	return &Config{
		NodeEnv:      getEnv("NODE_ENV", "development"),
		Port:         getEnv("PORT", "3001"),
		TraceBaseURL: getEnv("TRACE_BASE_URL", "http://localhost:3001"),
		Database: DatabaseConfig{
			Driver:     driver,
			Host:       getEnv("PG_HOST", "localhost"),
			Port:       getEnv("PG_PORT", "5432"),
			Username:   getEnv("PG_USERNAME", "postgres"),
			Password:   os.Getenv("PG_PASSWORD"),
			Database:   getEnv("PG_DATABASE", "smartlabel"),
			SQLitePath: getEnv("SQLITE_PATH", "./smartlabel.db"),
			Alter:      getEnv("DB_ALTER", "false") == "true",
		},
		Simulation: SimulationConfig{
			Fast: getEnv("SIM_FAST", "false") == "true",
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
