// Package config loads the application configuration from environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Severity validation policies (see Config.SeverityPolicy).
const (
	SeverityPolicyOpen   = "open"
	SeverityPolicyStrict = "strict"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	LogLevel    string
	LogFormat   string

	// Simulator
	SimulatorMinDelay    time.Duration
	SimulatorMaxDelay    time.Duration
	SimulatorMaxQuantity int

	// Shop
	StockBaseline int
	HistoryLimit  int

	// Alerts: "open" accepts unknown severity levels verbatim,
	// "strict" rejects them.
	SeverityPolicy string

	// Connection limits
	MaxClients      int64
	MaxClientsPerIP int
	ConnRate        float64
	ConnBurst       int
}

func Load() (*Config, error) {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		SeverityPolicy: getEnv("SEVERITY_POLICY", SeverityPolicyOpen),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SeverityPolicy != SeverityPolicyOpen && cfg.SeverityPolicy != SeverityPolicyStrict {
		return nil, fmt.Errorf("SEVERITY_POLICY must be %q or %q", SeverityPolicyOpen, SeverityPolicyStrict)
	}

	var err error
	if cfg.SimulatorMinDelay, err = getDuration("SIMULATOR_MIN_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.SimulatorMaxDelay, err = getDuration("SIMULATOR_MAX_DELAY", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.SimulatorMinDelay <= 0 || cfg.SimulatorMaxDelay < cfg.SimulatorMinDelay {
		return nil, fmt.Errorf("simulator delays must satisfy 0 < SIMULATOR_MIN_DELAY <= SIMULATOR_MAX_DELAY")
	}

	if cfg.SimulatorMaxQuantity, err = getInt("SIMULATOR_MAX_QUANTITY", 5); err != nil {
		return nil, err
	}
	if cfg.SimulatorMaxQuantity < 1 {
		return nil, fmt.Errorf("SIMULATOR_MAX_QUANTITY must be at least 1")
	}

	if cfg.StockBaseline, err = getInt("STOCK_BASELINE", 100); err != nil {
		return nil, err
	}
	if cfg.StockBaseline < 0 {
		return nil, fmt.Errorf("STOCK_BASELINE must not be negative")
	}

	if cfg.HistoryLimit, err = getInt("HISTORY_LIMIT", 100); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit < 1 {
		return nil, fmt.Errorf("HISTORY_LIMIT must be at least 1")
	}

	maxClients, err := getInt("MAX_CLIENTS", 1000)
	if err != nil {
		return nil, err
	}
	cfg.MaxClients = int64(maxClients)

	if cfg.MaxClientsPerIP, err = getInt("MAX_CLIENTS_PER_IP", 20); err != nil {
		return nil, err
	}
	if cfg.ConnRate, err = getFloat("CONN_RATE", 10); err != nil {
		return nil, err
	}
	if cfg.ConnBurst, err = getInt("CONN_BURST", 10); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 2s or 500ms: %w", key, err)
	}
	return d, nil
}
