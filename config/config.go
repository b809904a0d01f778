package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"stratLab/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Run parameters
	InitialCash      float64
	RebalanceEvery   int     // Bars between rebalances
	MaxSingleLossPct float64 // Ledger-level stop guard (e.g., 0.15 for 15%)
	MaxPositionPct   float64 // Max share of portfolio value per position

	// Slippage
	SlippageModel  string             // fixed | volume_based | market_impact | bid_ask_spread
	SlippageParams map[string]float64 // Model parameters, see internal/slippage

	// Orchestration
	Workers int // Worker count for parallel batches

	// Data acquisition
	Symbols    []string
	Interval   string // Bar interval (e.g., "1d")
	DataDir    string // Directory for CSV panels and reports
	APIKey     string // Binance API key, optional for public data
	SecretKey  string
	UseTestnet bool

	// Database
	DBPath string

	// Logging
	LogLevel   logger.LogLevel
	LogBackend string // std | zap
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	cfg.InitialCash, err = getEnvAsFloatRequired("INITIAL_CASH", 100000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid INITIAL_CASH: %v", err))
	} else if cfg.InitialCash <= 0 {
		errs = append(errs, "INITIAL_CASH must be positive")
	}

	cfg.RebalanceEvery = getEnvAsInt("REBALANCE_EVERY", 1)
	if cfg.RebalanceEvery <= 0 {
		errs = append(errs, "REBALANCE_EVERY must be positive")
	}

	cfg.MaxSingleLossPct, err = getEnvAsFloatRequired("MAX_SINGLE_LOSS_PCT", 0.15)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_SINGLE_LOSS_PCT: %v", err))
	} else if cfg.MaxSingleLossPct < 0 || cfg.MaxSingleLossPct >= 1.0 {
		errs = append(errs, "MAX_SINGLE_LOSS_PCT must be in [0.0, 1.0)")
	}

	cfg.MaxPositionPct, err = getEnvAsFloatRequired("MAX_POSITION_PCT", 0.35)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_POSITION_PCT: %v", err))
	} else if cfg.MaxPositionPct < 0 || cfg.MaxPositionPct > 1.0 {
		errs = append(errs, "MAX_POSITION_PCT must be in [0.0, 1.0]")
	}

	cfg.SlippageModel = getEnv("SLIPPAGE_MODEL", "fixed")
	cfg.SlippageParams = map[string]float64{
		"rate":               getEnvAsFloat("SLIPPAGE_RATE", 0.001),
		"base_rate":          getEnvAsFloat("SLIPPAGE_BASE_RATE", 0.0005),
		"impact_coefficient": getEnvAsFloat("SLIPPAGE_IMPACT_COEFFICIENT", 0.1),
		"max_rate":           getEnvAsFloat("SLIPPAGE_MAX_RATE", 0.02),
		"exponent":           getEnvAsFloat("SLIPPAGE_EXPONENT", 0.5),
		"base_half_spread":   getEnvAsFloat("SLIPPAGE_BASE_HALF_SPREAD", 0.0005),
		"vol_coefficient":    getEnvAsFloat("SLIPPAGE_VOL_COEFFICIENT", 0.05),
	}

	cfg.Workers = getEnvAsInt("WORKERS", 4)
	if cfg.Workers < 0 {
		errs = append(errs, "WORKERS cannot be negative")
	}

	symbolsStr := getEnv("SYMBOLS", "BTCUSDT,ETHUSDT,BNBUSDT")
	for _, s := range strings.Split(symbolsStr, ",") {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			cfg.Symbols = append(cfg.Symbols, trimmed)
		}
	}
	if len(cfg.Symbols) == 0 {
		errs = append(errs, "SYMBOLS must name at least one symbol")
	}

	cfg.Interval = getEnv("INTERVAL", "1d")
	cfg.DataDir = getEnv("DATA_DIR", "./data")

	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.UseTestnet = getEnvAsBool("IS_TESTNET", false)

	cfg.DBPath = getEnv("DB_PATH", "./data/stratlab.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogBackend = strings.ToLower(getEnv("LOG_BACKEND", "std"))
	if cfg.LogBackend != "std" && cfg.LogBackend != "zap" {
		errs = append(errs, "LOG_BACKEND must be 'std' or 'zap'")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
