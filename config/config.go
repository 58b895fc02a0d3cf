// Package config loads the application configuration from environment
// variables, optionally seeded from a .env file. Validation does not
// short-circuit: every broken setting is reported in one error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"watchcaller/internal/adapters/logger"
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey            string
	SecretKey         string
	IsTestnet         bool
	QuantityPrecision int
	PricePrecision    int

	// Gemini parser
	GeminiAPIKey  string
	GeminiModel   string
	GeminiTimeout time.Duration

	// Telegram
	TelegramToken         string
	TelegramNotifyChatID  int64
	TelegramSourceChatIDs []int64

	// Trading
	MaxPositions        int
	QuoteCurrency       string
	MinAvailableBalance float64
	DefaultPositionSize float64 // Quote-currency size at 20x baseline
	MaxPositionSize     float64
	DefaultLeverage     int
	HighLeverage        int
	HighLeverageCoins   []string
	MinConfidence       float64
	MultiTPEnabled      bool
	AutoBreakeven       bool
	MaxTPLevels         int
	MinTPPercentage     float64

	// Loop intervals
	ReconcileInterval time.Duration
	TPCheckInterval   time.Duration
	CleanupInterval   time.Duration
	PositionRetention time.Duration

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars).
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety
	if cfg.APIKey == "" {
		errs = append(errs, "BINANCE_API_KEY must be set")
	}
	if cfg.SecretKey == "" {
		errs = append(errs, "BINANCE_API_SECRET must be set")
	}
	cfg.QuantityPrecision = getEnvAsInt("QUANTITY_PRECISION", 3)
	cfg.PricePrecision = getEnvAsInt("PRICE_PRECISION", 4)
	if cfg.QuantityPrecision <= 0 || cfg.PricePrecision <= 0 {
		errs = append(errs, "QUANTITY_PRECISION and PRICE_PRECISION must be positive")
	}

	// Gemini parser
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", "")
	if cfg.GeminiAPIKey == "" {
		errs = append(errs, "GEMINI_API_KEY must be set")
	}
	cfg.GeminiModel = getEnv("GEMINI_MODEL", "gemini-2.0-flash")
	geminiTimeoutSeconds := getEnvAsInt("GEMINI_TIMEOUT_SECONDS", 30)
	if geminiTimeoutSeconds <= 0 {
		errs = append(errs, "GEMINI_TIMEOUT_SECONDS must be positive")
	}
	cfg.GeminiTimeout = time.Duration(geminiTimeoutSeconds) * time.Second

	// Telegram
	cfg.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	if cfg.TelegramToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN must be set")
	}
	cfg.TelegramNotifyChatID, err = getEnvAsInt64("TELEGRAM_NOTIFY_CHAT_ID", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TELEGRAM_NOTIFY_CHAT_ID: %v", err))
	}
	cfg.TelegramSourceChatIDs, err = getEnvAsInt64List("TELEGRAM_SOURCE_CHAT_IDS")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TELEGRAM_SOURCE_CHAT_IDS: %v", err))
	} else if len(cfg.TelegramSourceChatIDs) == 0 {
		errs = append(errs, "TELEGRAM_SOURCE_CHAT_IDS must list at least one chat")
	}

	// Trading
	cfg.MaxPositions = getEnvAsInt("MAX_POSITIONS", 5)
	if cfg.MaxPositions <= 0 {
		errs = append(errs, "MAX_POSITIONS must be positive")
	}
	cfg.QuoteCurrency = strings.ToUpper(getEnv("QUOTE_CURRENCY", "USDT"))

	cfg.MinAvailableBalance, err = getEnvAsFloatRequired("MIN_AVAILABLE_BALANCE", 100.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_AVAILABLE_BALANCE: %v", err))
	} else if cfg.MinAvailableBalance < 0 {
		errs = append(errs, "MIN_AVAILABLE_BALANCE cannot be negative")
	}

	cfg.DefaultPositionSize, err = getEnvAsFloatRequired("DEFAULT_POSITION_SIZE", 20.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DEFAULT_POSITION_SIZE: %v", err))
	} else if cfg.DefaultPositionSize <= 0 {
		errs = append(errs, "DEFAULT_POSITION_SIZE must be positive")
	}

	cfg.MaxPositionSize, err = getEnvAsFloatRequired("MAX_POSITION_SIZE", 1000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_POSITION_SIZE: %v", err))
	} else if cfg.MaxPositionSize <= 0 {
		errs = append(errs, "MAX_POSITION_SIZE must be positive")
	}
	if cfg.DefaultPositionSize > cfg.MaxPositionSize {
		errs = append(errs, "DEFAULT_POSITION_SIZE must not exceed MAX_POSITION_SIZE")
	}

	cfg.DefaultLeverage = getEnvAsInt("DEFAULT_LEVERAGE", 20)
	cfg.HighLeverage = getEnvAsInt("HIGH_LEVERAGE", 75)
	if cfg.DefaultLeverage <= 0 || cfg.HighLeverage <= 0 {
		errs = append(errs, "DEFAULT_LEVERAGE and HIGH_LEVERAGE must be positive")
	}
	cfg.HighLeverageCoins = getEnvAsList("HIGH_LEVERAGE_COINS", "BTC,ETH")

	cfg.MinConfidence, err = getEnvAsFloatRequired("MIN_CONFIDENCE", 0.7)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_CONFIDENCE: %v", err))
	} else if cfg.MinConfidence < 0 || cfg.MinConfidence > 1 {
		errs = append(errs, "MIN_CONFIDENCE must be between 0 and 1")
	}

	cfg.MultiTPEnabled = getEnvAsBool("MULTI_TP_ENABLED", true)
	cfg.AutoBreakeven = getEnvAsBool("AUTO_BREAKEVEN", true)
	cfg.MaxTPLevels = getEnvAsInt("MAX_TP_LEVELS", 5)
	if cfg.MaxTPLevels <= 0 {
		errs = append(errs, "MAX_TP_LEVELS must be positive")
	}
	cfg.MinTPPercentage = getEnvAsFloat("MIN_TP_PERCENTAGE", 5.0)
	if cfg.MinTPPercentage < 0 || cfg.MinTPPercentage > 100 {
		errs = append(errs, "MIN_TP_PERCENTAGE must be between 0 and 100")
	}

	// Loop intervals
	reconcileSeconds := getEnvAsInt("RECONCILE_INTERVAL_SECONDS", 30)
	tpCheckSeconds := getEnvAsInt("TP_CHECK_INTERVAL_SECONDS", 15)
	cleanupSeconds := getEnvAsInt("CLEANUP_INTERVAL_SECONDS", 3600)
	retentionHours := getEnvAsInt("POSITION_RETENTION_HOURS", 24)
	if reconcileSeconds <= 0 || tpCheckSeconds <= 0 || cleanupSeconds <= 0 || retentionHours <= 0 {
		errs = append(errs, "loop intervals and retention must be positive")
	}
	cfg.ReconcileInterval = time.Duration(reconcileSeconds) * time.Second
	cfg.TPCheckInterval = time.Duration(tpCheckSeconds) * time.Second
	cfg.CleanupInterval = time.Duration(cleanupSeconds) * time.Second
	cfg.PositionRetention = time.Duration(retentionHours) * time.Hour

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/watchcaller.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))

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

func getEnvAsInt64(key string, defaultValue int64) (int64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsInt64List(key string) ([]int64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil, nil
	}
	parts := strings.Split(valueStr, ",")
	values := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer value '%s' in key %s: %w", part, key, err)
		}
		values = append(values, value)
	}
	return values, nil
}

func getEnvAsList(key, defaultValue string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}
	return values
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
