package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchcaller/internal/adapters/logger"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BINANCE_API_KEY", "key")
	t.Setenv("BINANCE_API_SECRET", "secret")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")
	t.Setenv("TELEGRAM_SOURCE_CHAT_IDS", "-1001234567890")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsTestnet) // safety default
	assert.Equal(t, 5, cfg.MaxPositions)
	assert.Equal(t, "USDT", cfg.QuoteCurrency)
	assert.InDelta(t, 100.0, cfg.MinAvailableBalance, 1e-9)
	assert.InDelta(t, 20.0, cfg.DefaultPositionSize, 1e-9)
	assert.Equal(t, 20, cfg.DefaultLeverage)
	assert.Equal(t, 75, cfg.HighLeverage)
	assert.Equal(t, []string{"BTC", "ETH"}, cfg.HighLeverageCoins)
	assert.True(t, cfg.MultiTPEnabled)
	assert.True(t, cfg.AutoBreakeven)
	assert.Equal(t, 30*time.Second, cfg.ReconcileInterval)
	assert.Equal(t, 15*time.Second, cfg.TPCheckInterval)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 24*time.Hour, cfg.PositionRetention)
	assert.Equal(t, []int64{-1001234567890}, cfg.TelegramSourceChatIDs)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
}

func TestLoadConfigCollectsAllErrors(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "")
	t.Setenv("BINANCE_API_SECRET", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_SOURCE_CHAT_IDS", "")
	t.Setenv("MAX_POSITIONS", "-1")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BINANCE_API_KEY")
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
	assert.Contains(t, err.Error(), "MAX_POSITIONS")
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MULTI_TP_ENABLED", "false")
	t.Setenv("HIGH_LEVERAGE_COINS", "BTC, SOL ,DOGE")
	t.Setenv("TELEGRAM_SOURCE_CHAT_IDS", "-100111, -100222")
	t.Setenv("MIN_CONFIDENCE", "0.85")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.False(t, cfg.MultiTPEnabled)
	assert.Equal(t, []string{"BTC", "SOL", "DOGE"}, cfg.HighLeverageCoins)
	assert.Equal(t, []int64{-100111, -100222}, cfg.TelegramSourceChatIDs)
	assert.InDelta(t, 0.85, cfg.MinConfidence, 1e-9)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)
}

func TestLoadConfigRejectsBadNumbers(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MIN_CONFIDENCE", "1.5")
	t.Setenv("TELEGRAM_SOURCE_CHAT_IDS", "not-a-number")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MIN_CONFIDENCE")
	assert.Contains(t, err.Error(), "TELEGRAM_SOURCE_CHAT_IDS")
}
