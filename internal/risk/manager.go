// Package risk holds the sizing and leverage policy applied before a signal
// is handed to the position manager.
package risk

import (
	"math"
	"strings"
)

// Config holds configuration for risk management.
type Config struct {
	DefaultLeverage     int
	HighLeverage        int
	HighLeverageCoins   []string // Coins traded at HighLeverage (e.g., BTC, ETH)
	DefaultPositionSize float64  // Quote-currency size at baseline leverage
	MaxPositionSize     float64  // Hard cap on quote-currency size
	MinConfidence       float64  // Minimum parser confidence to trade
}

// Manager implements leverage selection, position sizing and the confidence gate.
type Manager struct {
	config   Config
	highLevg map[string]struct{}
}

// NewManager creates a new risk manager instance.
func NewManager(config Config) *Manager {
	highLevg := make(map[string]struct{}, len(config.HighLeverageCoins))
	for _, coin := range config.HighLeverageCoins {
		highLevg[normalizeCoin(coin)] = struct{}{}
	}
	return &Manager{config: config, highLevg: highLevg}
}

// LeverageFor returns the leverage to use for a coin: the high-leverage tier
// for configured majors, the default otherwise.
func (m *Manager) LeverageFor(coin string) int {
	if _, ok := m.highLevg[normalizeCoin(coin)]; ok {
		return m.config.HighLeverage
	}
	return m.config.DefaultLeverage
}

// PositionSize returns the quote-currency size for a new position at the
// given leverage. Sizes are configured at the baseline 20x and scale
// linearly with the leverage actually used, capped at the maximum.
func (m *Manager) PositionSize(leverage int) float64 {
	scaled := m.config.DefaultPositionSize / 20.0 * float64(leverage)
	capped := m.config.MaxPositionSize / 20.0 * float64(leverage)
	return math.Min(scaled, capped)
}

// MeetsConfidence reports whether a parse confidence clears the trading threshold.
func (m *Manager) MeetsConfidence(confidence float64) bool {
	return confidence >= m.config.MinConfidence
}

// normalizeCoin strips quote suffixes so "BTCUSDT" and "BTC" match the same
// leverage entry.
func normalizeCoin(coin string) string {
	c := strings.ToUpper(strings.TrimSpace(coin))
	c = strings.TrimSuffix(c, "USDT")
	c = strings.TrimSuffix(c, "USD")
	return c
}
