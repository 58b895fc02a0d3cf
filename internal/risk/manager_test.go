package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestManager() *Manager {
	return NewManager(Config{
		DefaultLeverage:     20,
		HighLeverage:        75,
		HighLeverageCoins:   []string{"BTC", "ETH"},
		DefaultPositionSize: 20,
		MaxPositionSize:     1000,
		MinConfidence:       0.7,
	})
}

func TestLeverageFor(t *testing.T) {
	m := newTestManager()

	assert.Equal(t, 75, m.LeverageFor("BTC"))
	assert.Equal(t, 75, m.LeverageFor("btc"))
	assert.Equal(t, 75, m.LeverageFor("BTCUSDT"))
	assert.Equal(t, 75, m.LeverageFor("ETHUSD"))
	assert.Equal(t, 20, m.LeverageFor("PUMP"))
	assert.Equal(t, 20, m.LeverageFor("DOGE"))
}

func TestPositionSizeScalesWithLeverage(t *testing.T) {
	m := newTestManager()

	// Baseline leverage keeps the configured size.
	assert.InDelta(t, 20.0, m.PositionSize(20), 1e-9)
	// High leverage scales the size proportionally.
	assert.InDelta(t, 75.0, m.PositionSize(75), 1e-9)
}

func TestPositionSizeCapped(t *testing.T) {
	m := NewManager(Config{
		DefaultLeverage:     20,
		DefaultPositionSize: 500,
		MaxPositionSize:     100,
	})
	// Default exceeds the cap; the cap (scaled the same way) wins.
	assert.InDelta(t, 100.0, m.PositionSize(20), 1e-9)
}

func TestMeetsConfidence(t *testing.T) {
	m := newTestManager()

	assert.True(t, m.MeetsConfidence(0.7))
	assert.True(t, m.MeetsConfidence(0.95))
	assert.False(t, m.MeetsConfidence(0.69))
}
