package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"watchcaller/internal/domain"
)

func TestFormatSignalOpened(t *testing.T) {
	pos := &domain.ManagedPosition{
		Position: domain.Position{
			Symbol:     "BTCUSDT",
			Side:       domain.SideLong,
			Size:       0.5,
			EntryPrice: 50000,
			StopLoss:   48500,
			Leverage:   75,
		},
		TakeProfits: []*domain.TPAllocation{
			{Level: 1, Price: 52000, Percentage: 30, Quantity: 0.15, OrderID: "1"},
			{Level: 2, Price: 54000, Percentage: 40, Quantity: 0.2, OrderID: "2"},
			{Level: 3, Price: 56000, Percentage: 30, Quantity: 0.15}, // submission failed
		},
	}

	text := formatSignalOpened(pos)
	assert.Contains(t, text, "LONG BTCUSDT 75x")
	assert.Contains(t, text, "Entry: 50000 | SL: 48500 | Size: 0.5")
	assert.Contains(t, text, "TP1: 52000 (30%)")
	assert.Contains(t, text, "TP3: 56000 (30%) (order failed)")
}

func TestFormatSignalOpenedShort(t *testing.T) {
	pos := &domain.ManagedPosition{
		Position: domain.Position{Symbol: "ETHUSDT", Side: domain.SideShort, Leverage: 20},
	}
	assert.Contains(t, formatSignalOpened(pos), "SHORT ETHUSDT 20x")
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "99.9", formatPrice(99.9))
	assert.Equal(t, "95.7143", formatPrice(95.71428571))
	assert.Equal(t, "50000", formatPrice(50000))
}

func TestDescribeReason(t *testing.T) {
	assert.Equal(t, "stop-loss", describeReason(domain.CloseReasonStopLoss))
	assert.Equal(t, "all targets filled", describeReason(domain.CloseReasonTakeProfit))
	assert.Equal(t, "closed on exchange", describeReason(domain.CloseReasonExternal))
	assert.Equal(t, "manual", describeReason(domain.CloseReasonManual))
}
