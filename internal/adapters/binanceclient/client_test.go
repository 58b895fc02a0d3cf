package binanceclient

import (
	"testing"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchcaller/internal/domain"
)

func newTestClient() *Client {
	return &Client{
		quoteCurrency:     "USDT",
		quantityPrecision: defaultQuantityPrecision,
		pricePrecision:    defaultPricePrecision,
	}
}

func TestFormatSymbol(t *testing.T) {
	c := newTestClient()

	assert.Equal(t, "BTCUSDT", c.FormatSymbol("BTC"))
	assert.Equal(t, "BTCUSDT", c.FormatSymbol("btc"))
	assert.Equal(t, "BTCUSDT", c.FormatSymbol(" BTCUSDT "))
	assert.Equal(t, "1000PEPEUSDT", c.FormatSymbol("1000PEPE"))
}

func TestFormatQuantityRoundsDown(t *testing.T) {
	c := newTestClient()

	// Rounding up could exceed the available margin.
	assert.Equal(t, "0.333", c.formatQuantity(1.0/3.0))
	assert.Equal(t, "0.001", c.formatQuantity(0.0019))
	assert.Equal(t, "10", c.formatQuantity(10))
}

func TestFormatPrice(t *testing.T) {
	c := newTestClient()

	assert.Equal(t, "99.9", c.formatPrice(99.9))
	assert.Equal(t, "95.7143", c.formatPrice(95.71428571))
}

func TestParseOrderID(t *testing.T) {
	id, err := parseOrderID("123456789")
	require.NoError(t, err)
	assert.Equal(t, int64(123456789), id)

	_, err = parseOrderID("not-a-number")
	assert.Error(t, err)
}

func TestTranslateStatus(t *testing.T) {
	tests := []struct {
		in   futures.OrderStatusType
		want domain.OrderStatus
	}{
		{futures.OrderStatusTypeNew, domain.OrderStatusOpen},
		{futures.OrderStatusTypePartiallyFilled, domain.OrderStatusPartiallyFilled},
		{futures.OrderStatusTypeFilled, domain.OrderStatusFilled},
		{futures.OrderStatusTypeCanceled, domain.OrderStatusCancelled},
		{futures.OrderStatusTypeExpired, domain.OrderStatusCancelled},
		{futures.OrderStatusTypeRejected, domain.OrderStatusRejected},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, translateStatus(tt.in), string(tt.in))
	}
}
