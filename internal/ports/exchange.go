package ports

import (
	"context"

	"watchcaller/internal/domain"
)

// Balance represents the account balance for a single currency.
type Balance struct {
	Currency string
	Free     float64 // Available for new orders
	Used     float64 // Locked in open orders / margin
	Total    float64
}

// ExchangeClient defines the gateway to a derivatives exchange. It is a
// stateless collaborator: the exchange itself is the source of truth for
// orders and positions, and the position manager reconciles against it.
//
// Implementations cover the full interface; there is no runtime capability
// probing. An adapter for a venue without native stop-loss replacement
// documents ReplaceStopLoss as cancel-and-recreate or returns
// ErrInvalidRequest.
type ExchangeClient interface {
	// Connect verifies connectivity and credentials. Fatal at startup on error.
	Connect(ctx context.Context) error

	// Disconnect releases any resources held by the adapter.
	Disconnect(ctx context.Context) error

	// GetBalance retrieves the balance for a specific currency (e.g., "USDT").
	GetBalance(ctx context.Context, currency string) (*Balance, error)

	// CreateOrder submits an order and returns it with the exchange-assigned
	// ID and initial status populated.
	CreateOrder(ctx context.Context, order *domain.ExchangeOrder) (*domain.ExchangeOrder, error)

	// CancelOrder cancels an open order. Returns ErrOrderNotFound if the
	// exchange no longer knows the order.
	CancelOrder(ctx context.Context, symbol, orderID string) error

	// GetOrderStatus queries the current state of an order.
	// Returns (nil, nil) when the exchange reports the order as not found;
	// absence is a first-class outcome, not an error.
	GetOrderStatus(ctx context.Context, symbol, orderID string) (*domain.ExchangeOrder, error)

	// GetPositions returns the open positions, optionally filtered by symbol
	// (empty string returns all). A symbol with no open position yields an
	// empty slice.
	GetPositions(ctx context.Context, symbol string) ([]*domain.Position, error)

	// GetTicker retrieves the last traded price for a symbol.
	GetTicker(ctx context.Context, symbol string) (float64, error)

	// FormatSymbol converts a base coin (e.g., "BTC") into the exchange-native
	// symbol string (e.g., "BTCUSDT").
	FormatSymbol(coin string) string

	// SetLeverage sets the leverage for a symbol. Best-effort for callers.
	SetLeverage(ctx context.Context, symbol string, leverage int) error

	// ReplaceStopLoss cancels the identified stop order and places a new
	// stop-loss at the given trigger price for the given quantity. Returns
	// the replacement order.
	ReplaceStopLoss(ctx context.Context, symbol, oldOrderID string, side domain.OrderSide, quantity, stopPrice float64) (*domain.ExchangeOrder, error)
}
