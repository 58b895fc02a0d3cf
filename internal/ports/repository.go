package ports

import (
	"context"

	"watchcaller/internal/domain"
)

// TradeRepository defines the interface for storing and retrieving completed trades.
type TradeRepository interface {
	// CreateTrade saves a new trade record and returns its assigned ID.
	CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error)
	// FindRecent retrieves the most recent trades, up to a limit.
	FindRecent(ctx context.Context, limit int) ([]*domain.Trade, error)
	// FindBySymbol retrieves the most recent trades for a symbol, up to a limit.
	FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error)
	// TotalRealizedPnL calculates the sum of PNL across all recorded trades.
	TotalRealizedPnL(ctx context.Context) (float64, error)
}
