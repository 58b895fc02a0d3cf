package ports

import (
	"context"

	"watchcaller/internal/domain"
)

// Notifier delivers outbound status messages. All methods are
// fire-and-forget: implementations log delivery failures and never
// propagate them to callers.
type Notifier interface {
	// SignalOpened announces that orders for a new signal were submitted.
	SignalOpened(ctx context.Context, pos *domain.ManagedPosition)
	// SignalFilled announces an entry order fill.
	SignalFilled(ctx context.Context, symbol, orderID string, fillPrice float64)
	// TPHit announces a take-profit level fill.
	TPHit(ctx context.Context, symbol string, level int, fillPrice float64, filledCount, totalLevels int)
	// SLHit announces a stop-loss fill.
	SLHit(ctx context.Context, symbol string, fillPrice float64)
	// PositionClosed announces that a managed position was closed.
	PositionClosed(ctx context.Context, symbol string, reason domain.CloseReason)
	// SignalSkipped announces that a signal was rejected before execution.
	SignalSkipped(ctx context.Context, coin, reason string)
	// ErrorOccurred reports an operational error with its context.
	ErrorOccurred(ctx context.Context, message, errContext string)
}
