package telegram

import (
	"context"
	"fmt"
	"strings"

	"watchcaller/internal/domain"
	"watchcaller/internal/ports"
)

var _ ports.Notifier = (*Bot)(nil)

// SignalOpened announces that orders for a new signal were submitted.
func (b *Bot) SignalOpened(ctx context.Context, pos *domain.ManagedPosition) {
	b.send(ctx, formatSignalOpened(pos))
}

// SignalFilled announces an entry order fill.
func (b *Bot) SignalFilled(ctx context.Context, symbol, orderID string, fillPrice float64) {
	b.send(ctx, fmt.Sprintf("✅ %s entry filled at %s (order %s)", symbol, formatPrice(fillPrice), orderID))
}

// TPHit announces a take-profit level fill.
func (b *Bot) TPHit(ctx context.Context, symbol string, level int, fillPrice float64, filledCount, totalLevels int) {
	b.send(ctx, fmt.Sprintf("🎯 %s TP%d hit at %s (%d/%d targets filled)", symbol, level, formatPrice(fillPrice), filledCount, totalLevels))
}

// SLHit announces a stop-loss fill.
func (b *Bot) SLHit(ctx context.Context, symbol string, fillPrice float64) {
	b.send(ctx, fmt.Sprintf("🛑 %s stop-loss hit at %s", symbol, formatPrice(fillPrice)))
}

// PositionClosed announces that a managed position was closed.
func (b *Bot) PositionClosed(ctx context.Context, symbol string, reason domain.CloseReason) {
	b.send(ctx, fmt.Sprintf("📕 %s position closed (%s)", symbol, describeReason(reason)))
}

// SignalSkipped announces that a signal was rejected before execution.
func (b *Bot) SignalSkipped(ctx context.Context, coin, reason string) {
	b.send(ctx, fmt.Sprintf("⏭ Skipped %s signal: %s", coin, reason))
}

// ErrorOccurred reports an operational error with its context.
func (b *Bot) ErrorOccurred(ctx context.Context, message, errContext string) {
	b.send(ctx, fmt.Sprintf("⚠️ Error in %s: %s", errContext, message))
}

func formatSignalOpened(pos *domain.ManagedPosition) string {
	var sb strings.Builder
	direction := "LONG"
	if pos.Position.Side == domain.SideShort {
		direction = "SHORT"
	}
	fmt.Fprintf(&sb, "📈 Opened %s %s %dx\n", direction, pos.Position.Symbol, pos.Position.Leverage)
	fmt.Fprintf(&sb, "Entry: %s | SL: %s | Size: %s\n", formatPrice(pos.Position.EntryPrice), formatPrice(pos.Position.StopLoss), formatQty(pos.Position.Size))
	for _, tp := range pos.TakeProfits {
		status := ""
		if tp.OrderID == "" {
			status = " (order failed)"
		}
		fmt.Fprintf(&sb, "TP%d: %s (%.0f%%)%s\n", tp.Level, formatPrice(tp.Price), tp.Percentage, status)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func describeReason(reason domain.CloseReason) string {
	switch reason {
	case domain.CloseReasonStopLoss:
		return "stop-loss"
	case domain.CloseReasonTakeProfit:
		return "all targets filled"
	case domain.CloseReasonExternal:
		return "closed on exchange"
	case domain.CloseReasonShutdown:
		return "shutdown"
	default:
		return string(reason)
	}
}

func formatPrice(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

func formatQty(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}
