package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"watchcaller/internal/domain"
	"watchcaller/internal/ports"
)

// PositionCommander is the slice of the position manager the chat commands use.
type PositionCommander interface {
	ActivePositions() []*domain.ManagedPosition
	Close(ctx context.Context, symbol string, reason domain.CloseReason) bool
}

const helpText = `📖 Commands:
/positions - Open positions
/trades [SYMBOL] - Recent closed trades
/pnl - Total realized PnL
/close SYMBOL - Close a position manually`

// EnableCommands turns on operator commands in the notify chat. Without it
// the bot only listens to source chats and sends notifications.
func (b *Bot) EnableCommands(positions PositionCommander, trades ports.TradeRepository) {
	b.positions = positions
	b.trades = trades
}

func (b *Bot) commandReply(ctx context.Context, msg *tgbotapi.Message) string {
	if b.positions == nil || b.trades == nil {
		return ""
	}
	switch strings.ToLower(msg.Command()) {
	case "start", "help":
		return helpText
	case "positions", "status":
		return b.positionsReply()
	case "trades":
		return b.tradesReply(ctx, strings.ToUpper(strings.TrimSpace(msg.CommandArguments())))
	case "pnl":
		return b.pnlReply(ctx)
	case "close":
		return b.closeReply(ctx, strings.ToUpper(strings.TrimSpace(msg.CommandArguments())))
	default:
		return "❓ Unknown command. Use /help"
	}
}

func (b *Bot) positionsReply() string {
	positions := b.positions.ActivePositions()
	if len(positions) == 0 {
		return "💼 No open positions"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "💼 %d open position(s)\n", len(positions))
	for _, pos := range positions {
		direction := "LONG"
		if pos.Position.Side == domain.SideShort {
			direction = "SHORT"
		}
		fmt.Fprintf(&sb, "%s %s %dx | entry %s | SL %s | TP %d/%d | PnL %.2f\n",
			direction, pos.Position.Symbol, pos.Position.Leverage,
			formatPrice(pos.Position.EntryPrice), formatPrice(pos.Position.StopLoss),
			pos.FilledTPCount(), len(pos.TakeProfits), pos.Position.UnrealizedPnL)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) tradesReply(ctx context.Context, symbol string) string {
	var (
		trades []*domain.Trade
		err    error
	)
	if symbol == "" {
		trades, err = b.trades.FindRecent(ctx, 10)
	} else {
		trades, err = b.trades.FindBySymbol(ctx, symbol, 10)
	}
	if err != nil {
		return fmt.Sprintf("⚠️ Failed to load trades: %v", err)
	}
	if len(trades) == 0 {
		return "📜 No recorded trades"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📜 Last %d trade(s)\n", len(trades))
	for _, trade := range trades {
		fmt.Fprintf(&sb, "%s %s | entry %s exit %s | PnL %.2f (%s)\n",
			strings.ToUpper(string(trade.Side)), trade.Symbol,
			formatPrice(trade.EntryPrice), formatPrice(trade.ExitPrice),
			trade.PNL, describeReason(trade.CloseReason))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) pnlReply(ctx context.Context) string {
	total, err := b.trades.TotalRealizedPnL(ctx)
	if err != nil {
		return fmt.Sprintf("⚠️ Failed to compute PnL: %v", err)
	}
	return fmt.Sprintf("💰 Total realized PnL: %.2f", total)
}

func (b *Bot) closeReply(ctx context.Context, symbol string) string {
	if symbol == "" {
		return "Usage: /close SYMBOL"
	}
	if !b.positions.Close(ctx, symbol, domain.CloseReasonManual) {
		return fmt.Sprintf("❓ No active position for %s", symbol)
	}
	return fmt.Sprintf("📕 %s closed manually", symbol)
}
