// Package telegram adapts the Telegram Bot API for both directions: it
// listens to configured source chats for raw signal messages, implements
// ports.Notifier for outbound status updates and answers operator commands
// in the notify chat.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"watchcaller/internal/ports"
)

const defaultUpdateTimeout = 30 // long-poll seconds

// Config holds configuration for the Telegram adapter.
type Config struct {
	Token         string
	NotifyChatID  int64   // Destination for outbound notifications
	SourceChatIDs []int64 // Chats whose messages feed the signal pipeline
	UpdateTimeout int     // Long-poll timeout in seconds
	Logger        ports.Logger
}

// Bot wraps the Telegram Bot API client.
type Bot struct {
	api           *tgbotapi.BotAPI
	notifyChatID  int64
	sourceChats   map[int64]struct{}
	updateTimeout int
	logger        ports.Logger

	// Operator command dependencies, set via EnableCommands.
	positions PositionCommander
	trades    ports.TradeRepository
}

// New creates a Telegram adapter and verifies the token by fetching the bot
// identity.
func New(cfg Config) (*Bot, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Telegram bot")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("bot token is required for Telegram bot")
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize Telegram bot: %w", err)
	}

	sources := make(map[int64]struct{}, len(cfg.SourceChatIDs))
	for _, id := range cfg.SourceChatIDs {
		sources[id] = struct{}{}
	}
	timeout := cfg.UpdateTimeout
	if timeout <= 0 {
		timeout = defaultUpdateTimeout
	}

	cfg.Logger.Info(context.Background(), "Telegram bot authorized", map[string]interface{}{
		"username":    api.Self.UserName,
		"sourceChats": len(sources),
	})
	return &Bot{
		api:           api,
		notifyChatID:  cfg.NotifyChatID,
		sourceChats:   sources,
		updateTimeout: timeout,
		logger:        cfg.Logger,
	}, nil
}

// Listen consumes updates until the context is cancelled, delivering text
// from monitored source chats to the handler. Blocks; run in its own
// goroutine. Messages from unmonitored chats are dropped silently.
func (b *Bot) Listen(ctx context.Context, handler func(ctx context.Context, text, source string)) {
	op := "Listen"

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = b.updateTimeout
	updateCfg.AllowedUpdates = []string{"message", "channel_post"}
	updates := b.api.GetUpdatesChan(updateCfg)

	b.logger.Info(ctx, op+": consuming Telegram updates", map[string]interface{}{"sourceChats": len(b.sourceChats)})
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info(ctx, op+": update loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				b.logger.Warn(ctx, op+": update channel closed")
				return
			}
			msg := update.Message
			if msg == nil {
				msg = update.ChannelPost
			}
			if msg == nil || msg.Text == "" {
				continue
			}
			if msg.IsCommand() && b.notifyChatID != 0 && msg.Chat.ID == b.notifyChatID {
				if reply := b.commandReply(ctx, msg); reply != "" {
					b.send(ctx, reply)
				}
				continue
			}
			if _, monitored := b.sourceChats[msg.Chat.ID]; !monitored {
				continue
			}
			source := msg.Chat.Title
			if source == "" {
				source = fmt.Sprintf("chat:%d", msg.Chat.ID)
			}
			handler(ctx, msg.Text, source)
		}
	}
}

// send delivers one notification. Failures are logged and swallowed: a
// notification must never affect trading flow.
func (b *Bot) send(ctx context.Context, text string) {
	if b.notifyChatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(b.notifyChatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error(ctx, err, "failed to send Telegram notification", map[string]interface{}{"chatID": b.notifyChatID})
	}
}
