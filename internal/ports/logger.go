package ports

import "context"

// Logger is the leveled logging interface the rest of the bot depends on, so
// the concrete backend stays swappable.
type Logger interface {
	// Debug logs diagnostic detail, normally filtered out in production.
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	// Info logs routine operational events.
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	// Warn logs conditions that deserve attention but need no intervention.
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs a failure together with its error value.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
