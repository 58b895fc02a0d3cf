// Package ingest turns raw channel messages into opened positions: parse,
// confidence gate, validation, sizing, then hand-off to the position manager.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"watchcaller/internal/domain"
	"watchcaller/internal/ports"
	"watchcaller/internal/risk"
	"watchcaller/internal/validator"
)

// PositionOpener is the slice of the position manager the handler needs.
type PositionOpener interface {
	Open(ctx context.Context, sig *domain.TradingSignal, size float64) (*domain.ManagedPosition, error)
}

// Config holds the ingestion pipeline's policy knobs.
type Config struct {
	MaxTPLevels     int     // Validation cap on take-profit levels
	MinTPPercentage float64 // Validation floor on per-level percentage
	MultiTPEnabled  bool    // When false, signals are reduced to their first TP
}

// Handler is the ingestion pipeline for one message source.
type Handler struct {
	cfg      Config
	logger   ports.Logger
	parser   ports.SignalParser
	notifier ports.Notifier
	risk     *risk.Manager
	opener   PositionOpener
}

// NewHandler creates an ingestion handler.
func NewHandler(cfg Config, logger ports.Logger, parser ports.SignalParser, notifier ports.Notifier, riskMgr *risk.Manager, opener PositionOpener) (*Handler, error) {
	if logger == nil || parser == nil || notifier == nil || riskMgr == nil || opener == nil {
		return nil, fmt.Errorf("missing required dependencies for ingest handler")
	}
	return &Handler{
		cfg:      cfg,
		logger:   logger,
		parser:   parser,
		notifier: notifier,
		risk:     riskMgr,
		opener:   opener,
	}, nil
}

// HandleMessage runs one raw message through the pipeline. A message that
// yields no trade (chatter, parse failure, validation or admission rejection)
// returns (nil, nil); only infrastructure failures return an error. Each
// stage's rejection is logged and, where a human should know, pushed through
// the notifier.
func (h *Handler) HandleMessage(ctx context.Context, text, source string) (*domain.ManagedPosition, error) {
	op := "HandleMessage"

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	result, err := h.parser.Parse(ctx, text, source)
	if err != nil {
		h.logger.Error(ctx, err, op+": parser unavailable", map[string]interface{}{"source": source})
		return nil, fmt.Errorf("parse failed: %w", err)
	}

	switch result.Status {
	case ports.ParseNoSignal:
		h.logger.Debug(ctx, op+": no signal in message", map[string]interface{}{"source": source})
		return nil, nil
	case ports.ParseFailed:
		h.logger.Warn(ctx, op+": parse failed", map[string]interface{}{"source": source, "error": result.ErrorMessage})
		return nil, nil
	}
	if !result.HasSignal() {
		h.logger.Warn(ctx, op+": success status without signal payload", map[string]interface{}{"source": source})
		return nil, nil
	}

	sig := result.Signal
	sig.Confidence = result.Confidence
	sig.Source = source
	sig.RawMessage = text
	h.logger.Info(ctx, op+": signal parsed", map[string]interface{}{
		"coin":       sig.Coin,
		"side":       sig.Side,
		"tpLevels":   sig.TPCount(),
		"confidence": result.Confidence,
	})

	if !h.risk.MeetsConfidence(result.Confidence) {
		reason := fmt.Sprintf("confidence %.2f below threshold", result.Confidence)
		h.logger.Warn(ctx, op+": signal rejected", map[string]interface{}{"coin": sig.Coin, "reason": reason})
		h.notifier.SignalSkipped(ctx, sig.Coin, reason)
		return nil, nil
	}

	if !h.cfg.MultiTPEnabled && sig.IsMultiTP() {
		// Multi-TP disabled: trade the first target with the full size.
		h.logger.Info(ctx, op+": multi-TP disabled, reducing to first target", map[string]interface{}{"coin": sig.Coin, "dropped": sig.TPCount() - 1})
		sig.TakeProfits = sig.TakeProfits[:1]
		sig.TPWeights = nil
	}

	limits := validator.Limits{MaxTPLevels: h.cfg.MaxTPLevels, MinTPPercentage: h.cfg.MinTPPercentage}
	if violations := validator.Validate(sig, limits); len(violations) > 0 {
		reason := strings.Join(violations, "; ")
		h.logger.Warn(ctx, op+": signal failed validation", map[string]interface{}{"coin": sig.Coin, "violations": violations})
		h.notifier.SignalSkipped(ctx, sig.Coin, reason)
		return nil, nil
	}

	leverage := h.risk.LeverageFor(sig.Coin)
	size := h.risk.PositionSize(leverage)
	return h.opener.Open(ctx, sig, size)
}
