// Package app wires the long-running service: the inbound message loop and
// the periodic reconciliation, take-profit and cleanup tickers.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"watchcaller/internal/domain"
	"watchcaller/internal/ports"
)

// MessageSource delivers raw messages from monitored chats. Listen blocks
// until the context is cancelled.
type MessageSource interface {
	Listen(ctx context.Context, handler func(ctx context.Context, text, source string))
}

// MessageHandler runs one raw message through the signal pipeline.
type MessageHandler interface {
	HandleMessage(ctx context.Context, text, source string) (*domain.ManagedPosition, error)
}

// PositionMaintainer is the periodic-maintenance slice of the position manager.
type PositionMaintainer interface {
	Reconcile(ctx context.Context)
	CheckTPFills(ctx context.Context) map[string][]int
	CleanupInactive(ctx context.Context) int
}

// Config holds the service loop intervals.
type Config struct {
	ReconcileInterval time.Duration // Order/position reconciliation cadence
	TPCheckInterval   time.Duration // Take-profit fill scan cadence
	CleanupInterval   time.Duration // Closed-position cleanup cadence
}

// Service owns the process lifecycle: it connects the exchange, starts the
// message loop and drives the maintenance tickers until the context ends.
type Service struct {
	cfg        Config
	logger     ports.Logger
	exchange   ports.ExchangeClient
	maintainer PositionMaintainer
	handler    MessageHandler
	source     MessageSource
}

// New creates the service.
func New(cfg Config, logger ports.Logger, exchange ports.ExchangeClient, maintainer PositionMaintainer, handler MessageHandler, source MessageSource) (*Service, error) {
	if logger == nil || exchange == nil || maintainer == nil || handler == nil || source == nil {
		return nil, fmt.Errorf("missing required dependencies for service")
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = 30 * time.Second
	}
	if cfg.TPCheckInterval <= 0 {
		cfg.TPCheckInterval = 15 * time.Second
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	return &Service{
		cfg:        cfg,
		logger:     logger,
		exchange:   exchange,
		maintainer: maintainer,
		handler:    handler,
		source:     source,
	}, nil
}

// Start runs the service until the context is cancelled. Open exchange
// orders are deliberately left standing on shutdown: stop-losses must
// survive a restart of this process.
func (s *Service) Start(ctx context.Context) error {
	op := "ServiceStart"

	if err := s.exchange.Connect(ctx); err != nil {
		return fmt.Errorf("exchange connection failed: %w", err)
	}
	defer func() {
		if err := s.exchange.Disconnect(context.Background()); err != nil {
			s.logger.Warn(ctx, op+": disconnect failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.source.Listen(ctx, func(ctx context.Context, text, source string) {
			if _, err := s.handler.HandleMessage(ctx, text, source); err != nil {
				s.logger.Error(ctx, err, op+": message handling failed", map[string]interface{}{"source": source})
			}
		})
	}()

	// Converge with the exchange immediately; a restart may have missed
	// fills and cancellations.
	s.maintainer.Reconcile(ctx)

	reconcileTicker := time.NewTicker(s.cfg.ReconcileInterval)
	defer reconcileTicker.Stop()
	tpTicker := time.NewTicker(s.cfg.TPCheckInterval)
	defer tpTicker.Stop()
	cleanupTicker := time.NewTicker(s.cfg.CleanupInterval)
	defer cleanupTicker.Stop()

	s.logger.Info(ctx, op+": service started", map[string]interface{}{
		"reconcileInterval": s.cfg.ReconcileInterval.String(),
		"tpCheckInterval":   s.cfg.TPCheckInterval.String(),
		"cleanupInterval":   s.cfg.CleanupInterval.String(),
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, op+": shutting down")
			wg.Wait()
			return nil
		case <-reconcileTicker.C:
			s.maintainer.Reconcile(ctx)
		case <-tpTicker.C:
			if filled := s.maintainer.CheckTPFills(ctx); len(filled) > 0 {
				s.logger.Info(ctx, op+": take-profit fills observed", map[string]interface{}{"fills": filled})
			}
		case <-cleanupTicker.C:
			if removed := s.maintainer.CleanupInactive(ctx); removed > 0 {
				s.logger.Info(ctx, op+": cleaned up closed positions", map[string]interface{}{"removed": removed})
			}
		}
	}
}
