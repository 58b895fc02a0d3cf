// Package position implements the stateful core of the bot: it owns the set
// of managed positions, drives order placement through the exchange gateway,
// runs periodic reconciliation, tracks take-profit fill progress and applies
// breakeven stop adjustment.
package position

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"watchcaller/internal/domain"
	"watchcaller/internal/planner"
	"watchcaller/internal/ports"
	"watchcaller/internal/risk"
)

// Config holds the position manager's policy knobs.
type Config struct {
	MaxPositions    int           // Maximum concurrently active positions
	QuoteCurrency   string        // Quote currency for balance checks (e.g., "USDT")
	MinQuoteBalance float64       // Admission floor on free quote balance
	AutoBreakeven   bool          // Move stop to breakeven after the first TP fill
	Retention       time.Duration // How long closed positions linger before cleanup
}

// Manager owns the collection of managed positions, keyed by exchange symbol.
// All mutation of a symbol's aggregate is serialized by a per-symbol lock;
// different symbols proceed fully in parallel.
type Manager struct {
	cfg      Config
	logger   ports.Logger
	exchange ports.ExchangeClient
	notifier ports.Notifier
	trades   ports.TradeRepository
	risk     *risk.Manager

	mu        sync.RWMutex // Protects positions and locks maps (membership only)
	positions map[string]*domain.ManagedPosition
	locks     map[string]*sync.Mutex
}

// NewManager creates a position manager. The trade repository may be nil;
// closed positions are then not recorded.
func NewManager(cfg Config, logger ports.Logger, exchange ports.ExchangeClient, notifier ports.Notifier, trades ports.TradeRepository, riskMgr *risk.Manager) (*Manager, error) {
	if logger == nil || exchange == nil || notifier == nil || riskMgr == nil {
		return nil, fmt.Errorf("missing required dependencies for position manager")
	}
	if cfg.MaxPositions <= 0 {
		return nil, fmt.Errorf("MaxPositions must be positive")
	}
	if cfg.QuoteCurrency == "" {
		cfg.QuoteCurrency = "USDT"
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	return &Manager{
		cfg:       cfg,
		logger:    logger,
		exchange:  exchange,
		notifier:  notifier,
		trades:    trades,
		risk:      riskMgr,
		positions: make(map[string]*domain.ManagedPosition),
		locks:     make(map[string]*sync.Mutex),
	}, nil
}

// symbolLock returns the mutex serializing all work on one symbol. Lock
// entries persist for the life of the process so that two goroutines can
// never hold distinct locks for the same symbol.
func (m *Manager) symbolLock(symbol string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		m.locks[symbol] = l
	}
	return l
}

func (m *Manager) get(symbol string) *domain.ManagedPosition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.positions[symbol]
}

func (m *Manager) activeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, pos := range m.positions {
		if pos.IsActive {
			count++
		}
	}
	return count
}

// ActivePositions returns the currently active managed positions.
func (m *Manager) ActivePositions() []*domain.ManagedPosition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var active []*domain.ManagedPosition
	for _, pos := range m.positions {
		if pos.IsActive {
			active = append(active, pos)
		}
	}
	return active
}

// activeSymbols snapshots the symbols with an active position so periodic
// ticks can iterate without holding the membership lock.
func (m *Manager) activeSymbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	symbols := make([]string, 0, len(m.positions))
	for symbol, pos := range m.positions {
		if pos.IsActive {
			symbols = append(symbols, symbol)
		}
	}
	return symbols
}

// CanOpen reports whether a new position could currently be opened for the
// signal. Pure query: it performs the same admission checks Open runs, but
// registers nothing. Failing checks are soft rejections, never errors.
func (m *Manager) CanOpen(ctx context.Context, sig *domain.TradingSignal) bool {
	ok, _ := m.admissionCheck(ctx, m.exchange.FormatSymbol(sig.Coin))
	return ok
}

// admissionCheck runs the admission gate: capacity, per-symbol uniqueness and
// the balance sanity floor. Returns the failing reason for logging.
func (m *Manager) admissionCheck(ctx context.Context, symbol string) (bool, string) {
	op := "admissionCheck"

	if count := m.activeCount(); count >= m.cfg.MaxPositions {
		return false, fmt.Sprintf("maximum positions reached (%d/%d)", count, m.cfg.MaxPositions)
	}

	if existing := m.get(symbol); existing != nil && existing.IsActive {
		return false, fmt.Sprintf("position already active for %s", symbol)
	}

	balance, err := m.exchange.GetBalance(ctx, m.cfg.QuoteCurrency)
	if err != nil {
		// Fail safe: an unverifiable balance rejects the signal.
		m.logger.Error(ctx, err, op+": failed to check balance", map[string]interface{}{"currency": m.cfg.QuoteCurrency})
		return false, "balance check failed"
	}
	if balance.Free < m.cfg.MinQuoteBalance {
		return false, fmt.Sprintf("insufficient free balance: %.2f < %.2f %s", balance.Free, m.cfg.MinQuoteBalance, m.cfg.QuoteCurrency)
	}

	return true, ""
}

// Open opens a managed position for the signal with the given quote-currency
// size. It holds the symbol lock from the admission check through
// registration, so two concurrent signals for the same coin cannot both pass
// the uniqueness check.
//
// Returns (nil, nil) on a soft admission rejection and (nil, err) when the
// entry order was rejected by the exchange; in both cases nothing stays
// registered. Any non-nil position means the entry order was accepted:
// stop-loss or take-profit submission failures are logged and surfaced but
// deliberately do not roll back the entry, since partial protection is
// preferred to an unprotected fill.
func (m *Manager) Open(ctx context.Context, sig *domain.TradingSignal, size float64) (*domain.ManagedPosition, error) {
	op := "OpenPosition"
	symbol := m.exchange.FormatSymbol(sig.Coin)

	lock := m.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	if ok, reason := m.admissionCheck(ctx, symbol); !ok {
		m.logger.Warn(ctx, op+": signal rejected", map[string]interface{}{"symbol": symbol, "reason": reason})
		m.notifier.SignalSkipped(ctx, sig.Coin, reason)
		return nil, nil
	}

	// The aggregate is tracked in the opening state while its orders are
	// submitted, and dropped again if the entry cannot be placed. The symbol
	// lock is held throughout, so nothing mutates it concurrently.
	now := time.Now().UTC()
	managed := &domain.ManagedPosition{
		Position: domain.Position{
			Symbol:    symbol,
			Side:      sig.Side,
			StopLoss:  sig.StopLoss,
			UpdatedAt: now,
		},
		Signal:    sig,
		State:     domain.StateOpening,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.mu.Lock()
	m.positions[symbol] = managed
	m.mu.Unlock()
	drop := func() {
		m.mu.Lock()
		delete(m.positions, symbol)
		m.mu.Unlock()
	}

	leverage := m.risk.LeverageFor(sig.Coin)
	if err := m.exchange.SetLeverage(ctx, symbol, leverage); err != nil {
		// Best-effort: the venue keeps whatever leverage was already set.
		m.logger.Warn(ctx, op+": failed to set leverage, continuing", map[string]interface{}{"symbol": symbol, "leverage": leverage, "error": err.Error()})
	} else {
		m.logger.Info(ctx, op+": leverage set", map[string]interface{}{"symbol": symbol, "leverage": leverage})
	}

	// Market entries defer the price to fill time; size the order off the
	// last traded price instead.
	refPrice := sig.Entry
	if sig.IsMarket() || refPrice <= 0 {
		ticker, err := m.exchange.GetTicker(ctx, symbol)
		if err != nil {
			drop()
			m.logger.Error(ctx, err, op+": failed to get reference price", map[string]interface{}{"symbol": symbol})
			return nil, fmt.Errorf("failed to get reference price for %s: %w", symbol, err)
		}
		refPrice = ticker
	}
	quantity := size / refPrice
	side := sig.Side.OrderSide()
	managed.Position.Leverage = leverage
	managed.Position.Size = quantity
	managed.RemainingQuantity = quantity

	// 1. Entry order. Rejection here aborts the open and drops the aggregate.
	entryReq := &domain.ExchangeOrder{
		Symbol:   symbol,
		Side:     side,
		Type:     sig.OrderType,
		Quantity: quantity,
	}
	if !sig.IsMarket() {
		entryReq.Price = sig.Entry
	}
	entryOrder, err := m.exchange.CreateOrder(ctx, entryReq)
	if err != nil {
		drop()
		m.logger.Error(ctx, err, op+": entry order rejected", map[string]interface{}{"symbol": symbol, "side": side, "quantity": quantity})
		m.notifier.ErrorOccurred(ctx, fmt.Sprintf("entry order rejected for %s: %v", symbol, err), op)
		return nil, fmt.Errorf("entry order for %s failed: %w", symbol, err)
	}
	entryPrice := entryOrder.AvgPrice
	if entryPrice == 0 {
		entryPrice = refPrice
	}
	managed.EntryOrders = []*domain.ExchangeOrder{entryOrder}
	managed.Position.EntryPrice = entryPrice
	managed.Position.CurrentPrice = entryPrice
	m.logger.Info(ctx, op+": entry order accepted", map[string]interface{}{"symbol": symbol, "orderID": entryOrder.ID, "status": entryOrder.Status})

	// 2. Stop-loss. Failure leaves the entry standing: a position without a
	// stop is reported loudly but not unwound.
	slReq := &domain.ExchangeOrder{
		Symbol:     symbol,
		Side:       side.Opposite(),
		Type:       domain.OrderTypeStopLoss,
		Quantity:   quantity,
		StopPrice:  sig.StopLoss,
		ReduceOnly: true,
	}
	slOrder, err := m.exchange.CreateOrder(ctx, slReq)
	if err != nil {
		m.logger.Error(ctx, err, op+": stop-loss order failed, position is unprotected", map[string]interface{}{"symbol": symbol, "stopPrice": sig.StopLoss})
		m.notifier.ErrorOccurred(ctx, fmt.Sprintf("stop-loss order failed for %s, manage risk manually: %v", symbol, err), op)
	} else {
		managed.StopLossOrders = append(managed.StopLossOrders, slOrder)
		m.logger.Info(ctx, op+": stop-loss order placed", map[string]interface{}{"symbol": symbol, "orderID": slOrder.ID, "stopPrice": sig.StopLoss})
	}

	// 3. Take-profit allocations. Each level submits independently; a failed
	// level keeps its allocation without an order ID and is surfaced rather
	// than silently dropped.
	managed.TakeProfits = planner.Plan(quantity, sig.TakeProfits, sig.TPWeights)
	for _, alloc := range managed.TakeProfits {
		tpReq := &domain.ExchangeOrder{
			Symbol:     symbol,
			Side:       side.Opposite(),
			Type:       domain.OrderTypeTakeProfit,
			Quantity:   alloc.Quantity,
			StopPrice:  alloc.Price,
			ReduceOnly: true,
		}
		tpOrder, err := m.exchange.CreateOrder(ctx, tpReq)
		if err != nil {
			m.logger.Error(ctx, err, op+": take-profit order failed", map[string]interface{}{"symbol": symbol, "level": alloc.Level, "price": alloc.Price})
			m.notifier.ErrorOccurred(ctx, fmt.Sprintf("TP%d order failed for %s: %v", alloc.Level, symbol, err), op)
			continue
		}
		alloc.OrderID = tpOrder.ID
		m.logger.Info(ctx, op+": take-profit order placed", map[string]interface{}{"symbol": symbol, "level": alloc.Level, "orderID": tpOrder.ID, "quantity": alloc.Quantity})
	}

	weights := planner.ResolveWeights(sig.TPCount(), sig.TPWeights)
	managed.Position.TakeProfit = sig.WeightedTakeProfit(weights)
	managed.State = domain.StateActive
	managed.IsActive = true
	managed.Touch()

	m.logger.Info(ctx, op+": position registered", map[string]interface{}{"symbol": symbol, "side": sig.Side, "quantity": quantity, "tpLevels": len(managed.TakeProfits)})
	m.notifier.SignalOpened(ctx, managed)
	return managed, nil
}

// Close closes a managed position: cancels its open child orders and marks
// the aggregate inactive. Deactivation is synchronous and unconditional;
// exchange-side cancellation failures are reported, not retried.
func (m *Manager) Close(ctx context.Context, symbol string, reason domain.CloseReason) bool {
	op := "ClosePosition"

	lock := m.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	managed := m.get(symbol)
	if managed == nil || !managed.IsActive {
		m.logger.Warn(ctx, op+": no active position", map[string]interface{}{"symbol": symbol})
		return false
	}

	managed.State = domain.StateClosing
	m.cancelLiveOrders(ctx, managed)

	managed.Deactivate(reason)
	m.recordTrade(ctx, managed)
	m.logger.Info(ctx, op+": position closed", map[string]interface{}{"symbol": symbol, "reason": reason})
	m.notifier.PositionClosed(ctx, symbol, reason)
	return true
}

// cancelLiveOrders cancels every still-working child order of the position.
// Order-not-found is expected (already filled or purged) and ignored.
func (m *Manager) cancelLiveOrders(ctx context.Context, managed *domain.ManagedPosition) {
	op := "cancelLiveOrders"
	symbol := managed.Position.Symbol

	cancel := func(orderID, kind string) {
		if err := m.exchange.CancelOrder(ctx, symbol, orderID); err != nil {
			if errors.Is(err, ports.ErrOrderNotFound) {
				m.logger.Debug(ctx, op+": order already gone", map[string]interface{}{"symbol": symbol, "orderID": orderID, "kind": kind})
				return
			}
			m.logger.Error(ctx, err, op+": failed to cancel order", map[string]interface{}{"symbol": symbol, "orderID": orderID, "kind": kind})
			m.notifier.ErrorOccurred(ctx, fmt.Sprintf("failed to cancel %s order %s for %s: %v", kind, orderID, symbol, err), op)
		}
	}

	for _, order := range managed.EntryOrders {
		if order.IsLive() {
			cancel(order.ID, "entry")
			order.Status = domain.OrderStatusCancelled
		}
	}
	for _, order := range managed.StopLossOrders {
		if order.IsLive() {
			cancel(order.ID, "stop-loss")
			order.Status = domain.OrderStatusCancelled
		}
	}
	for _, alloc := range managed.TakeProfits {
		if alloc.OrderID != "" && !alloc.Filled {
			cancel(alloc.OrderID, "take-profit")
		}
	}
}

// Reconcile refreshes every active position against the exchange: order
// statuses across all groups, then the position snapshot itself. Failures
// are isolated per symbol; one symbol's error never blocks the others.
func (m *Manager) Reconcile(ctx context.Context) {
	op := "Reconcile"
	for _, symbol := range m.activeSymbols() {
		if err := m.reconcileSymbol(ctx, symbol); err != nil {
			// Transient by assumption: retried on the next tick.
			m.logger.Error(ctx, err, op+": symbol update failed", map[string]interface{}{"symbol": symbol})
		}
	}
}

func (m *Manager) reconcileSymbol(ctx context.Context, symbol string) error {
	lock := m.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	managed := m.get(symbol)
	if managed == nil || !managed.IsActive {
		return nil
	}

	if err := m.refreshOrderGroup(ctx, managed, managed.EntryOrders, true); err != nil {
		return err
	}
	if !managed.IsActive {
		return nil // Stop-loss group refresh below is moot once closed.
	}
	if err := m.refreshOrderGroup(ctx, managed, managed.StopLossOrders, false); err != nil {
		return err
	}
	if !managed.IsActive {
		return nil
	}

	// Take-profit allocations reconcile through the same fill path the TP
	// monitor uses, so breakeven and close-out behavior stay consistent.
	if _, err := m.checkSymbolTPFills(ctx, managed); err != nil {
		return err
	}
	if !managed.IsActive {
		return nil
	}

	return m.refreshSnapshot(ctx, managed)
}

// refreshOrderGroup re-queries each live order of a group. An order the
// exchange no longer knows is implicitly cancelled: venues routinely purge
// filled, expired and cancelled order records, so absence is a first-class
// outcome rather than an error.
func (m *Manager) refreshOrderGroup(ctx context.Context, managed *domain.ManagedPosition, orders []*domain.ExchangeOrder, isEntry bool) error {
	op := "refreshOrderGroup"
	symbol := managed.Position.Symbol

	for _, order := range orders {
		if !order.IsLive() {
			continue
		}
		updated, err := m.exchange.GetOrderStatus(ctx, symbol, order.ID)
		if err != nil {
			return fmt.Errorf("order status query for %s failed: %w", order.ID, err)
		}
		if updated == nil {
			order.Status = domain.OrderStatusCancelled
			m.logger.Debug(ctx, op+": order not found, marked cancelled", map[string]interface{}{"symbol": symbol, "orderID": order.ID})
			continue
		}

		previous := order.Status
		order.Status = updated.Status
		order.FilledQuantity = updated.FilledQuantity
		order.AvgPrice = updated.AvgPrice
		order.UpdatedAt = updated.UpdatedAt
		managed.Touch()

		if previous == updated.Status || updated.Status != domain.OrderStatusFilled {
			continue
		}

		if isEntry {
			if updated.AvgPrice > 0 {
				managed.Position.EntryPrice = updated.AvgPrice
			}
			m.logger.Info(ctx, op+": entry order filled", map[string]interface{}{"symbol": symbol, "orderID": order.ID, "avgPrice": updated.AvgPrice})
			m.notifier.SignalFilled(ctx, symbol, order.ID, updated.AvgPrice)
		} else {
			// Stop-loss fill means the remainder was closed out at a loss.
			m.logger.Info(ctx, op+": stop-loss filled", map[string]interface{}{"symbol": symbol, "orderID": order.ID, "avgPrice": updated.AvgPrice})
			m.notifier.SLHit(ctx, symbol, updated.AvgPrice)
			m.cancelLiveOrders(ctx, managed)
			managed.Deactivate(domain.CloseReasonStopLoss)
			m.recordTrade(ctx, managed)
			m.notifier.PositionClosed(ctx, symbol, domain.CloseReasonStopLoss)
			return nil
		}
	}
	return nil
}

// refreshSnapshot pulls the live position from the exchange. A vanished
// position under an active aggregate means it was closed externally (stop or
// final TP consumed it) and is treated as a close event, but only after the
// entry has filled: a pending limit entry legitimately has no exchange-side
// position yet.
func (m *Manager) refreshSnapshot(ctx context.Context, managed *domain.ManagedPosition) error {
	op := "refreshSnapshot"
	symbol := managed.Position.Symbol

	positions, err := m.exchange.GetPositions(ctx, symbol)
	if err != nil {
		return fmt.Errorf("position query for %s failed: %w", symbol, err)
	}

	if len(positions) == 0 {
		if !m.entryFilled(managed) {
			return nil // Entry still resting; nothing to reconcile yet.
		}
		m.logger.Warn(ctx, op+": exchange no longer reports position, closing", map[string]interface{}{"symbol": symbol})
		m.cancelLiveOrders(ctx, managed)
		managed.Deactivate(domain.CloseReasonExternal)
		m.recordTrade(ctx, managed)
		m.notifier.PositionClosed(ctx, symbol, domain.CloseReasonExternal)
		return nil
	}

	live := positions[0]
	managed.Position.CurrentPrice = live.CurrentPrice
	managed.Position.UnrealizedPnL = live.UnrealizedPnL
	managed.Position.Size = live.Size
	managed.Position.UpdatedAt = time.Now().UTC()
	managed.Touch()
	return nil
}

func (m *Manager) entryFilled(managed *domain.ManagedPosition) bool {
	for _, order := range managed.EntryOrders {
		if order.Status == domain.OrderStatusFilled || order.Status == domain.OrderStatusPartiallyFilled {
			return true
		}
	}
	return false
}

// CheckTPFills queries every unfilled take-profit allocation with an order ID
// and records newly observed fills. Returns the symbol → newly-filled-levels
// map for this tick only. Errors are isolated per symbol.
func (m *Manager) CheckTPFills(ctx context.Context) map[string][]int {
	op := "CheckTPFills"
	newlyFilled := make(map[string][]int)

	for _, symbol := range m.activeSymbols() {
		lock := m.symbolLock(symbol)
		lock.Lock()
		managed := m.get(symbol)
		if managed == nil || !managed.IsActive {
			lock.Unlock()
			continue
		}
		levels, err := m.checkSymbolTPFills(ctx, managed)
		lock.Unlock()
		if err != nil {
			m.logger.Error(ctx, err, op+": TP check failed", map[string]interface{}{"symbol": symbol})
			continue
		}
		if len(levels) > 0 {
			newlyFilled[symbol] = levels
		}
	}
	return newlyFilled
}

// checkSymbolTPFills is the per-symbol TP fill scan. Caller holds the symbol lock.
func (m *Manager) checkSymbolTPFills(ctx context.Context, managed *domain.ManagedPosition) ([]int, error) {
	op := "checkSymbolTPFills"
	symbol := managed.Position.Symbol

	var filledLevels []int
	for _, alloc := range managed.TakeProfits {
		if alloc.Filled || alloc.OrderID == "" {
			continue
		}
		status, err := m.exchange.GetOrderStatus(ctx, symbol, alloc.OrderID)
		if err != nil {
			return filledLevels, fmt.Errorf("TP%d status query failed: %w", alloc.Level, err)
		}
		if status == nil {
			// Implicitly cancelled, like any other vanished order. Dropping
			// the order ID stops the re-polling and leaves the level visibly
			// unsubmitted; the operator is told the target is no longer
			// working.
			m.logger.Warn(ctx, op+": TP order not found, treating as cancelled", map[string]interface{}{"symbol": symbol, "level": alloc.Level, "orderID": alloc.OrderID})
			m.notifier.ErrorOccurred(ctx, fmt.Sprintf("TP%d order for %s vanished from the exchange; the level is no longer working", alloc.Level, symbol), op)
			alloc.OrderID = ""
			managed.Touch()
			continue
		}
		if status.Status != domain.OrderStatusFilled {
			continue
		}

		if !managed.MarkTPFilled(alloc.Level, status.FilledQuantity) {
			continue
		}
		filledLevels = append(filledLevels, alloc.Level)
		m.logger.Info(ctx, op+": take-profit filled", map[string]interface{}{
			"symbol":    symbol,
			"level":     alloc.Level,
			"quantity":  status.FilledQuantity,
			"remaining": managed.RemainingQuantity,
		})
		m.notifier.TPHit(ctx, symbol, alloc.Level, status.AvgPrice, managed.FilledTPCount(), len(managed.TakeProfits))
	}

	// NeedsBreakeven stays true after a failed adjustment, so a replacement
	// rejected by the exchange is retried on the next tick, not only when
	// another level fills.
	if m.cfg.AutoBreakeven && managed.NeedsBreakeven() {
		m.adjustBreakeven(ctx, managed)
	}
	if managed.IsActive && managed.FilledTPCount() > 0 && managed.IsFullyClosed() {
		m.cancelLiveOrders(ctx, managed)
		managed.Deactivate(domain.CloseReasonTakeProfit)
		m.recordTrade(ctx, managed)
		m.logger.Info(ctx, op+": all take-profits consumed, position closed", map[string]interface{}{"symbol": symbol})
		m.notifier.PositionClosed(ctx, symbol, domain.CloseReasonTakeProfit)
	}
	return filledLevels, nil
}

// adjustBreakeven replaces the stop-loss so a stop-out of the remaining
// quantity nets zero against the profit already realized. The exchange
// replacement and the local flag update happen together under the symbol
// lock, so no other tick observes a half-applied adjustment. On failure the
// flag stays unset and the adjustment is retried on the next tick.
func (m *Manager) adjustBreakeven(ctx context.Context, managed *domain.ManagedPosition) {
	op := "adjustBreakeven"
	symbol := managed.Position.Symbol

	newStop := planner.BreakevenStop(
		managed.Position.EntryPrice,
		managed.Position.StopLoss,
		managed.FilledTakeProfits(),
		managed.RemainingQuantity,
		managed.Signal.Side,
	)
	if newStop == managed.Position.StopLoss {
		// Already at or beyond breakeven; nothing to move.
		managed.BreakevenAdjusted = true
		managed.Touch()
		m.logger.Debug(ctx, op+": stop already at breakeven level", map[string]interface{}{"symbol": symbol, "stop": newStop})
		return
	}

	var oldOrderID string
	for _, order := range managed.StopLossOrders {
		if order.IsLive() {
			oldOrderID = order.ID
			break
		}
	}

	newOrder, err := m.exchange.ReplaceStopLoss(ctx, symbol, oldOrderID, managed.Signal.Side.OrderSide().Opposite(), managed.RemainingQuantity, newStop)
	if err != nil {
		m.logger.Error(ctx, err, op+": stop-loss replacement failed", map[string]interface{}{"symbol": symbol, "newStop": newStop})
		m.notifier.ErrorOccurred(ctx, fmt.Sprintf("breakeven adjustment failed for %s: %v", symbol, err), op)
		return
	}

	for _, order := range managed.StopLossOrders {
		if order.ID == oldOrderID {
			order.Status = domain.OrderStatusCancelled
		}
	}
	managed.StopLossOrders = append(managed.StopLossOrders, newOrder)
	managed.Position.StopLoss = newStop
	managed.BreakevenAdjusted = true
	managed.Touch()
	m.logger.Info(ctx, op+": stop-loss moved to breakeven", map[string]interface{}{"symbol": symbol, "newStop": newStop, "orderID": newOrder.ID})
}

// CleanupInactive drops closed positions whose last update is older than the
// retention window. Returns the number of entries removed.
func (m *Manager) CleanupInactive(ctx context.Context) int {
	op := "CleanupInactive"
	cutoff := time.Now().UTC().Add(-m.cfg.Retention)

	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int
	for symbol, pos := range m.positions {
		if !pos.IsActive && pos.UpdatedAt.Before(cutoff) {
			delete(m.positions, symbol)
			removed++
			m.logger.Info(ctx, op+": cleaned up inactive position", map[string]interface{}{"symbol": symbol})
		}
	}
	return removed
}

func (m *Manager) recordTrade(ctx context.Context, managed *domain.ManagedPosition) {
	if m.trades == nil {
		return
	}
	op := "recordTrade"
	trade := &domain.Trade{
		Symbol:      managed.Position.Symbol,
		Side:        managed.Position.Side,
		EntryPrice:  managed.Position.EntryPrice,
		ExitPrice:   managed.Position.CurrentPrice,
		Quantity:    managed.Position.Size,
		Leverage:    managed.Position.Leverage,
		PNL:         managed.Position.UnrealizedPnL,
		Source:      managed.Signal.Source,
		EntryTime:   managed.CreatedAt,
		ExitTime:    time.Now().UTC(),
		CloseReason: managed.CloseReason,
	}
	if _, err := m.trades.CreateTrade(ctx, trade); err != nil {
		m.logger.Error(ctx, err, op+": failed to record trade", map[string]interface{}{"symbol": trade.Symbol})
	}
}
