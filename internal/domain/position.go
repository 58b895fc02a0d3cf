package domain

import "time"

// Position is the snapshot of an exchange-side position. The exchange is the
// source of truth; this copy is refreshed during reconciliation.
type Position struct {
	Symbol        string
	Side          SignalSide
	Size          float64 // Position size in base currency
	EntryPrice    float64
	CurrentPrice  float64
	UnrealizedPnL float64
	StopLoss      float64
	TakeProfit    float64 // Weighted/primary TP, informational
	Leverage      int
	UpdatedAt     time.Time
}

// PnLPercentage returns the unleveraged PnL percentage relative to entry.
func (p *Position) PnLPercentage() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	if p.Side == SideShort {
		return (p.EntryPrice - p.CurrentPrice) / p.EntryPrice * 100
	}
	return (p.CurrentPrice - p.EntryPrice) / p.EntryPrice * 100
}

// ManagedPosition is the aggregate root for position lifecycle tracking. All
// mutation goes through the position manager under a per-symbol lock.
type ManagedPosition struct {
	Position Position
	Signal   *TradingSignal

	EntryOrders    []*ExchangeOrder
	StopLossOrders []*ExchangeOrder
	TakeProfits    []*TPAllocation

	State             PositionState
	IsActive          bool
	RemainingQuantity float64
	BreakevenAdjusted bool
	LastFilledTP      int // 0 until the first TP fill
	CloseReason       CloseReason

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch refreshes the aggregate's update timestamp.
func (m *ManagedPosition) Touch() {
	m.UpdatedAt = time.Now().UTC()
}

// MarkTPFilled records a fill for the given TP level and decrements the
// remaining quantity by the observed filled amount (falling back to the
// planned quantity when the exchange did not report one). A level can be
// marked at most once, and an inactive position cannot be mutated; both
// violations return false.
func (m *ManagedPosition) MarkTPFilled(level int, filledQuantity float64) bool {
	if !m.IsActive {
		return false
	}
	for _, tp := range m.TakeProfits {
		if tp.Level != level {
			continue
		}
		if tp.Filled {
			return false
		}
		qty := filledQuantity
		if qty <= 0 {
			qty = tp.Quantity
		}
		tp.Filled = true
		tp.FilledQuantity = qty
		m.RemainingQuantity -= qty
		m.LastFilledTP = level
		m.Touch()
		return true
	}
	return false
}

// FilledTPCount returns how many TP levels have filled so far.
func (m *ManagedPosition) FilledTPCount() int {
	count := 0
	for _, tp := range m.TakeProfits {
		if tp.Filled {
			count++
		}
	}
	return count
}

// FilledTakeProfits returns the allocations that have filled so far.
func (m *ManagedPosition) FilledTakeProfits() []*TPAllocation {
	var filled []*TPAllocation
	for _, tp := range m.TakeProfits {
		if tp.Filled {
			filled = append(filled, tp)
		}
	}
	return filled
}

// NeedsBreakeven reports whether the stop-loss should move to breakeven:
// at least one TP filled, not already adjusted, and quantity still open.
func (m *ManagedPosition) NeedsBreakeven() bool {
	return m.IsActive &&
		!m.BreakevenAdjusted &&
		m.FilledTPCount() > 0 &&
		m.RemainingQuantity > 0
}

// IsFullyClosed reports whether nothing remains to manage: the position was
// deactivated, or every TP level filled, or the remaining quantity reached zero.
func (m *ManagedPosition) IsFullyClosed() bool {
	if !m.IsActive {
		return true
	}
	if len(m.TakeProfits) == 0 {
		return false
	}
	if m.RemainingQuantity <= 0 {
		return true
	}
	for _, tp := range m.TakeProfits {
		if !tp.Filled {
			return false
		}
	}
	return true
}

// Deactivate marks the position closed. Once inactive the aggregate is
// terminal and no order state may be mutated.
func (m *ManagedPosition) Deactivate(reason CloseReason) {
	if !m.IsActive {
		return
	}
	m.IsActive = false
	m.State = StateClosed
	m.CloseReason = reason
	m.Touch()
}
