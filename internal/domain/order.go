package domain

import "time"

// ExchangeOrder is the local view of an order submitted to the exchange.
type ExchangeOrder struct {
	Symbol         string
	Side           OrderSide
	Type           OrderType
	Quantity       float64 // Requested quantity in base currency
	Price          float64 // Limit price (0 for market orders)
	StopPrice      float64 // Trigger price for STOP_LOSS/TAKE_PROFIT orders
	ReduceOnly     bool
	ID             string // Exchange-assigned order ID, empty until accepted
	ClientID       string // Client-assigned order ID, set before submission
	Status         OrderStatus
	FilledQuantity float64
	AvgPrice       float64 // Average fill price (0 until filled)
	UpdatedAt      time.Time
}

// IsLive reports whether the order is still working on the exchange.
func (o *ExchangeOrder) IsLive() bool {
	return o.ID != "" && !o.Status.IsTerminal()
}

// TPAllocation is one planned take-profit level of a position split.
// It is created by the planner at position-open time and mutated only by the
// position manager as fills are observed; allocations are never removed.
type TPAllocation struct {
	Level          int     // 1-based TP level
	Price          float64 // Target price
	Percentage     float64 // Share of the total position, resolved to sum to 100
	Quantity       float64 // Planned quantity for this level
	OrderID        string  // Exchange order ID once submitted, empty on submission failure
	Filled         bool
	FilledQuantity float64
}
