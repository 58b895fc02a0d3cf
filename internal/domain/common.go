package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Opposite returns the opposing order side, used when placing exit orders.
func (s OrderSide) Opposite() OrderSide {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType represents the kind of order submitted to the exchange.
type OrderType string

const (
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeStopLoss   OrderType = "STOP_LOSS"
	OrderTypeTakeProfit OrderType = "TAKE_PROFIT"
)

// IsEntry reports whether this order type opens a position (as opposed to
// protecting or reducing one).
func (t OrderType) IsEntry() bool {
	return t == OrderTypeMarket || t == OrderTypeLimit
}

// OrderStatus represents the lifecycle state of an exchange order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
)

// IsTerminal reports whether no further transitions are expected for the order.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled || s == OrderStatusRejected
}

// SignalSide represents the direction of a trading signal.
type SignalSide string

const (
	SideLong    SignalSide = "long"
	SideShort   SignalSide = "short"
	SideUnknown SignalSide = "unknown"
)

// OrderSide maps the signal direction to the entry order side.
func (s SignalSide) OrderSide() OrderSide {
	if s == SideShort {
		return Sell
	}
	return Buy
}

// PositionState represents the lifecycle state of a managed position.
type PositionState string

const (
	StateOpening PositionState = "opening"
	StateActive  PositionState = "active"
	StateClosing PositionState = "closing"
	StateClosed  PositionState = "closed"
)

// CloseReason indicates why a managed position was closed.
type CloseReason string

const (
	CloseReasonManual     CloseReason = "manual"
	CloseReasonStopLoss   CloseReason = "stop_loss"
	CloseReasonTakeProfit CloseReason = "take_profit"
	CloseReasonExternal   CloseReason = "external" // exchange no longer reports the position
	CloseReasonShutdown   CloseReason = "shutdown"
)
