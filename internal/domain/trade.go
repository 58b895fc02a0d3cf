package domain

import "time"

// Trade is the historical record written when a managed position closes.
type Trade struct {
	ID          int64
	Symbol      string
	Side        SignalSide
	EntryPrice  float64
	ExitPrice   float64
	Quantity    float64
	Leverage    int
	PNL         float64
	Source      string // Signal source channel
	EntryTime   time.Time
	ExitTime    time.Time
	CloseReason CloseReason
}
