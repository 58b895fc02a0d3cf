package position

import (
	"time"

	"watchcaller/internal/domain"
)

// PositionSnapshot is a read-only view of one tracked position for reporting.
type PositionSnapshot struct {
	Symbol        string
	Side          domain.SignalSide
	Size          float64
	EntryPrice    float64
	CurrentPrice  float64
	UnrealizedPnL float64
	PnLPercentage float64
	FilledTPs     int
	TotalTPs      int
	CreatedAt     time.Time
}

// Summary aggregates portfolio state across all active positions.
type Summary struct {
	TotalPositions     int
	MaxPositions       int
	AvailableSlots     int
	TotalUnrealizedPnL float64
	Positions          []PositionSnapshot
}

// TPLevelStatus reports the state of a single take-profit level.
type TPLevelStatus struct {
	Level          int
	Price          float64
	Percentage     float64
	Quantity       float64
	Filled         bool
	FilledQuantity float64
	OrderID        string
}

// MultiTPStatus reports the take-profit ladder progress of one position.
type MultiTPStatus struct {
	Symbol            string
	IsMultiTP         bool
	TotalLevels       int
	FilledCount       int
	RemainingQuantity float64
	BreakevenAdjusted bool
	LastFilledLevel   int
	Levels            []TPLevelStatus
}

// Summary returns the current portfolio summary.
func (m *Manager) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Summary{MaxPositions: m.cfg.MaxPositions}
	for _, pos := range m.positions {
		if !pos.IsActive {
			continue
		}
		s.TotalPositions++
		s.TotalUnrealizedPnL += pos.Position.UnrealizedPnL
		s.Positions = append(s.Positions, PositionSnapshot{
			Symbol:        pos.Position.Symbol,
			Side:          pos.Position.Side,
			Size:          pos.Position.Size,
			EntryPrice:    pos.Position.EntryPrice,
			CurrentPrice:  pos.Position.CurrentPrice,
			UnrealizedPnL: pos.Position.UnrealizedPnL,
			PnLPercentage: pos.Position.PnLPercentage(),
			FilledTPs:     pos.FilledTPCount(),
			TotalTPs:      len(pos.TakeProfits),
			CreatedAt:     pos.CreatedAt,
		})
	}
	s.AvailableSlots = s.MaxPositions - s.TotalPositions
	if s.AvailableSlots < 0 {
		s.AvailableSlots = 0
	}
	return s
}

// MultiTPStatus returns the take-profit ladder status for a symbol, or nil if
// the symbol is not tracked.
func (m *Manager) MultiTPStatus(symbol string) *MultiTPStatus {
	m.mu.RLock()
	pos := m.positions[symbol]
	m.mu.RUnlock()
	if pos == nil {
		return nil
	}

	status := &MultiTPStatus{
		Symbol:            symbol,
		IsMultiTP:         len(pos.TakeProfits) > 1,
		TotalLevels:       len(pos.TakeProfits),
		FilledCount:       pos.FilledTPCount(),
		RemainingQuantity: pos.RemainingQuantity,
		BreakevenAdjusted: pos.BreakevenAdjusted,
		LastFilledLevel:   pos.LastFilledTP,
	}
	for _, tp := range pos.TakeProfits {
		status.Levels = append(status.Levels, TPLevelStatus{
			Level:          tp.Level,
			Price:          tp.Price,
			Percentage:     tp.Percentage,
			Quantity:       tp.Quantity,
			Filled:         tp.Filled,
			FilledQuantity: tp.FilledQuantity,
			OrderID:        tp.OrderID,
		})
	}
	return status
}
