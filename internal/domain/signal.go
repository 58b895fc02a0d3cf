package domain

import "time"

// TradingSignal is a structured trade instruction extracted from a raw message.
// It is created once by the ingestion pipeline and read-only thereafter.
type TradingSignal struct {
	Coin        string     // Base coin symbol (e.g., "BTC")
	Side        SignalSide // long, short or unknown
	Entry       float64    // Entry price; ignored for market orders (fill price applies)
	StopLoss    float64    // Stop-loss price
	TakeProfits []float64  // One or more take-profit prices, ordered
	TPWeights   []float64  // Optional custom split percentages, one per TP level
	OrderType   OrderType  // MARKET or LIMIT entry
	Confidence  float64    // Parser confidence in [0,1]
	Source      string     // Originating channel/feed
	RawMessage  string     // Original message text
	Metadata    map[string]string
	Timestamp   time.Time
}

// TPCount returns the number of take-profit levels.
func (s *TradingSignal) TPCount() int {
	return len(s.TakeProfits)
}

// IsMultiTP reports whether the signal carries more than one take-profit level.
func (s *TradingSignal) IsMultiTP() bool {
	return len(s.TakeProfits) > 1
}

// IsMarket reports whether the entry is a market order, in which case the
// entry price is deferred to fill time.
func (s *TradingSignal) IsMarket() bool {
	return s.OrderType == OrderTypeMarket
}

// WeightedTakeProfit returns the percentage-weighted average of the TP levels,
// or the single TP price. Used for risk/reward reporting.
func (s *TradingSignal) WeightedTakeProfit(weights []float64) float64 {
	if len(s.TakeProfits) == 0 {
		return 0
	}
	if len(s.TakeProfits) == 1 || len(weights) != len(s.TakeProfits) {
		return s.TakeProfits[0]
	}
	var weighted float64
	for i, tp := range s.TakeProfits {
		weighted += tp * weights[i] / 100.0
	}
	return weighted
}
