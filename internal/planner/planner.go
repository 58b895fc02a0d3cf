// Package planner computes take-profit position splits and the derived
// stop-loss adjustments. It is purely computational: no I/O, deterministic,
// safe to call repeatedly with the same inputs.
package planner

import (
	"watchcaller/internal/domain"
)

// entryBuffer keeps an adjusted stop-loss on the profitable side of entry
// (0.1%), so a breakeven stop never crosses to the wrong side of the fill.
const entryBuffer = 0.001

// DefaultWeights returns the default split percentages for a TP level count.
// Five or more levels split evenly.
func DefaultWeights(levels int) []float64 {
	switch levels {
	case 0:
		return nil
	case 1:
		return []float64{100}
	case 2:
		return []float64{40, 60}
	case 3:
		return []float64{30, 40, 30}
	case 4:
		return []float64{20, 20, 40, 20}
	default:
		weights := make([]float64, levels)
		even := 100.0 / float64(levels)
		for i := range weights {
			weights[i] = even
		}
		return weights
	}
}

// ResolveWeights picks the custom weights when one is supplied per TP price,
// falling back to the level-count defaults, and renormalizes the result so the
// percentages sum to exactly 100.
func ResolveWeights(levels int, custom []float64) []float64 {
	var weights []float64
	if len(custom) == levels && levels > 0 {
		weights = append([]float64(nil), custom...)
	} else {
		weights = DefaultWeights(levels)
	}

	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return DefaultWeights(levels)
	}
	for i := range weights {
		weights[i] = weights[i] / total * 100.0
	}
	return weights
}

// Plan splits a total position size across the given take-profit prices.
// Levels 1..N-1 receive totalSize*weight/100; the last level receives whatever
// remains, so the quantities sum to totalSize exactly and float rounding error
// is absorbed in the final level rather than distributed.
//
// Preconditions: totalSize > 0 and tpPrices non-empty; violating either
// returns nil (treated by callers as a programming error, never a runtime
// condition).
func Plan(totalSize float64, tpPrices []float64, tpWeights []float64) []*domain.TPAllocation {
	if totalSize <= 0 || len(tpPrices) == 0 {
		return nil
	}

	weights := ResolveWeights(len(tpPrices), tpWeights)

	allocations := make([]*domain.TPAllocation, 0, len(tpPrices))
	var assigned float64
	for i, price := range tpPrices {
		var quantity float64
		if i == len(tpPrices)-1 {
			// Subtracting the accumulated sum (not decrementing level by
			// level) is what makes the quantities add back to totalSize.
			quantity = totalSize - assigned
		} else {
			quantity = totalSize * weights[i] / 100.0
			assigned += quantity
		}
		allocations = append(allocations, &domain.TPAllocation{
			Level:      i + 1,
			Price:      price,
			Percentage: weights[i],
			Quantity:   quantity,
		})
	}
	return allocations
}

// BreakevenStop computes the stop-loss price at which closing the remaining
// quantity exactly offsets the realized profit from the filled TP levels.
// The result is clamped so it never moves the stop in the unfavorable
// direction relative to the original stop and never crosses to the wrong side
// of the entry price.
func BreakevenStop(entry, originalStop float64, filled []*domain.TPAllocation, remaining float64, side domain.SignalSide) float64 {
	if len(filled) == 0 || remaining <= 0 {
		return originalStop
	}

	var realized float64
	for _, tp := range filled {
		qty := tp.FilledQuantity
		if qty <= 0 {
			qty = tp.Quantity
		}
		if side == domain.SideShort {
			realized += (entry - tp.Price) * qty
		} else {
			realized += (tp.Price - entry) * qty
		}
	}

	if side == domain.SideShort {
		// Stopping out the remainder at breakevenStop loses exactly what the
		// filled TPs earned: (stop - entry) * remaining == realized.
		stop := entry + realized/remaining
		return min3(stop, originalStop, entry*(1+entryBuffer))
	}
	stop := entry - realized/remaining
	return max3(stop, originalStop, entry*(1-entryBuffer))
}

// RiskMetrics describes risk/reward for one TP level of a planned split.
type RiskMetrics struct {
	Level           int
	Price           float64
	Quantity        float64
	RiskPerUnit     float64
	RewardPerUnit   float64
	RiskRewardRatio float64
}

// RiskPerLevel computes risk/reward metrics for each planned TP level.
func RiskPerLevel(entry, stopLoss float64, allocations []*domain.TPAllocation, side domain.SignalSide) []RiskMetrics {
	metrics := make([]RiskMetrics, 0, len(allocations))
	for _, tp := range allocations {
		var risk, reward float64
		if side == domain.SideShort {
			risk = stopLoss - entry
			reward = entry - tp.Price
		} else {
			risk = entry - stopLoss
			reward = tp.Price - entry
		}
		ratio := 0.0
		if risk > 0 {
			ratio = reward / risk
		}
		metrics = append(metrics, RiskMetrics{
			Level:           tp.Level,
			Price:           tp.Price,
			Quantity:        tp.Quantity,
			RiskPerUnit:     risk,
			RewardPerUnit:   reward,
			RiskRewardRatio: ratio,
		})
	}
	return metrics
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
