package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchcaller/internal/domain"
)

func TestPlanDefaultWeights(t *testing.T) {
	tests := []struct {
		name      string
		totalSize float64
		tpPrices  []float64
		wantPcts  []float64
	}{
		{
			name:      "single level takes everything",
			totalSize: 2.5,
			tpPrices:  []float64{105},
			wantPcts:  []float64{100},
		},
		{
			name:      "two levels",
			totalSize: 1.0,
			tpPrices:  []float64{105, 110},
			wantPcts:  []float64{40, 60},
		},
		{
			name:      "three levels",
			totalSize: 1.0,
			tpPrices:  []float64{100, 110, 120},
			wantPcts:  []float64{30, 40, 30},
		},
		{
			name:      "four levels",
			totalSize: 10,
			tpPrices:  []float64{101, 102, 103, 104},
			wantPcts:  []float64{20, 20, 40, 20},
		},
		{
			name:      "five levels split evenly",
			totalSize: 1.0,
			tpPrices:  []float64{101, 102, 103, 104, 105},
			wantPcts:  []float64{20, 20, 20, 20, 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allocations := Plan(tt.totalSize, tt.tpPrices, nil)
			require.Len(t, allocations, len(tt.tpPrices))

			var sum float64
			for i, alloc := range allocations {
				assert.Equal(t, i+1, alloc.Level)
				assert.Equal(t, tt.tpPrices[i], alloc.Price)
				assert.InDelta(t, tt.wantPcts[i], alloc.Percentage, 1e-9)
				sum += alloc.Quantity
			}
			// The last level absorbs rounding error, so the sum is exact.
			assert.Equal(t, tt.totalSize, sum)
		})
	}
}

func TestPlanCustomWeightsRenormalized(t *testing.T) {
	// Weights summing to 50 must be scaled up to 100.
	allocations := Plan(1.0, []float64{100, 110}, []float64{10, 40})
	require.Len(t, allocations, 2)
	assert.InDelta(t, 20.0, allocations[0].Percentage, 1e-9)
	assert.InDelta(t, 80.0, allocations[1].Percentage, 1e-9)

	var sum, pctSum float64
	for _, alloc := range allocations {
		sum += alloc.Quantity
		pctSum += alloc.Percentage
	}
	assert.Equal(t, 1.0, sum)
	assert.InDelta(t, 100.0, pctSum, 1e-9)
}

func TestPlanWeightCountMismatchFallsBack(t *testing.T) {
	// Two weights for three prices: the default three-level table applies.
	allocations := Plan(1.0, []float64{100, 110, 120}, []float64{50, 50})
	require.Len(t, allocations, 3)
	assert.InDelta(t, 30.0, allocations[0].Percentage, 1e-9)
	assert.InDelta(t, 40.0, allocations[1].Percentage, 1e-9)
	assert.InDelta(t, 30.0, allocations[2].Percentage, 1e-9)
}

func TestPlanExactSumWithAwkwardSizes(t *testing.T) {
	// The intermediate per-level quantities are inexact (0.3 and 0.4 have no
	// binary representation), so the final level must absorb the accumulated
	// rounding and the quantities must sum back to exactly the input. 1.0 with
	// the three-level default table is the case where decrementing a running
	// remainder instead of subtracting the accumulated sum drifts off by one
	// ulp.
	for _, totalSize := range []float64{0.1, 1.0, 2.5, 3.7, 1000} {
		allocations := Plan(totalSize, []float64{100, 110, 120}, nil)
		require.Len(t, allocations, 3)

		var sum float64
		for _, alloc := range allocations {
			sum += alloc.Quantity
		}
		assert.Equal(t, totalSize, sum, "totalSize %v", totalSize)
	}
}

func TestPlanIsIdempotent(t *testing.T) {
	first := Plan(3.7, []float64{100, 120, 140}, []float64{25, 25, 50})
	second := Plan(3.7, []float64{100, 120, 140}, []float64{25, 25, 50})
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, *first[i], *second[i])
	}
}

func TestPlanRejectsBadInput(t *testing.T) {
	assert.Nil(t, Plan(0, []float64{100}, nil))
	assert.Nil(t, Plan(-1, []float64{100}, nil))
	assert.Nil(t, Plan(1.0, nil, nil))
}

func TestBreakevenStopLong(t *testing.T) {
	// Entry 100, SL 95. TP1 at 110 filled for 0.4 of a 1.0 position.
	// Realized profit = 10 * 0.4 = 4. Breakeven for remaining 0.6:
	// 100 - 4/0.6 = 93.33, below both the original stop and the entry
	// buffer, so the stop clamps to the entry buffer (99.9).
	filled := []*domain.TPAllocation{
		{Level: 1, Price: 110, Quantity: 0.4, Filled: true, FilledQuantity: 0.4},
	}
	stop := BreakevenStop(100, 95, filled, 0.6, domain.SideLong)
	assert.InDelta(t, 99.9, stop, 1e-9)
}

func TestBreakevenStopLongSmallProfit(t *testing.T) {
	// Tiny realized profit on a large remainder: raw breakeven sits just
	// below entry, above both the original stop and the entry buffer, so it
	// is used as-is. Stopping there nets exactly zero on the remainder.
	filled := []*domain.TPAllocation{
		{Level: 1, Price: 100.05, Quantity: 0.1, Filled: true, FilledQuantity: 0.1},
	}
	stop := BreakevenStop(100, 90, filled, 0.9, domain.SideLong)
	assert.InDelta(t, 100.0-(0.05*0.1)/0.9, stop, 1e-9)
	assert.Less(t, stop, 100.0)
	assert.Greater(t, stop, 99.9)
}

func TestBreakevenStopShort(t *testing.T) {
	// Short from 100, SL 105, TP1 at 90 filled for 0.5 of 1.0.
	// Realized = 10 * 0.5 = 5. Raw breakeven = 100 + 5/0.5 = 110, which is
	// worse than the original stop; clamps to the entry buffer (100.1).
	filled := []*domain.TPAllocation{
		{Level: 1, Price: 90, Quantity: 0.5, Filled: true, FilledQuantity: 0.5},
	}
	stop := BreakevenStop(100, 105, filled, 0.5, domain.SideShort)
	assert.InDelta(t, 100.1, stop, 1e-9)
}

func TestBreakevenStopNoFillsOrNoRemainder(t *testing.T) {
	assert.Equal(t, 95.0, BreakevenStop(100, 95, nil, 0.5, domain.SideLong))

	filled := []*domain.TPAllocation{{Level: 1, Price: 110, FilledQuantity: 1.0, Filled: true}}
	assert.Equal(t, 95.0, BreakevenStop(100, 95, filled, 0, domain.SideLong))
}

func TestRiskPerLevel(t *testing.T) {
	allocations := Plan(1.0, []float64{110, 120}, nil)
	metrics := RiskPerLevel(100, 95, allocations, domain.SideLong)
	require.Len(t, metrics, 2)
	assert.InDelta(t, 5.0, metrics[0].RiskPerUnit, 1e-9)
	assert.InDelta(t, 10.0, metrics[0].RewardPerUnit, 1e-9)
	assert.InDelta(t, 2.0, metrics[0].RiskRewardRatio, 1e-9)
	assert.InDelta(t, 4.0, metrics[1].RiskRewardRatio, 1e-9)
}
