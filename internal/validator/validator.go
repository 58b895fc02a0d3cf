// Package validator checks parsed trading signals for internal consistency
// before any exchange interaction. Checks do not short-circuit: every
// violated rule is reported.
package validator

import (
	"fmt"
	"math"
	"regexp"

	"watchcaller/internal/domain"
	"watchcaller/internal/planner"
)

// weightSumTolerance allows custom percentages to miss 100 by up to one
// point, absorbing float imprecision from the upstream parser.
const weightSumTolerance = 1.0

var coinPattern = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)

// Limits holds the configurable bounds a signal is validated against.
type Limits struct {
	MaxTPLevels     int     // Maximum number of take-profit levels
	MinTPPercentage float64 // Minimum resolved percentage per TP level
}

// Validate returns the list of rule violations for a signal. An empty slice
// means the signal is valid. The validator performs no I/O.
func Validate(sig *domain.TradingSignal, limits Limits) []string {
	var violations []string

	if sig == nil {
		return []string{"signal is nil"}
	}

	if sig.Coin == "" {
		violations = append(violations, "coin symbol is required")
	} else if !coinPattern.MatchString(sig.Coin) {
		violations = append(violations, fmt.Sprintf("coin symbol %q must match [A-Z0-9]{2,20}", sig.Coin))
	}

	if !isFinitePositive(sig.StopLoss) {
		violations = append(violations, "stop_loss must be a finite positive number")
	}

	// Market orders defer the entry price to fill time; only stop-loss
	// sanity applies. Limit orders require the full price geometry.
	if !sig.IsMarket() {
		if !isFinitePositive(sig.Entry) {
			violations = append(violations, "entry must be a finite positive number")
		}
		for i, tp := range sig.TakeProfits {
			if !isFinitePositive(tp) {
				violations = append(violations, fmt.Sprintf("take_profit %d must be a finite positive number", i+1))
			}
		}

		if isFinitePositive(sig.Entry) && isFinitePositive(sig.StopLoss) {
			switch sig.Side {
			case domain.SideShort:
				if sig.StopLoss <= sig.Entry {
					violations = append(violations, "stop_loss must be strictly above entry for short signals")
				}
			default:
				if sig.StopLoss >= sig.Entry {
					violations = append(violations, "stop_loss must be strictly below entry for long signals")
				}
			}
		}

		violations = append(violations, checkTPOrdering(sig)...)
	}

	if len(sig.TPWeights) > 0 && sig.IsMultiTP() {
		if len(sig.TPWeights) != sig.TPCount() {
			violations = append(violations, fmt.Sprintf("tp_weights count %d does not match take-profit count %d", len(sig.TPWeights), sig.TPCount()))
		} else {
			var sum float64
			for _, w := range sig.TPWeights {
				sum += w
			}
			if math.Abs(sum-100.0) > weightSumTolerance {
				violations = append(violations, fmt.Sprintf("tp_weights sum %.2f is not within %.1f of 100", sum, weightSumTolerance))
			}
		}
	}

	if limits.MaxTPLevels > 0 && sig.TPCount() > limits.MaxTPLevels {
		violations = append(violations, fmt.Sprintf("too many take-profit levels: %d > %d", sig.TPCount(), limits.MaxTPLevels))
	}

	if limits.MinTPPercentage > 0 && sig.TPCount() > 0 {
		resolved := planner.ResolveWeights(sig.TPCount(), sig.TPWeights)
		for i, pct := range resolved {
			if pct < limits.MinTPPercentage {
				violations = append(violations, fmt.Sprintf("TP%d percentage %.1f%% is below minimum %.1f%%", i+1, pct, limits.MinTPPercentage))
			}
		}
	}

	return violations
}

// checkTPOrdering verifies take-profit prices sit on the profitable side of
// entry and progress monotonically away from it.
func checkTPOrdering(sig *domain.TradingSignal) []string {
	if !isFinitePositive(sig.Entry) {
		return nil
	}

	var violations []string
	short := sig.Side == domain.SideShort
	for i, tp := range sig.TakeProfits {
		if !isFinitePositive(tp) {
			continue
		}
		if short {
			if tp >= sig.Entry {
				violations = append(violations, fmt.Sprintf("TP%d must be below entry for short signals", i+1))
			}
			if i > 0 && tp >= sig.TakeProfits[i-1] {
				violations = append(violations, fmt.Sprintf("TP%d must be lower than TP%d", i+1, i))
			}
		} else {
			if tp <= sig.Entry {
				violations = append(violations, fmt.Sprintf("TP%d must be above entry for long signals", i+1))
			}
			if i > 0 && tp <= sig.TakeProfits[i-1] {
				violations = append(violations, fmt.Sprintf("TP%d must be higher than TP%d", i+1, i))
			}
		}
	}
	return violations
}

func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
