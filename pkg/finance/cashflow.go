// Package finance provides discounted cash-flow calculations.
package finance

import (
	"math"

	"github.com/dubai-invest/dubai-invest/pkg/constants"
	"github.com/dubai-invest/dubai-invest/pkg/mathutil"
)

// IRRResult is the outcome of the Newton-Raphson IRR search.
type IRRResult struct {
	// Rate is the periodic rate as a fraction, e.g. 0.12 for 12%.
	Rate       float64
	Iterations int
	// Converged is false when the iteration budget ran out or the search hit
	// a flat or non-finite step; Rate then holds the last finite iterate.
	Converged bool
}

// HoldingCashflows builds the yearly cash-flow series of a buy, hold and sell
// investment: the equity outlay at t=0, the same net rent every year and the
// resale proceeds added to the final year.
func HoldingCashflows(equity, netAnnualRent, resaleValue float64, years int) []float64 {
	cashflows := make([]float64, 0, years+1)
	cashflows = append(cashflows, -equity)
	for i := 0; i < years; i++ {
		cashflows = append(cashflows, netAnnualRent)
	}
	cashflows[len(cashflows)-1] += resaleValue
	return cashflows
}

// NPV discounts cashflows[t] by (1+rate)^t.
func NPV(rate float64, cashflows []float64) float64 {
	npv := 0.0
	for t, cf := range cashflows {
		npv += cf / math.Pow(1+rate, float64(t))
	}
	return npv
}

// NPVDerivative is d(NPV)/d(rate).
func NPVDerivative(rate float64, cashflows []float64) float64 {
	d := 0.0
	for t, cf := range cashflows {
		d -= float64(t) * cf / math.Pow(1+rate, float64(t+1))
	}
	return d
}

// SolveIRR runs IRR with the default guess, iteration budget and tolerance.
func SolveIRR(cashflows []float64) IRRResult {
	return IRR(cashflows, constants.IRRInitialGuess, constants.IRRMaxIterations, constants.IRRTolerance)
}

// IRR searches for the rate where NPV is zero using Newton-Raphson. The
// search never fails: when it does not converge the best available iterate
// is returned with Converged unset.
func IRR(cashflows []float64, guess float64, maxIterations int, tolerance float64) IRRResult {
	result := IRRResult{Rate: guess}
	for result.Iterations < maxIterations {
		npv := NPV(result.Rate, cashflows)
		if math.Abs(npv) < tolerance {
			result.Converged = true
			return result
		}

		derivative := NPVDerivative(result.Rate, cashflows)
		if derivative == 0 || !mathutil.IsFinite(derivative) || !mathutil.IsFinite(npv) {
			return result
		}

		next := result.Rate - npv/derivative
		if !mathutil.IsFinite(next) {
			return result
		}
		result.Rate = next
		result.Iterations++
	}

	// The last step may have landed on the root.
	if math.Abs(NPV(result.Rate, cashflows)) < tolerance {
		result.Converged = true
	}
	return result
}
