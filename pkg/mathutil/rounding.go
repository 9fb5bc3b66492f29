// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/dubai-invest/dubai-invest/pkg/constants"
)

// RoundTo rounds a value to the given precision, e.g. 10 for one decimal or
// 100 for two decimals.
func RoundTo(val float64, precision float64) float64 {
	return math.Round(val*precision) / precision
}

// RoundPercent rounds a percentage to one decimal, i.e. display precision.
func RoundPercent(val float64) float64 {
	return RoundTo(val, constants.PercentPrecision)
}

// RoundCurrency rounds an amount to whole currency units.
func RoundCurrency(val float64) float64 {
	return math.Round(val)
}

// RoundMetric rounds a derived market metric to two decimals.
func RoundMetric(val float64) float64 {
	return RoundTo(val, constants.MetricPrecision)
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * constants.PercentageMultiplier
}

// ApplyPercentage applies a percentage to a value
func ApplyPercentage(value, percentage float64) float64 {
	return value * (percentage / constants.PercentageMultiplier)
}

// IsFinite reports whether val is neither NaN nor infinite.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}
