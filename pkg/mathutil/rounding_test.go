package mathutil

import (
	"math"
	"testing"
)

func TestRoundPercent(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"Round up at midpoint", 4.75, 4.8},
		{"Round down below midpoint", 4.74, 4.7},
		{"No rounding needed", 6.0, 6.0},
		{"Long fraction", 173.99999, 174.0},
		{"Negative number", -1.26, -1.3},
		{"Zero", 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RoundPercent(tt.input)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("RoundPercent(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRoundCurrency(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"Whole amount", 70500, 70500},
		{"Fraction below half", 1234.49, 1234},
		{"Fraction at half", 1234.5, 1235},
		{"Negative amount", -300000.4, -300000},
		{"Zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RoundCurrency(tt.input)
			if result != tt.expected {
				t.Errorf("RoundCurrency(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRoundMetric(t *testing.T) {
	if got := RoundMetric(7.8049); math.Abs(got-7.8) > 1e-9 {
		t.Errorf("RoundMetric(7.8049) = %v, expected 7.8", got)
	}
	if got := RoundMetric(52.345678); math.Abs(got-52.35) > 1e-9 {
		t.Errorf("RoundMetric(52.345678) = %v, expected 52.35", got)
	}
}

func TestWithinTolerance(t *testing.T) {
	tests := []struct {
		name      string
		val1      float64
		val2      float64
		tolerance float64
		expected  bool
	}{
		{"Exactly equal", 1.0, 1.0, 0.1, true},
		{"Within tolerance", 1.0, 1.05, 0.1, true},
		{"Outside tolerance", 1.0, 1.15, 0.1, false},
		{"Zero tolerance exact match", 1.0, 1.0, 0.0, true},
		{"Zero tolerance no match", 1.0, 1.001, 0.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := WithinTolerance(tt.val1, tt.val2, tt.tolerance)
			if result != tt.expected {
				t.Errorf("WithinTolerance(%v, %v, %v) = %v, expected %v",
					tt.val1, tt.val2, tt.tolerance, result, tt.expected)
			}
		})
	}
}

func TestCalculatePercentage(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		total    float64
		expected float64
	}{
		{"Gross yield", 90000, 1500000, 6.0},
		{"Net yield", 70500, 1500000, 4.7},
		{"Zero total", 50.0, 0.0, 0.0},
		{"Negative value", -50.0, 100.0, -50.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculatePercentage(tt.value, tt.total)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("CalculatePercentage(%v, %v) = %v, expected %v",
					tt.value, tt.total, result, tt.expected)
			}
		})
	}
}

func TestApplyPercentage(t *testing.T) {
	tests := []struct {
		name       string
		value      float64
		percentage float64
		expected   float64
	}{
		{"Vacancy loss", 90000, 5, 4500},
		{"Zero percentage", 100.0, 0.0, 0.0},
		{"Full percentage", 100.0, 100.0, 100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ApplyPercentage(tt.value, tt.percentage)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("ApplyPercentage(%v, %v) = %v, expected %v",
					tt.value, tt.percentage, result, tt.expected)
			}
		})
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(1.5) {
		t.Error("expected 1.5 to be finite")
	}
	if IsFinite(math.NaN()) {
		t.Error("expected NaN to be non-finite")
	}
	if IsFinite(math.Inf(-1)) {
		t.Error("expected -Inf to be non-finite")
	}
}
