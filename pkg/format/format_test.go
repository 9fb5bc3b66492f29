package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		expected string
	}{
		{"Zero", 0, "0"},
		{"Small", 999, "999"},
		{"Thousands", 70500, "70,500"},
		{"Millions", 1500000, "1,500,000"},
		{"Rounds to whole units", 1234.6, "1,235"},
		{"Negative", -375000, "-375,000"},
		{"Negative rounding to zero", -0.4, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Amount(tt.amount))
		})
	}
}

func TestCurrency(t *testing.T) {
	assert.Equal(t, "652,500 AED", Currency(652500))
	assert.Equal(t, "-300,000 AED", Currency(-300000))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "6.0%", Percent(6))
	assert.Equal(t, "174.0%", Percent(174))
	assert.Equal(t, "-2.5%", Percent(-2.5))
}

func TestCompact(t *testing.T) {
	tests := []struct {
		n        float64
		expected string
	}{
		{1260000, "1.3M"},
		{1000000, "1.0M"},
		{8400, "8.4K"},
		{1000, "1.0K"},
		{999, "999"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, Compact(tt.n))
		})
	}
}
