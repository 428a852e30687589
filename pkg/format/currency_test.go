package format

import "testing"

func TestCurrency(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		expected string
	}{
		{"zero", 0, "£0.00"},
		{"small", 12.5, "£12.50"},
		{"thousands", 1234.5, "£1,234.50"},
		{"millions", 1234567.891, "£1,234,567.89"},
		{"rounds half away from zero", 0.125, "£0.13"},
		{"negative", -1234.567, "-£1,234.57"},
		{"negative rounding to zero", -0.001, "£0.00"},
		{"exact thousand", 100000, "£100,000.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Currency(tt.amount); got != tt.expected {
				t.Errorf("Currency(%v) = %q, expected %q", tt.amount, got, tt.expected)
			}
		})
	}
}

func TestNumericCurrency(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{0, "0.00"},
		{838.8485, "838.85"},
		{-1000, "-1,000.00"},
		{172176.85, "172,176.85"},
	}

	for _, tt := range tests {
		if got := NumericCurrency(tt.amount); got != tt.expected {
			t.Errorf("NumericCurrency(%v) = %q, expected %q", tt.amount, got, tt.expected)
		}
	}
}

func TestPlain(t *testing.T) {
	if got := Plain(125995); got != "125995.00" {
		t.Errorf("Plain() = %q", got)
	}
	if got := Plain(-2000.004); got != "-2000.00" {
		t.Errorf("Plain() = %q", got)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		value    float64
		places   int32
		expected string
	}{
		{1.759207, 4, "1.7592%"},
		{3, 2, "3.00%"},
		{83.333333, 1, "83.3%"},
	}

	for _, tt := range tests {
		if got := Percent(tt.value, tt.places); got != tt.expected {
			t.Errorf("Percent(%v, %d) = %q, expected %q", tt.value, tt.places, got, tt.expected)
		}
	}
}
