package format

import "testing"

func TestCurrency(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "R$ 0,00"},
		{100, "R$ 100,00"},
		{1234.56, "R$ 1.234,56"},
		{1234567.89, "R$ 1.234.567,89"},
		{1000000, "R$ 1.000.000,00"},
		{-1234.56, "-R$ 1.234,56"},
		{0.5, "R$ 0,50"},
		{999.999, "R$ 1.000,00"},
	}

	for _, tt := range tests {
		if got := Currency(tt.in); got != tt.want {
			t.Errorf("Currency(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNumeric(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1234.56, "1.234,56"},
		{-42, "-42,00"},
		{0, "0,00"},
	}

	for _, tt := range tests {
		if got := Numeric(tt.in); got != tt.want {
			t.Errorf("Numeric(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
