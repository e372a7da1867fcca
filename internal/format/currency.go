// Package format renders monetary values in Brazilian convention.
package format

import (
	"fmt"
	"math"
	"strings"
)

// Currency returns a value formatted as Brazilian reais with thousands
// separators (e.g. "-R$ 1.234,56").
func Currency(amount float64) string {
	formatted := formatPositive(math.Abs(amount))
	if amount < 0 {
		return "-R$ " + formatted
	}
	return "R$ " + formatted
}

// Numeric returns the separated value without the currency symbol
// (e.g. "-1.234,56").
func Numeric(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
	}
	return sign + formatPositive(math.Abs(amount))
}

// formatPositive groups thousands with "." and uses "," as the decimal
// separator, always with two decimals.
func formatPositive(value float64) string {
	formatted := fmt.Sprintf("%.2f", value)
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]
	decPart := "00"
	if len(parts) == 2 {
		decPart = parts[1]
	}

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte('.')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	return intPart + "," + decPart
}
