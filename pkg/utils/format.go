// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strings"
)

// FormatCurrency formats a dollar amount with thousands separators.
func FormatCurrency(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")
	intPart := groupThousands(parts[0])

	result := "$" + intPart + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	result := s[n-3:]
	s = s[:n-3]
	for len(s) > 3 {
		result = s[len(s)-3:] + "," + result
		s = s[:len(s)-3]
	}
	return s + "," + result
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatProfit formats a profit amount with an explicit sign.
func FormatProfit(profit float64) string {
	formatted := FormatCurrency(profit)
	if profit > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatPrice formats a quote price with five decimals, the convention
// for forex symbols.
func FormatPrice(price float64) string {
	return fmt.Sprintf("%.5f", price)
}

// FormatConfidence formats a [0,1] confidence as a percentage.
func FormatConfidence(confidence float64) string {
	return fmt.Sprintf("%.1f%%", confidence*100)
}

// FormatLots formats a volume in lots.
func FormatLots(volume float64) string {
	return fmt.Sprintf("%.2f", volume)
}
