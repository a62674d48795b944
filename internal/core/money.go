// Package core holds the domain types shared by the pipeline: expenses,
// candidates, money and the failure taxonomy.
//
// Money is kept in cents of the base currency to avoid floating-point
// drift; floats only appear at the edges (extraction output, rate math).
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Symbols for pretty display of common currency codes. Unknown codes fall
// back to "CODE " prefix.
var currencySymbols = map[string]string{
	"INR": "₹", "USD": "$", "EUR": "€", "GBP": "£", "JPY": "¥",
	"AUD": "A$", "CAD": "C$", "SGD": "S$", "AED": "د.إ",
}

// MoneyFromFloat converts a decimal amount to cents with half-up rounding
// on the third decimal place.
func MoneyFromFloat(v float64) Money {
	return Money{Cents: int64(math.Round(v * 100))}
}

// Float returns the decimal value for display. Use cents for arithmetic.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// Round2 rounds a decimal amount to 2 places, Round4 a rate to 4 places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// FormatAmount renders an amount with its currency symbol, e.g. "₹1250.50".
// Whole amounts drop the fractional part ("₹1250").
func FormatAmount(code string, m Money) string {
	sym, ok := currencySymbols[strings.ToUpper(code)]
	if !ok {
		sym = strings.ToUpper(code) + " "
	}
	if m.Cents%100 == 0 {
		return fmt.Sprintf("%s%d", sym, m.Cents/100)
	}
	return fmt.Sprintf("%s%.2f", sym, m.Float())
}

// ParseDecimalToCents converts a decimal string to cents. It accepts both
// dot (12.34) and comma (12,34) separators and rounds half-up on the
// third decimal place. Zero and negative amounts are rejected.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}
