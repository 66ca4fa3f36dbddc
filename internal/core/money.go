// Package core holds the domain records and the money arithmetic of the
// cooperative: fee calculation, ledger mutations and report aggregation.
//
// Currency values are float64 throughout. No rounding is applied inside the
// calculations; amounts are rounded to two decimals only when formatted for
// display.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts a user-entered decimal string to a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Returns
// ErrInvalidAmount for empty input, signs, malformed numbers, or values that
// are not strictly positive.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return 0, ErrInvalidAmount
			}
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatAmount renders an amount with two decimals and the лв. suffix.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + " лв."
}
