// Package money parses monetary amounts from raw form input. Amounts are
// fixed-point decimals; input accepts both '.' and ',' as decimal separators
// with only the final separator treated as the decimal point, so "1.234,56",
// "1234,56" and "1234.56" all mean the same value.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Parse converts a raw amount string to a decimal. Unparseable input yields
// zero rather than an error; callers that need positivity or non-zero checks
// apply them on the result.
func Parse(raw string) decimal.Decimal {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")

	// Everything before the last '.' is integer digits; strip any grouping
	// separators there so "1.234.56" reads as 1234.56.
	if idx := strings.LastIndex(cleaned, "."); idx >= 0 {
		cleaned = strings.ReplaceAll(cleaned[:idx], ".", "") + cleaned[idx:]
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return value
}
