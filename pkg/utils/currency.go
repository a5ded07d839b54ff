// Package utils provides common formatting and time helpers for smevalue.
package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatGBP formats an amount in pounds sterling with thousands separators
// and pence (£1,234,567.89). Rounding is half away from zero.
func FormatGBP(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)

	negative := d.IsNegative()
	d = d.Abs()

	s := d.StringFixed(2)
	intPart, fracPart := s[:len(s)-3], s[len(s)-2:]

	formatted := "£" + groupThousands(intPart) + "." + fracPart
	if negative {
		return "-" + formatted
	}
	return formatted
}

// FormatGBPCompact formats an amount in compact notation.
// e.g., 1550000 → "£1.55m", 250000 → "£250k", 2400000000 → "£2.4bn"
func FormatGBPCompact(amount float64) string {
	d := decimal.NewFromFloat(amount)

	prefix := "£"
	if d.IsNegative() {
		prefix = "-£"
		d = d.Abs()
	}

	switch {
	case d.GreaterThanOrEqual(decimal.New(1, 9)):
		return prefix + trimDecimals(d.Div(decimal.New(1, 9))) + "bn"
	case d.GreaterThanOrEqual(decimal.New(1, 6)):
		return prefix + trimDecimals(d.Div(decimal.New(1, 6))) + "m"
	case d.GreaterThanOrEqual(decimal.New(1, 3)):
		return prefix + trimDecimals(d.Div(decimal.New(1, 3))) + "k"
	default:
		return prefix + d.Round(0).String()
	}
}

// FormatPct formats a percentage value with sign and suffix.
// e.g., 2.45 → "+2.45%", -1.23 → "-1.23%"
func FormatPct(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatMultiple formats a valuation multiple, e.g. 1.875 → "1.88x".
func FormatMultiple(m float64) string {
	return decimal.NewFromFloat(m).StringFixed(2) + "x"
}

// groupThousands inserts commas every three digits from the right.
func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// trimDecimals formats with up to 2 decimal places, removing trailing zeros.
func trimDecimals(d decimal.Decimal) string {
	s := d.StringFixed(2)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
