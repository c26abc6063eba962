/*
precision.go - Scale/format/parse decimal amounts per currency precision.

PURPOSE:
  Pure, stateless functions safe for concurrent use (spec §4.1). These
  never touch the store or the cache; they only know about
  decimal.Decimal and a configured RoundingMode.

GROUNDING:
  The teacher's generic/types.go wraps shopspring/decimal in an Amount
  value type for arithmetic; this ledger keeps accounts as bare
  decimal.Decimal (the precision is carried alongside by the Currency,
  not by the value itself) but reuses the same decimal-first discipline
  instead of float64.
*/
package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundingMode mirrors spec §6's recognized `rounding-mode` values.
type RoundingMode string

const (
	RoundUp       RoundingMode = "UP"
	RoundDown     RoundingMode = "DOWN"
	RoundCeiling  RoundingMode = "CEILING"
	RoundFloor    RoundingMode = "FLOOR"
	RoundHalfUp   RoundingMode = "HALF_UP"
	RoundHalfDown RoundingMode = "HALF_DOWN"
	RoundHalfEven RoundingMode = "HALF_EVEN"
)

// ClampPrecision clamps a currency precision to the [0, 8] range
// required by spec §3.
func ClampPrecision(precision int) int {
	if precision < 0 {
		return 0
	}
	if precision > 8 {
		return 8
	}
	return precision
}

// Scale applies mode to value, producing a decimal with exactly
// precision fractional digits.
func Scale(value decimal.Decimal, precision int, mode RoundingMode) decimal.Decimal {
	places := int32(ClampPrecision(precision))
	switch mode {
	case RoundUp:
		return value.RoundUp(places)
	case RoundCeiling:
		return value.RoundCeil(places)
	case RoundFloor:
		return value.RoundFloor(places)
	case RoundHalfUp:
		return value.Round(places)
	case RoundHalfEven:
		return value.RoundBank(places)
	case RoundHalfDown:
		return roundHalfDown(value, places)
	case RoundDown:
		fallthrough
	default:
		return value.RoundDown(places)
	}
}

// roundHalfDown rounds half towards zero: exact halfway values round
// toward zero, everything else rounds to the nearer value. shopspring/
// decimal has no built-in HALF_DOWN, so this compares the fractional
// remainder against one half of the unit at `places`.
func roundHalfDown(value decimal.Decimal, places int32) decimal.Decimal {
	truncated := value.Truncate(places)
	remainder := value.Sub(truncated).Abs()
	half := decimal.New(5, -(places + 1))
	if remainder.GreaterThan(half) {
		if value.IsNegative() {
			return truncated.Sub(decimal.New(1, -places))
		}
		return truncated.Add(decimal.New(1, -places))
	}
	return truncated
}

// Format emits a thousand-separated decimal string with exactly
// precision fractional digits.
func Format(value decimal.Decimal, precision int) string {
	scaled := value.Truncate(int32(ClampPrecision(precision)))
	sign := ""
	if scaled.IsNegative() {
		sign = "-"
		scaled = scaled.Abs()
	}
	str := scaled.StringFixed(int32(ClampPrecision(precision)))
	intPart, fracPart, hasFrac := strings.Cut(str, ".")
	intPart = groupThousands(intPart)
	if hasFrac {
		return sign + intPart + "." + fracPart
	}
	return sign + intPart
}

// FormatWithSymbol prepends the currency symbol to the formatted value.
func FormatWithSymbol(value decimal.Decimal, precision int, symbol string) string {
	return symbol + Format(value, precision)
}

// IsPositive reports whether value is strictly greater than zero.
func IsPositive(value decimal.Decimal) bool { return value.IsPositive() }

// IsNonNegative reports whether value is zero or greater.
func IsNonNegative(value decimal.Decimal) bool { return !value.IsNegative() }

// ParseAmount parses text into a decimal, returning ErrInvalidAmount on
// failure (spec §4.1's "failure marker").
func ParseAmount(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return d, nil
}

func groupThousands(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}
	n := len(digits)
	if n <= 3 {
		if neg {
			return "-" + digits
		}
		return digits
	}
	var b strings.Builder
	first := n % 3
	if first == 0 {
		first = 3
	}
	b.WriteString(digits[:first])
	for i := first; i < n; i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	out := b.String()
	if neg {
		return "-" + out
	}
	return out
}
