// Package catalog holds the product conventions shared by the cart, the
// chat widget and the catalog proxy: price coercion, identifier synthesis
// and data-shape defaults.
package catalog

import (
	"strconv"
	"strings"
)

// PriceDigits strips every character except digits and the decimal point,
// e.g. "$1,299.99" becomes "1299.99".
func PriceDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParsePrice coerces a price from a number or a currency-formatted string.
// Anything unparseable is 0.
func ParsePrice(v any) float64 {
	switch p := v.(type) {
	case nil:
		return 0
	case float64:
		return p
	case float32:
		return float64(p)
	case int:
		return float64(p)
	case int64:
		return float64(p)
	case string:
		f, err := strconv.ParseFloat(PriceDigits(p), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
