// Package money converts between stored decimal amounts and gateway minor units.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fraction digits kept for every stored amount.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts an amount to integer cents. It fails instead of
// rounding when the amount carries more than two fraction digits.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("negative amount %s", amount.String())
	}
	cents := amount.Mul(hundred)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d fraction digits", amount.String(), Scale)
	}
	return cents.IntPart(), nil
}

// FromMinorUnits converts integer cents back to a decimal amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -Scale)
}

// Sum adds amounts exactly.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Format renders an amount as "$x.xx".
func Format(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(Scale)
}

// ValidPrice reports whether amount is a non-negative price with at most two fraction digits.
func ValidPrice(amount decimal.Decimal) bool {
	if amount.IsNegative() {
		return false
	}
	return amount.Equal(amount.Truncate(Scale))
}
