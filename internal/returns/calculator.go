/*

This file contains the projected-yield calculator for investment pools. It is
a pure function over its inputs so the presentation layer can call it freely
while the user edits an amount.

*/

package returns

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error definitions for zero-tolerance error handling
var (
	ErrNegativePrincipal = errors.New("principal is negative")
	ErrNegativeAPY       = errors.New("apy is negative")
	ErrNegativeDays      = errors.New("days held is negative")
)

var (
	daysPerYear = decimal.NewFromInt(365)
	hundred     = decimal.NewFromInt(100)
)

// Calculate computes the projected yield for a principal held for a number of
// days at a simple (non-compounding) APY, prorated daily and rounded to two
// decimal places, half up. Negative inputs are precondition violations, never
// silently clamped.
func Calculate(principal, apyPercent, daysHeld decimal.Decimal) (decimal.Decimal, error) {
	if principal.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNegativePrincipal, principal.String())
	}
	if apyPercent.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNegativeAPY, apyPercent.String())
	}
	if daysHeld.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNegativeDays, daysHeld.String())
	}

	dailyRate := apyPercent.Div(daysPerYear).Div(hundred)

	return principal.Mul(dailyRate).Mul(daysHeld).Round(2), nil
}

// CalculateForPool is a convenience wrapper taking the pool's APY in basis
// points, the form the data feed supplies it in.
func CalculateForPool(principal decimal.Decimal, apyBasisPoints int64, daysHeld decimal.Decimal) (decimal.Decimal, error) {
	apyPercent := decimal.NewFromInt(apyBasisPoints).Div(hundred)
	return Calculate(principal, apyPercent, daysHeld)
}
