/*
This file contains common utility functions for converting between display-unit
decimals and the ledger's smallest integer unit, with precision handling.
*/

package utils

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrConversionFailed = errors.New("conversion failed")
)

// DecimalToSmallestUnit converts a display-unit decimal to the ledger's
// smallest integer unit at the given precision. Fractional dust below the
// smallest unit is truncated.
func DecimalToSmallestUnit(amount decimal.Decimal, precision int) (sdkmath.Int, error) {
	if precision < 0 || precision > 18 {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	if amount.IsZero() {
		return sdkmath.ZeroInt(), nil
	}

	// Shift through the decimal library and hand sdkmath a clean integer
	// string to avoid any float round trip.
	shifted := amount.Shift(int32(precision)).Truncate(0)

	result, ok := sdkmath.NewIntFromString(shifted.String())
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: cannot parse %s as integer", ErrConversionFailed, shifted.String())
	}
	if result.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}

	return result, nil
}

// SmallestUnitToDecimal converts a smallest-unit integer back to display units
// at the given precision.
func SmallestUnitToDecimal(amount sdkmath.Int, precision int) (decimal.Decimal, error) {
	if precision < 0 || precision > 18 {
		return decimal.Zero, fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}
	if amount.IsNil() {
		return decimal.Zero, ErrAmountNil
	}
	if amount.IsNegative() {
		return decimal.Zero, ErrAmountNegative
	}

	value, err := decimal.NewFromString(amount.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	return value.Shift(int32(-precision)), nil
}
