/*
This file contains common helpers for moving amounts between wire strings and
SDK math types, with zero tolerance for silently lossy conversions.
*/

package utils

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrAmountEmpty    = errors.New("amount is empty")
	ErrAmountInvalid  = errors.New("amount is not a valid integer")
	ErrAmountNegative = errors.New("amount is negative")
)

// ParseAmount parses a base-unit integer amount from its wire representation.
func ParseAmount(s string) (sdkmath.Int, error) {
	if s == "" {
		return sdkmath.ZeroInt(), ErrAmountEmpty
	}
	amount, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %q", ErrAmountInvalid, s)
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s", ErrAmountNegative, s)
	}
	return amount, nil
}

// ParsePrice parses a decimal price from its wire representation.
func ParsePrice(s string) (sdkmath.LegacyDec, error) {
	if s == "" {
		return sdkmath.LegacyZeroDec(), ErrAmountEmpty
	}
	price, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: %q", ErrAmountInvalid, s)
	}
	if price.IsNegative() {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: %s", ErrAmountNegative, s)
	}
	return price, nil
}

// DisplayAmount renders a base-unit amount at the given decimal precision.
func DisplayAmount(amount sdkmath.Int, precision int) string {
	if precision <= 0 {
		return amount.String()
	}
	factor := sdkmath.NewIntWithDecimal(1, precision)
	return sdkmath.LegacyNewDecFromInt(amount).QuoInt(factor).String()
}
