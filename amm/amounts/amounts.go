// Package amounts converts between human decimal strings and integer
// base-unit amounts, parameterized by a per-asset decimal count.
package amounts

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// NativeDecimals is the fixed decimal count of the native asset (wei).
const NativeDecimals uint8 = 18

// ErrInvalidAmount is returned when a decimal string is empty, not a
// number, negative, or carries more fractional digits than the asset
// can represent.
var ErrInvalidAmount = errors.New("invalid amount")

// ToBaseUnits parses a human decimal string into base units.
// "1.5" with 18 decimals becomes 1500000000000000000. The conversion
// is exact; input that would lose precision is rejected rather than
// rounded.
func ToBaseUnits(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	if d.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}

	shifted := d.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("%w: %q exceeds %d decimal places", ErrInvalidAmount, s, decimals)
	}
	return shifted.BigInt(), nil
}

// ToDecimalString renders a base-unit amount as a decimal string.
// Total function: nil is treated as zero and any integer renders.
// Round-trip law: ToBaseUnits(ToDecimalString(x, d), d) == x for all
// non-negative x.
func ToDecimalString(x *big.Int, decimals uint8) string {
	if x == nil {
		x = new(big.Int)
	}
	s := decimal.NewFromBigInt(x, -int32(decimals)).String()
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	if s == "" || s == "-" {
		s = "0"
	}
	return s
}
