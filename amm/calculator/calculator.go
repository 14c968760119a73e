// Package calculator implements the client-side safety arithmetic for
// the constant-product pair: expected output for a swap, slippage-bounded
// minimums, liquidity burn amounts and display price impact.
//
// Everything that can gate a submission is computed in exact big.Int
// arithmetic. Floating point appears only in display-path helpers.
package calculator

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/vikitoshi/Giwa-Dex/amm"
)

// Slippage percentages are carried as basis points of a basis point:
// pct*1000 out of 100000. This keeps the min-out bound an exact integer
// floor instead of a float multiply that can drift by one base unit.
var slipScale = big.NewInt(100_000)

var (
	// ErrNilAmount is returned when a nil pointer is passed as an amount.
	ErrNilAmount = errors.New("nil pointer passed as amount")
	// ErrInvalidAmount is returned when an amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrEmptyPool is returned when either reserve is zero; nothing can
	// be quoted or swapped against an empty pool.
	ErrEmptyPool = errors.New("pool has zero reserves")
	// ErrInvalidSlippage is returned for a slippage tolerance outside [0, 100).
	ErrInvalidSlippage = errors.New("slippage tolerance out of range")
	// ErrInvalidPercent is returned for a removal percentage above 100.
	ErrInvalidPercent = errors.New("percentage out of range")
	// ErrNothingToRemove is returned when a removal request burns zero units.
	ErrNothingToRemove = errors.New("nothing to remove")
	// ErrInvalidFee is returned when the fee ratio is missing or malformed.
	ErrInvalidFee = errors.New("invalid fee ratio")
)

// Quote computes the expected output of a swap against the given
// reserves, deducting the fee from the input side before the
// product-invariant division:
//
//	out = (in * (den-num) * reserveOut) / (reserveIn * den + in * (den-num))
//
// Pure function; callers must re-read reserves immediately before a
// real submission and quote again.
func Quote(amountIn *big.Int, dir amm.Direction, reserves amm.Reserves, fee amm.FeeRatio) (*big.Int, error) {
	if amountIn == nil {
		return nil, ErrNilAmount
	}
	if amountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if reserves.Empty() {
		return nil, ErrEmptyPool
	}
	if fee.Num == nil || fee.Den == nil || fee.Den.Sign() <= 0 || fee.Num.Cmp(fee.Den) >= 0 {
		return nil, ErrInvalidFee
	}

	reserveIn, reserveOut := reserves.In(dir)

	feeMul := new(big.Int).Sub(fee.Den, fee.Num)
	inWithFee := new(big.Int).Mul(amountIn, feeMul)
	numerator := new(big.Int).Mul(inWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, fee.Den)
	denominator.Add(denominator, inWithFee)
	if denominator.Sign() == 0 {
		return nil, fmt.Errorf("%w: zero denominator", ErrInvalidFee)
	}
	return numerator.Div(numerator, denominator), nil
}

// MinAcceptable bounds an expected output by a slippage tolerance:
//
//	minOut = out - out*floor(pct*1000)/100000
//
// computed entirely in base units. The same bound serves the
// add-liquidity minimum-counterpart amount.
func MinAcceptable(expectedOut *big.Int, slippagePct float64) (*big.Int, error) {
	if expectedOut == nil {
		return nil, ErrNilAmount
	}
	if math.IsNaN(slippagePct) || slippagePct < 0 || slippagePct >= 100 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSlippage, slippagePct)
	}

	bp := big.NewInt(int64(math.Floor(slippagePct * 1000)))
	cut := new(big.Int).Mul(expectedOut, bp)
	cut.Div(cut, slipScale)
	return new(big.Int).Sub(expectedOut, cut), nil
}

// BurnUnits converts a removal percentage into LP units to burn:
// floor(owned * pct / 100). A request that rounds to zero is rejected
// so the caller never submits a no-op redemption.
func BurnUnits(ownedUnits *big.Int, pct int) (*big.Int, error) {
	if ownedUnits == nil {
		return nil, ErrNilAmount
	}
	if pct > 100 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPercent, pct)
	}
	if pct <= 0 {
		return nil, ErrNothingToRemove
	}
	burn := new(big.Int).Mul(ownedUnits, big.NewInt(int64(pct)))
	burn.Div(burn, big.NewInt(100))
	if burn.Sign() == 0 {
		return nil, ErrNothingToRemove
	}
	return burn, nil
}

// PriceImpact returns the display deviation, in percent, between the
// execution price of a quoted trade and the pool's pre-trade midpoint.
// Informational only; it never gates a submission.
func PriceImpact(amountIn, amountOut *big.Int, dir amm.Direction, reserves amm.Reserves) float64 {
	if amountIn == nil || amountOut == nil || amountIn.Sign() == 0 || reserves.Empty() {
		return 0
	}
	reserveIn, reserveOut := reserves.In(dir)

	mid := quoFloat(reserveOut, reserveIn)
	exec := quoFloat(amountOut, amountIn)
	if mid == 0 || math.IsNaN(mid) || math.IsNaN(exec) {
		return 0
	}
	impact := math.Abs(exec-mid) / mid * 100
	if math.IsInf(impact, 0) || math.IsNaN(impact) {
		return 0
	}
	return impact
}

// ImpactBand classifies a display price impact for severity styling.
type ImpactBand uint8

const (
	ImpactOk ImpactBand = iota
	ImpactWarn
	ImpactHigh
)

func (b ImpactBand) String() string {
	switch b {
	case ImpactOk:
		return "ok"
	case ImpactWarn:
		return "warn"
	default:
		return "high"
	}
}

// BandFor buckets an impact percentage: ≤1% ok, ≤5% warn, above high.
func BandFor(impactPct float64) ImpactBand {
	switch {
	case impactPct > 5:
		return ImpactHigh
	case impactPct > 1:
		return ImpactWarn
	default:
		return ImpactOk
	}
}

func quoFloat(num, den *big.Int) float64 {
	if den.Sign() == 0 {
		return math.NaN()
	}
	q := new(big.Float).Quo(new(big.Float).SetInt(num), new(big.Float).SetInt(den))
	f, _ := q.Float64()
	return f
}
