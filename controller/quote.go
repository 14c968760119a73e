package controller

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vikitoshi/Giwa-Dex/amm"
	"github.com/vikitoshi/Giwa-Dex/amm/amounts"
	"github.com/vikitoshi/Giwa-Dex/amm/calculator"
	"github.com/vikitoshi/Giwa-Dex/oracle"
)

// Quote is an advisory swap preview at the pool state read for it. A
// quote never authorizes a submission; the submit path re-reads the
// pool and recomputes its own bound.
type Quote struct {
	Direction   amm.Direction
	AmountIn    *big.Int
	ExpectedOut *big.Int
	MinOut      *big.Int

	// Display-only figures, in the trade's own units (out per in).
	MidPrice  float64
	ExecPrice float64
	ImpactPct float64
	Band      calculator.ImpactBand

	Reserves amm.Reserves
	Fee      amm.FeeRatio

	// FeeFallback is set when the fee ratio could not be read and the
	// documented default was used instead.
	FeeFallback bool
}

// inputDecimals resolves the decimal count of the asset being spent.
func (c *Controller) inputDecimals(ctx context.Context, dir amm.Direction) (uint8, error) {
	if dir == amm.NativeToToken {
		return amounts.NativeDecimals, nil
	}
	return c.oracle.Decimals(ctx)
}

// GetQuote parses a decimal amount and previews the swap it would make
// against fresh reserves. Safe to call concurrently with anything.
func (c *Controller) GetQuote(ctx context.Context, amountStr string, dir amm.Direction) (*Quote, error) {
	decimals, err := c.inputDecimals(ctx, dir)
	if err != nil {
		return nil, err
	}
	amountIn, err := amounts.ToBaseUnits(amountStr, decimals)
	if err != nil {
		return nil, err
	}
	if amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", amounts.ErrInvalidAmount, amountStr)
	}

	reserves, err := c.oracle.FreshReserves(ctx)
	if err != nil {
		return nil, err
	}

	fee, err := c.oracle.Fee(ctx)
	fallback := false
	if err != nil {
		if !errors.Is(err, oracle.ErrRemoteRead) {
			return nil, err
		}
		// Advisory path only; the submit path refuses to run on the
		// fallback ratio.
		fee = oracle.DefaultFee()
		fallback = true
		c.logger.Warn("fee read failed, quoting with default ratio", "error", err)
	}

	expected, err := calculator.Quote(amountIn, dir, reserves, fee)
	if err != nil {
		return nil, err
	}
	swapSlip, _ := c.Slippage()
	minOut, err := calculator.MinAcceptable(expected, swapSlip)
	if err != nil {
		return nil, err
	}

	impact := calculator.PriceImpact(amountIn, expected, dir, reserves)
	reserveIn, reserveOut := reserves.In(dir)

	return &Quote{
		Direction:   dir,
		AmountIn:    amountIn,
		ExpectedOut: expected,
		MinOut:      minOut,
		MidPrice:    ratioFloat(reserveOut, reserveIn),
		ExecPrice:   ratioFloat(expected, amountIn),
		ImpactPct:   impact,
		Band:        calculator.BandFor(impact),
		Reserves:    reserves,
		Fee:         fee,
		FeeFallback: fallback,
	}, nil
}

// NeedsApproval reports whether a token-side spend of the given size
// would require an approval transaction before the action. Display
// only; the submit path settles approvals itself.
func (c *Controller) NeedsApproval(ctx context.Context, account common.Address, amountStr string) (bool, error) {
	decimals, err := c.oracle.Decimals(ctx)
	if err != nil {
		return false, err
	}
	amount, err := amounts.ToBaseUnits(amountStr, decimals)
	if err != nil {
		return false, err
	}
	return c.gate.NeedsApproval(ctx, account, c.pair.Address(), amount)
}

func ratioFloat(num, den *big.Int) float64 {
	if den == nil || den.Sign() == 0 {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(num), new(big.Float).SetInt(den)).Float64()
	return f
}
