package controller

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vikitoshi/Giwa-Dex/amm"
	"github.com/vikitoshi/Giwa-Dex/amm/amounts"
	"github.com/vikitoshi/Giwa-Dex/amm/calculator"
	"github.com/vikitoshi/Giwa-Dex/report"
	"github.com/vikitoshi/Giwa-Dex/session"
)

// SubmitSwap executes a swap end to end: fresh reserve read, quote,
// slippage bound, token approval when spending the token side, then
// submission and confirmation wait. Concurrent calls are serialized;
// the later caller re-validates against post-trade state.
func (c *Controller) SubmitSwap(ctx context.Context, sess *session.Session, amountStr string, dir amm.Direction) (*TxOutcome, error) {
	if !sess.Connected() {
		return nil, session.ErrNotConnected
	}
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

	c.swapMu.Lock()
	defer c.swapMu.Unlock()
	c.setState(&c.swapState, StateIdle)
	defer c.settleState(&c.swapState)

	// Quotes shown earlier are advisory; the bound sent on-chain comes
	// from this read and nothing older.
	reserves, err := c.oracle.FreshReserves(ctx)
	if err != nil {
		return nil, err
	}
	if reserves.Empty() {
		return nil, calculator.ErrEmptyPool
	}
	c.setState(&c.swapState, StateReservesValidated)

	fee, err := c.oracle.Fee(ctx)
	if err != nil {
		return nil, err
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

	opts, err := sess.Signer()
	if err != nil {
		return nil, err
	}
	account := sess.Account()

	var approvalHash common.Hash
	if dir == amm.TokenToNative {
		c.setState(&c.swapState, StateApprovalPending)
		approvalHash, err = c.gate.EnsureApproved(ctx, opts, account, c.pair.Address(), amountIn)
		if err != nil {
			c.setState(&c.swapState, StateFailed)
			c.reportFailure(report.KindSwap, err)
			return nil, err
		}
		if approvalHash != (common.Hash{}) {
			c.reportConfirmed(ctx, report.KindApprove, approvalHash,
				fmt.Sprintf("approved %s spending", c.tokenSymbol(ctx)))
		}
	}

	c.setState(&c.swapState, StateSubmitted)
	c.metrics.submissions.WithLabelValues(report.KindSwap).Inc()

	var tx *types.Transaction
	if dir == amm.NativeToToken {
		opts.Value = amountIn
		tx, err = c.pair.SwapExactETHForUSDC(opts, minOut, account)
	} else {
		tx, err = c.pair.SwapExactUSDCForETH(opts, amountIn, minOut, account)
	}
	if err != nil {
		classified := classifySubmitError(err)
		c.setState(&c.swapState, StateFailed)
		c.reportFailure(report.KindSwap, classified)
		return nil, classified
	}

	if _, err := c.awaitReceipt(ctx, tx); err != nil {
		c.setState(&c.swapState, StateFailed)
		c.reportFailure(report.KindSwap, err)
		return nil, err
	}

	c.setState(&c.swapState, StateConfirmed)
	c.oracle.Invalidate()

	summary := c.swapSummary(ctx, amountIn, expected, dir, decimals)
	c.reportConfirmed(ctx, report.KindSwap, tx.Hash(), summary)
	c.logger.Info("swap confirmed", "tx", tx.Hash().Hex(), "direction", dir.String())

	return &TxOutcome{
		Kind:         report.KindSwap,
		Hash:         tx.Hash(),
		Summary:      summary,
		ApprovalHash: approvalHash,
	}, nil
}

func (c *Controller) swapSummary(ctx context.Context, amountIn, expectedOut *big.Int, dir amm.Direction, inDecimals uint8) string {
	sym := c.tokenSymbol(ctx)
	tokenDec, err := c.oracle.Decimals(ctx)
	if err != nil {
		tokenDec = amounts.NativeDecimals
	}
	if dir == amm.NativeToToken {
		return fmt.Sprintf("%s ETH for ~%s %s",
			amounts.ToDecimalString(amountIn, inDecimals),
			amounts.ToDecimalString(expectedOut, tokenDec), sym)
	}
	return fmt.Sprintf("%s %s for ~%s ETH",
		amounts.ToDecimalString(amountIn, inDecimals), sym,
		amounts.ToDecimalString(expectedOut, amounts.NativeDecimals))
}
