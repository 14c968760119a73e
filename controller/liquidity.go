package controller

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vikitoshi/Giwa-Dex/amm"
	"github.com/vikitoshi/Giwa-Dex/amm/amounts"
	"github.com/vikitoshi/Giwa-Dex/amm/calculator"
	"github.com/vikitoshi/Giwa-Dex/report"
	"github.com/vikitoshi/Giwa-Dex/session"
)

// RecommendedCounterpart computes the token amount that matches a
// native deposit at the pool's current ratio, together with the
// slippage-bounded minimum the contract may settle at. Returns nil
// amounts when the pool is empty; the first deposit sets the ratio.
func (c *Controller) RecommendedCounterpart(ctx context.Context, nativeAmountStr string) (recommended, minimum *big.Int, err error) {
	nativeAmt, err := amounts.ToBaseUnits(nativeAmountStr, amounts.NativeDecimals)
	if err != nil {
		return nil, nil, err
	}
	if nativeAmt.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: %s", amounts.ErrInvalidAmount, nativeAmountStr)
	}

	reserves, err := c.oracle.FreshReserves(ctx)
	if err != nil {
		return nil, nil, err
	}
	if reserves.Empty() {
		return nil, nil, nil
	}

	rec := new(big.Int).Mul(nativeAmt, reserves.Token)
	rec.Div(rec, reserves.Native)
	_, liqSlip := c.Slippage()
	min, err := calculator.MinAcceptable(rec, liqSlip)
	if err != nil {
		return nil, nil, err
	}
	return rec, min, nil
}

// SubmitAddLiquidity deposits both assets. The token side is approved
// for its desired amount; the contract settles the actual token amount
// between the slippage-bounded minimum and the desired value at the
// ratio in effect when the transaction lands.
func (c *Controller) SubmitAddLiquidity(ctx context.Context, sess *session.Session, nativeAmountStr, tokenAmountStr string) (*TxOutcome, error) {
	if !sess.Connected() {
		return nil, session.ErrNotConnected
	}
	nativeAmt, err := amounts.ToBaseUnits(nativeAmountStr, amounts.NativeDecimals)
	if err != nil {
		return nil, err
	}
	tokenDec, err := c.oracle.Decimals(ctx)
	if err != nil {
		return nil, err
	}
	tokenDesired, err := amounts.ToBaseUnits(tokenAmountStr, tokenDec)
	if err != nil {
		return nil, err
	}
	if nativeAmt.Sign() <= 0 || tokenDesired.Sign() <= 0 {
		return nil, amounts.ErrInvalidAmount
	}

	c.liqMu.Lock()
	defer c.liqMu.Unlock()
	c.setState(&c.liqState, StateIdle)
	defer c.settleState(&c.liqState)

	// An empty pool is fine here: the first deposit defines the ratio
	// and the minimum bound is moot.
	if _, err := c.oracle.FreshReserves(ctx); err != nil {
		return nil, err
	}
	c.setState(&c.liqState, StateReservesValidated)

	_, liqSlip := c.Slippage()
	tokenMin, err := calculator.MinAcceptable(tokenDesired, liqSlip)
	if err != nil {
		return nil, err
	}

	opts, err := sess.Signer()
	if err != nil {
		return nil, err
	}
	account := sess.Account()

	c.setState(&c.liqState, StateApprovalPending)
	approvalHash, err := c.gate.EnsureApproved(ctx, opts, account, c.pair.Address(), tokenDesired)
	if err != nil {
		c.setState(&c.liqState, StateFailed)
		c.reportFailure(report.KindAddLiq, err)
		return nil, err
	}
	if approvalHash != (common.Hash{}) {
		c.reportConfirmed(ctx, report.KindApprove, approvalHash,
			fmt.Sprintf("approved %s spending", c.tokenSymbol(ctx)))
	}

	c.setState(&c.liqState, StateSubmitted)
	c.metrics.submissions.WithLabelValues(report.KindAddLiq).Inc()

	opts.Value = nativeAmt
	tx, err := c.pair.AddLiquidity(opts, tokenDesired, tokenMin)
	if err != nil {
		classified := classifySubmitError(err)
		c.setState(&c.liqState, StateFailed)
		c.reportFailure(report.KindAddLiq, classified)
		return nil, classified
	}
	if _, err := c.awaitReceipt(ctx, tx); err != nil {
		c.setState(&c.liqState, StateFailed)
		c.reportFailure(report.KindAddLiq, err)
		return nil, err
	}

	c.setState(&c.liqState, StateConfirmed)
	c.oracle.Invalidate()

	summary := fmt.Sprintf("added %s ETH + %s %s",
		amounts.ToDecimalString(nativeAmt, amounts.NativeDecimals),
		amounts.ToDecimalString(tokenDesired, tokenDec), c.tokenSymbol(ctx))
	c.reportConfirmed(ctx, report.KindAddLiq, tx.Hash(), summary)
	c.logger.Info("liquidity added", "tx", tx.Hash().Hex())

	return &TxOutcome{
		Kind:         report.KindAddLiq,
		Hash:         tx.Hash(),
		Summary:      summary,
		ApprovalHash: approvalHash,
	}, nil
}

// SubmitRemoveLiquidity burns a percentage of the account's position,
// read fresh at submit time, and redeems it for the chosen asset form.
func (c *Controller) SubmitRemoveLiquidity(ctx context.Context, sess *session.Session, pct int, receiveNative bool) (*TxOutcome, error) {
	if !sess.Connected() {
		return nil, session.ErrNotConnected
	}

	c.liqMu.Lock()
	defer c.liqMu.Unlock()
	c.setState(&c.liqState, StateIdle)
	defer c.settleState(&c.liqState)

	account := sess.Account()
	owned, err := c.pair.BalanceOf(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("reading position: %w", err)
	}
	burn, err := calculator.BurnUnits(owned, pct)
	if err != nil {
		return nil, err
	}
	c.setState(&c.liqState, StateReservesValidated)

	opts, err := sess.Signer()
	if err != nil {
		return nil, err
	}

	c.setState(&c.liqState, StateSubmitted)
	c.metrics.submissions.WithLabelValues(report.KindRemoveLiq).Inc()

	tx, err := c.pair.RemoveLiquidity(opts, burn, receiveNative)
	if err != nil {
		classified := classifySubmitError(err)
		c.setState(&c.liqState, StateFailed)
		c.reportFailure(report.KindRemoveLiq, classified)
		return nil, classified
	}
	if _, err := c.awaitReceipt(ctx, tx); err != nil {
		c.setState(&c.liqState, StateFailed)
		c.reportFailure(report.KindRemoveLiq, err)
		return nil, err
	}

	c.setState(&c.liqState, StateConfirmed)
	c.oracle.Invalidate()

	form := "ETH"
	if !receiveNative {
		form = c.tokenSymbol(ctx)
	}
	summary := fmt.Sprintf("removed %d%% of position as %s", pct, form)
	c.reportConfirmed(ctx, report.KindRemoveLiq, tx.Hash(), summary)
	c.logger.Info("liquidity removed", "tx", tx.Hash().Hex(), "percent", pct)

	return &TxOutcome{Kind: report.KindRemoveLiq, Hash: tx.Hash(), Summary: summary}, nil
}

// Position reads the account's LP holding and its underlying share of
// the reserves, all from fresh remote state.
func (c *Controller) Position(ctx context.Context, account common.Address) (amm.LPPosition, error) {
	reserves, err := c.oracle.FreshReserves(ctx)
	if err != nil {
		return amm.LPPosition{}, err
	}
	owned, err := c.pair.BalanceOf(ctx, account)
	if err != nil {
		return amm.LPPosition{}, fmt.Errorf("reading position: %w", err)
	}
	total, err := c.pair.TotalSupply(ctx)
	if err != nil {
		return amm.LPPosition{}, fmt.Errorf("reading pool supply: %w", err)
	}
	return amm.NewLPPosition(owned, total, reserves), nil
}
