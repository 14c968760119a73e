package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vikitoshi/Giwa-Dex/amm/amounts"
	"github.com/vikitoshi/Giwa-Dex/oracle"
	"github.com/vikitoshi/Giwa-Dex/report"
	"github.com/vikitoshi/Giwa-Dex/session"
)

// Eligibility is a fresh read of an account's faucet standing.
type Eligibility struct {
	CanClaim  bool
	Remaining uint8
}

// CheckEligibility reads the account's current faucet standing.
func (c *Controller) CheckEligibility(ctx context.Context, account common.Address) (Eligibility, error) {
	ok, remaining, err := c.faucet.CanClaim(ctx, account)
	if err != nil {
		return Eligibility{}, fmt.Errorf("%w: %v", oracle.ErrRemoteRead, err)
	}
	return Eligibility{CanClaim: ok, Remaining: remaining}, nil
}

// SubmitClaim requests tokens from the rate-limited faucet. Eligibility
// is re-read immediately before submission; an exhausted account is
// refused without spending a transaction. A claim that still reverts
// is re-classified against post-revert eligibility so a race with the
// final claim surfaces as the limit error, not a generic revert.
func (c *Controller) SubmitClaim(ctx context.Context, sess *session.Session) (*TxOutcome, error) {
	if !sess.Connected() {
		return nil, session.ErrNotConnected
	}

	c.faucetMu.Lock()
	defer c.faucetMu.Unlock()
	c.setState(&c.faucetState, StateIdle)
	defer c.settleState(&c.faucetState)

	account := sess.Account()
	elig, err := c.CheckEligibility(ctx, account)
	if err != nil {
		return nil, err
	}
	if !elig.CanClaim || elig.Remaining == 0 {
		return nil, fmt.Errorf("%w: no claims remaining", ErrClaimLimitExceeded)
	}
	c.setState(&c.faucetState, StateReservesValidated)

	opts, err := sess.Signer()
	if err != nil {
		return nil, err
	}

	c.setState(&c.faucetState, StateSubmitted)
	c.metrics.submissions.WithLabelValues(report.KindFaucet).Inc()

	tx, err := c.faucet.Claim(opts)
	if err != nil {
		classified := c.classifyClaimFailure(ctx, account, classifySubmitError(err))
		c.setState(&c.faucetState, StateFailed)
		c.reportFailure(report.KindFaucet, classified)
		return nil, classified
	}
	if _, err := c.awaitReceipt(ctx, tx); err != nil {
		classified := c.classifyClaimFailure(ctx, account, err)
		c.setState(&c.faucetState, StateFailed)
		c.reportFailure(report.KindFaucet, classified)
		return nil, classified
	}

	c.setState(&c.faucetState, StateConfirmed)
	c.oracle.Invalidate()

	summary := c.claimSummary(ctx)
	c.reportConfirmed(ctx, report.KindFaucet, tx.Hash(), summary)
	c.logger.Info("faucet claim confirmed", "tx", tx.Hash().Hex())

	// Standing changes with every claim; re-read it while the result is
	// still on screen.
	if after, err := c.CheckEligibility(ctx, account); err == nil {
		c.logger.Info("faucet standing refreshed", "eligible", after.CanClaim, "remaining", after.Remaining)
	} else {
		c.logger.Warn("post-claim eligibility refresh failed", "error", err)
	}

	return &TxOutcome{Kind: report.KindFaucet, Hash: tx.Hash(), Summary: summary}, nil
}

// classifyClaimFailure upgrades a revert to the limit error when the
// account turns out to have nothing left. The eligibility read is best
// effort; if it also fails the original classification stands.
func (c *Controller) classifyClaimFailure(ctx context.Context, account common.Address, err error) error {
	if !errors.Is(err, ErrReverted) {
		return err
	}
	elig, checkErr := c.CheckEligibility(ctx, account)
	if checkErr != nil {
		c.logger.Warn("post-revert eligibility check failed", "error", checkErr)
		return err
	}
	if !elig.CanClaim || elig.Remaining == 0 {
		return fmt.Errorf("%w: %v", ErrClaimLimitExceeded, err)
	}
	return err
}

func (c *Controller) claimSummary(ctx context.Context) string {
	sym := c.tokenSymbol(ctx)
	amount, err := c.faucet.AmountPerClaim(ctx)
	if err != nil {
		return fmt.Sprintf("claimed %s", sym)
	}
	dec, err := c.oracle.Decimals(ctx)
	if err != nil {
		return fmt.Sprintf("claimed %s", sym)
	}
	return fmt.Sprintf("claimed %s %s", amounts.ToDecimalString(amount, dec), sym)
}
