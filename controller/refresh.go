package controller

import (
	"context"
	"math/big"

	"github.com/vikitoshi/Giwa-Dex/amm"
	"github.com/vikitoshi/Giwa-Dex/oracle"
	"github.com/vikitoshi/Giwa-Dex/session"
)

// nativeHeadroom is kept back from max-spend suggestions to leave gas
// money in the account: 0.0002 ETH in base units.
var nativeHeadroom = big.NewInt(200_000_000_000_000)

// Snapshot is one refresh pass over everything the interface displays.
// Only the reserve read is load-bearing; every account-scoped field is
// best effort and nil (or zero) when unavailable.
type Snapshot struct {
	Reserves amm.Reserves
	Fee      amm.FeeRatio
	// FeeFallback is set when the fee ratio came from the documented
	// default instead of the contract.
	FeeFallback bool
	// MidPrice is tokens per native unit in base-unit terms, display only.
	MidPrice float64

	NativeBalance *big.Int
	TokenBalance  *big.Int
	Position      *amm.LPPosition

	Faucet         *Eligibility
	FaucetPerClaim *big.Int
	FaucetMax      uint8
}

// RefreshAll re-reads pool and account state for display. The session
// may be nil or disconnected; account-scoped fields are then skipped.
// Partial failures are logged and leave their field empty rather than
// failing the refresh.
func (c *Controller) RefreshAll(ctx context.Context, sess *session.Session) (*Snapshot, error) {
	reserves, err := c.oracle.FreshReserves(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Reserves: reserves,
		MidPrice: ratioFloat(reserves.Token, reserves.Native),
	}

	snap.Fee, err = c.oracle.Fee(ctx)
	if err != nil {
		c.logger.Warn("fee refresh failed, displaying default", "error", err)
		snap.Fee = oracle.DefaultFee()
		snap.FeeFallback = true
	}

	if per, err := c.faucet.AmountPerClaim(ctx); err == nil {
		snap.FaucetPerClaim = per
	} else {
		c.logger.Warn("faucet amount read failed", "error", err)
	}
	if max, err := c.faucet.MaxClaims(ctx); err == nil {
		snap.FaucetMax = max
	} else {
		c.logger.Warn("faucet max read failed", "error", err)
	}

	if !sess.Connected() {
		return snap, nil
	}
	account := sess.Account()

	if c.balances != nil {
		if bal, err := c.balances.NativeBalance(ctx, account); err == nil {
			snap.NativeBalance = bal
		} else {
			c.logger.Warn("native balance read failed", "error", err)
		}
	}
	if bal, err := c.token.BalanceOf(ctx, account); err == nil {
		snap.TokenBalance = bal
	} else {
		c.logger.Warn("token balance read failed", "error", err)
	}

	owned, err := c.pair.BalanceOf(ctx, account)
	if err == nil {
		if total, terr := c.pair.TotalSupply(ctx); terr == nil {
			pos := amm.NewLPPosition(owned, total, reserves)
			snap.Position = &pos
		} else {
			c.logger.Warn("pool supply read failed", "error", terr)
		}
	} else {
		c.logger.Warn("position read failed", "error", err)
	}

	if elig, err := c.CheckEligibility(ctx, account); err == nil {
		snap.Faucet = &elig
	} else {
		c.logger.Warn("faucet eligibility read failed", "error", err)
	}

	return snap, nil
}

// MaxSpendNative suggests the largest native amount to offer in a swap
// or deposit, holding back a gas headroom. Zero when the balance does
// not cover the headroom.
func MaxSpendNative(balance *big.Int) *big.Int {
	if balance == nil {
		return new(big.Int)
	}
	max := new(big.Int).Sub(balance, nativeHeadroom)
	if max.Sign() < 0 {
		return new(big.Int)
	}
	return max
}
