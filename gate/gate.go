// Package gate tracks ERC20 approval state and issues the approval
// transaction a transfer depends on, exactly once per (owner, spender)
// pair at a time.
package gate

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vikitoshi/Giwa-Dex/oracle"
)

// ErrApprovalFailed is returned when an approval submission is rejected,
// reverts, or its confirmation wait fails.
var ErrApprovalFailed = errors.New("approval failed")

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// TokenApprover is the slice of the token contract the gate consumes.
type TokenApprover interface {
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Approve(opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Transaction, error)
}

// Waiter blocks until a submitted transaction is mined.
type Waiter interface {
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Config holds the gate's dependencies.
type Config struct {
	Token  TokenApprover
	Waiter Waiter
	Logger Logger
}

func (c *Config) validate() error {
	if c.Token == nil {
		return errors.New("config: Token is required")
	}
	if c.Waiter == nil {
		return errors.New("config: Waiter is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

// Gate serializes approvals per (owner, spender) pair. A second caller
// for a pair with an approval in flight blocks until the first settles,
// then re-reads the allowance instead of submitting a duplicate.
type Gate struct {
	token  TokenApprover
	waiter Waiter
	logger Logger

	mu    sync.Mutex
	pairs map[pairKey]*sync.Mutex
}

type pairKey struct {
	owner   common.Address
	spender common.Address
}

// New constructs a gate from a validated config.
func New(cfg Config) (*Gate, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Gate{
		token:  cfg.Token,
		waiter: cfg.Waiter,
		logger: cfg.Logger,
		pairs:  map[pairKey]*sync.Mutex{},
	}, nil
}

// NeedsApproval reports whether the current allowance falls short of
// the intended transfer. Read-only; safe to poll for display.
func (g *Gate) NeedsApproval(ctx context.Context, owner, spender common.Address, amount *big.Int) (bool, error) {
	allowance, err := g.token.Allowance(ctx, owner, spender)
	if err != nil {
		return false, fmt.Errorf("%w: %v", oracle.ErrRemoteRead, err)
	}
	return allowance.Cmp(amount) < 0, nil
}

// EnsureApproved makes sure the spender may move at least requiredAmount
// for the owner. If the ledger allowance already covers it, this is a
// no-op and may be called repeatedly. Otherwise it submits a single
// maximum-amount approval, so the session pays one confirmation instead
// of one per transfer, and waits for it to mine.
//
// The returned hash is empty when no transaction was needed.
func (g *Gate) EnsureApproved(ctx context.Context, opts *bind.TransactOpts, owner, spender common.Address, requiredAmount *big.Int) (common.Hash, error) {
	pair := g.pairLock(owner, spender)
	pair.Lock()
	defer pair.Unlock()

	allowance, err := g.token.Allowance(ctx, owner, spender)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", oracle.ErrRemoteRead, err)
	}
	if allowance.Cmp(requiredAmount) >= 0 {
		g.logger.Debug("allowance sufficient", "owner", owner.Hex(), "spender", spender.Hex(), "allowance", allowance)
		return common.Hash{}, nil
	}

	g.logger.Info("submitting approval", "owner", owner.Hex(), "spender", spender.Hex(), "required", requiredAmount)
	tx, err := g.token.Approve(opts, spender, abi.MaxUint256)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrApprovalFailed, err)
	}

	receipt, err := g.waiter.WaitMined(ctx, tx)
	if err != nil {
		return tx.Hash(), fmt.Errorf("%w: %v", ErrApprovalFailed, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash(), fmt.Errorf("%w: approval reverted in tx %s", ErrApprovalFailed, tx.Hash().Hex())
	}

	g.logger.Info("approval confirmed", "tx", tx.Hash().Hex())
	return tx.Hash(), nil
}

func (g *Gate) pairLock(owner, spender common.Address) *sync.Mutex {
	key := pairKey{owner: owner, spender: spender}
	g.mu.Lock()
	defer g.mu.Unlock()
	lock, ok := g.pairs[key]
	if !ok {
		lock = &sync.Mutex{}
		g.pairs[key] = lock
	}
	return lock
}
