// Package controller sequences user-facing actions (swap, add and
// remove liquidity, faucet claim) into ordered approval and action
// submissions against the remote ledger, re-validating pool state
// immediately before every submission.
package controller

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vikitoshi/Giwa-Dex/amm/calculator"
	"github.com/vikitoshi/Giwa-Dex/oracle"
	"github.com/vikitoshi/Giwa-Dex/report"
)

var (
	// ErrReverted is returned when a submitted transaction reverts or its
	// confirmation wait fails; the two are indistinguishable to the state
	// machine. Never retried automatically.
	ErrReverted = errors.New("transaction reverted")
	// ErrClaimLimitExceeded refines ErrReverted for faucet claims denied
	// because the account exhausted its claims.
	ErrClaimLimitExceeded = errors.New("claim limit exceeded")
	// ErrUnknownFailure wraps unexpected remote errors on the submit path.
	ErrUnknownFailure = errors.New("unknown failure")
)

// DefaultSlippagePct matches the interface default of 0.5%.
const DefaultSlippagePct = 0.5

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Pair is the slice of the pair contract the controller consumes.
type Pair interface {
	Address() common.Address
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
	SwapExactETHForUSDC(opts *bind.TransactOpts, amountOutMin *big.Int, to common.Address) (*types.Transaction, error)
	SwapExactUSDCForETH(opts *bind.TransactOpts, amountIn, amountOutMin *big.Int, to common.Address) (*types.Transaction, error)
	AddLiquidity(opts *bind.TransactOpts, tokenDesired, tokenMin *big.Int) (*types.Transaction, error)
	RemoveLiquidity(opts *bind.TransactOpts, burnUnits *big.Int, receiveNative bool) (*types.Transaction, error)
}

// Token is the slice of the token contract the controller consumes.
type Token interface {
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	Symbol(ctx context.Context) (string, error)
}

// Faucet is the slice of the faucet contract the controller consumes.
type Faucet interface {
	AmountPerClaim(ctx context.Context) (*big.Int, error)
	MaxClaims(ctx context.Context) (uint8, error)
	CanClaim(ctx context.Context, account common.Address) (bool, uint8, error)
	Claim(opts *bind.TransactOpts) (*types.Transaction, error)
}

// Approver is the slice of the allowance gate the controller consumes.
type Approver interface {
	EnsureApproved(ctx context.Context, opts *bind.TransactOpts, owner, spender common.Address, requiredAmount *big.Int) (common.Hash, error)
	NeedsApproval(ctx context.Context, owner, spender common.Address, amount *big.Int) (bool, error)
}

// Waiter blocks until a submitted transaction is mined.
type Waiter interface {
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// BalanceReader reads native-asset balances.
type BalanceReader interface {
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
}

// Config holds the controller's dependencies.
type Config struct {
	Logger   Logger
	Registry prometheus.Registerer // optional
	Oracle   *oracle.Oracle
	Gate     Approver
	Pair     Pair
	Token    Token
	Faucet   Faucet
	Waiter   Waiter
	Balances BalanceReader // optional; native balance display only

	Notifier report.Notifier // optional, defaults to NopNotifier
	History  report.History  // optional, defaults to NopHistory

	ExplorerURL string // optional, base URL for tx links

	// SlippagePct is the starting tolerance in [0, 100). Nil means
	// DefaultSlippagePct; an explicit zero is honored.
	SlippagePct *float64
}

func (c *Config) validate() error {
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Oracle == nil {
		return errors.New("config: Oracle is required")
	}
	if c.Gate == nil {
		return errors.New("config: Gate is required")
	}
	if c.Pair == nil {
		return errors.New("config: Pair is required")
	}
	if c.Token == nil {
		return errors.New("config: Token is required")
	}
	if c.Faucet == nil {
		return errors.New("config: Faucet is required")
	}
	if c.Waiter == nil {
		return errors.New("config: Waiter is required")
	}
	return nil
}

// OpState is an orchestrator's position in its submission lifecycle.
type OpState uint8

const (
	StateIdle OpState = iota
	StateReservesValidated
	StateApprovalPending
	StateSubmitted
	StateConfirmed
	StateFailed
)

func (s OpState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReservesValidated:
		return "reserves-validated"
	case StateApprovalPending:
		return "approval-pending"
	case StateSubmitted:
		return "submitted"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Controller exposes one operation per user action. Each orchestrator
// serializes its own submissions; quotes run concurrently with anything
// since they only read.
type Controller struct {
	logger  Logger
	metrics *metrics

	oracle   *oracle.Oracle
	gate     Approver
	pair     Pair
	token    Token
	faucet   Faucet
	waiter   Waiter
	balances BalanceReader

	notifier report.Notifier
	history  report.History
	explorer string

	// Per-orchestrator submission locks; a second submission of the same
	// action waits for the first and then re-validates from scratch.
	swapMu   sync.Mutex
	liqMu    sync.Mutex
	faucetMu sync.Mutex

	stateMu     sync.RWMutex
	swapState   OpState
	liqState    OpState
	faucetState OpState

	slipMu      sync.RWMutex
	slippagePct float64
	slippageLiq float64

	symOnce sync.Once
	symbol  string
}

// tokenSymbol returns the token's display symbol, fetched once per
// process. A failed read falls back to a generic label; symbols only
// ever appear in summaries and logs.
func (c *Controller) tokenSymbol(ctx context.Context) string {
	c.symOnce.Do(func() {
		sym, err := c.token.Symbol(ctx)
		if err != nil {
			c.logger.Warn("token symbol read failed", "error", err)
			sym = "TOKEN"
		}
		c.symbol = sym
	})
	return c.symbol
}

// New constructs a controller from a validated config.
func New(cfg Config) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Notifier == nil {
		cfg.Notifier = report.NopNotifier{}
	}
	if cfg.History == nil {
		cfg.History = report.NopHistory{}
	}
	slip := float64(DefaultSlippagePct)
	if cfg.SlippagePct != nil {
		slip = *cfg.SlippagePct
	}
	if math.IsNaN(slip) || slip < 0 || slip >= 100 {
		return nil, fmt.Errorf("config: %w: %v", calculator.ErrInvalidSlippage, slip)
	}

	return &Controller{
		logger:      cfg.Logger,
		metrics:     newMetrics(cfg.Registry),
		oracle:      cfg.Oracle,
		gate:        cfg.Gate,
		pair:        cfg.Pair,
		token:       cfg.Token,
		faucet:      cfg.Faucet,
		waiter:      cfg.Waiter,
		balances:    cfg.Balances,
		notifier:    cfg.Notifier,
		history:     cfg.History,
		explorer:    strings.TrimRight(cfg.ExplorerURL, "/"),
		slippagePct: slip,
		slippageLiq: slip,
	}, nil
}

// SetSlippage updates the shared slippage tolerance for both the swap
// and liquidity flows, as a percentage in [0, 100).
func (c *Controller) SetSlippage(pct float64) error {
	if math.IsNaN(pct) || pct < 0 || pct >= 100 {
		return fmt.Errorf("%w: %v", calculator.ErrInvalidSlippage, pct)
	}
	c.slipMu.Lock()
	c.slippagePct = pct
	c.slippageLiq = pct
	c.slipMu.Unlock()
	return nil
}

// Slippage returns the current swap and liquidity tolerances.
func (c *Controller) Slippage() (swapPct, liqPct float64) {
	c.slipMu.RLock()
	defer c.slipMu.RUnlock()
	return c.slippagePct, c.slippageLiq
}

// SwapState reports the swap orchestrator's last state.
func (c *Controller) SwapState() OpState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.swapState
}

// LiquidityState reports the liquidity orchestrator's last state.
func (c *Controller) LiquidityState() OpState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.liqState
}

// FaucetState reports the faucet orchestrator's last state.
func (c *Controller) FaucetState() OpState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.faucetState
}

func (c *Controller) setState(which *OpState, s OpState) {
	c.stateMu.Lock()
	*which = s
	c.stateMu.Unlock()
}

// settleState runs deferred at the end of an orchestrator. An abort
// before anything was submitted leaves no terminal state behind, so
// the getters report idle instead of a half-finished phase.
func (c *Controller) settleState(which *OpState) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if *which != StateConfirmed && *which != StateFailed {
		*which = StateIdle
	}
}

// TxOutcome describes one settled submission.
type TxOutcome struct {
	Kind    string
	Hash    common.Hash
	Summary string

	// ApprovalHash is set when an approval transaction preceded the
	// action; zero otherwise.
	ApprovalHash common.Hash
}

func (c *Controller) explorerLink(hash common.Hash) string {
	if c.explorer == "" {
		return ""
	}
	return fmt.Sprintf("%s/tx/%s", c.explorer, hash.Hex())
}

// reportConfirmed fans a settled transaction out to the history and
// notification sinks. Sink failures are display-path only and never
// fail the operation.
func (c *Controller) reportConfirmed(ctx context.Context, kind string, hash common.Hash, summary string) {
	entry := report.Entry{
		Kind:      kind,
		TxHash:    hash.Hex(),
		Summary:   summary,
		Timestamp: time.Now(),
	}
	if err := c.history.Record(ctx, entry); err != nil {
		c.logger.Warn("history record failed", "kind", kind, "tx", hash.Hex(), "error", err)
	}
	c.notifier.Notify(report.SeverityOK, fmt.Sprintf("%s confirmed: %s", kind, summary), c.explorerLink(hash))
	c.metrics.confirmations.WithLabelValues(kind).Inc()
}

func (c *Controller) reportFailure(kind string, err error) {
	c.notifier.Notify(report.SeverityError, fmt.Sprintf("%s failed: %v", kind, err), "")
	c.metrics.failures.WithLabelValues(kind).Inc()
}

// awaitReceipt waits out a submission and folds every failure mode into
// the revert branch of the taxonomy.
func (c *Controller) awaitReceipt(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := c.waiter.WaitMined(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReverted, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: tx %s", ErrReverted, tx.Hash().Hex())
	}
	return receipt, nil
}

// classifySubmitError maps a raw submission error onto the taxonomy.
func classifySubmitError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "execution reverted") {
		return fmt.Errorf("%w: %v", ErrReverted, err)
	}
	return fmt.Errorf("%w: %v", ErrUnknownFailure, err)
}
