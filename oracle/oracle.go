// Package oracle supplies read-through views of the remote pair state:
// reserves, fee parameters and token decimals. It owns nothing; every
// value is a short-lived cache of external ledger state, and the cache
// is invalidated after every state-mutating call.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/vikitoshi/Giwa-Dex/amm"
)

// ErrRemoteRead wraps every failed remote read. Callers on a submit
// path must treat it as "do not proceed"; stale cached values are
// acceptable only for advisory display.
var ErrRemoteRead = errors.New("remote read failed")

// DefaultFee is the documented fallback fee ratio, for advisory display
// when the fee cannot be read before a connection exists. Submission
// paths always use the fetched value.
func DefaultFee() amm.FeeRatio {
	return amm.FeeRatio{Num: big.NewInt(3), Den: big.NewInt(1000)}
}

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// PairReader is the slice of the pair contract the oracle consumes.
type PairReader interface {
	GetReserves(ctx context.Context) (native, token *big.Int, err error)
	FeeNum(ctx context.Context) (*big.Int, error)
	FeeDen(ctx context.Context) (*big.Int, error)
}

// TokenReader is the slice of the token contract the oracle consumes.
type TokenReader interface {
	Decimals(ctx context.Context) (uint8, error)
}

// Config holds the oracle's dependencies.
type Config struct {
	Pair    PairReader
	Token   TokenReader
	Logger  Logger
	Metrics *Metrics
}

func (c *Config) validate() error {
	if c.Pair == nil {
		return errors.New("config: Pair is required")
	}
	if c.Token == nil {
		return errors.New("config: Token is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

// Oracle caches the last reserve read plus the session-constant fee and
// decimals. Safe for concurrent use.
type Oracle struct {
	pair    PairReader
	token   TokenReader
	logger  Logger
	metrics *Metrics

	mu          sync.RWMutex
	reserves    amm.Reserves
	hasReserves bool
	fee         amm.FeeRatio
	hasFee      bool
	decimals    uint8
	hasDecimals bool
}

// New constructs an oracle from a validated config.
func New(cfg Config) (*Oracle, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	m := cfg.Metrics
	if m == nil {
		m = NewMetrics(nil)
	}
	return &Oracle{
		pair:    cfg.Pair,
		token:   cfg.Token,
		logger:  cfg.Logger,
		metrics: m,
	}, nil
}

// FreshReserves always reads the remote contract, updating the cache on
// success. A failure leaves the previous cache untouched.
func (o *Oracle) FreshReserves(ctx context.Context) (amm.Reserves, error) {
	o.metrics.readsTotal.WithLabelValues("reserves").Inc()
	native, token, err := o.pair.GetReserves(ctx)
	if err != nil {
		o.metrics.readFailures.WithLabelValues("reserves").Inc()
		return amm.Reserves{}, fmt.Errorf("%w: %v", ErrRemoteRead, err)
	}

	res := amm.Reserves{Native: native, Token: token}
	o.mu.Lock()
	o.reserves = res
	o.hasReserves = true
	o.mu.Unlock()

	o.logger.Debug("reserves refreshed", "native", native, "token", token)
	return res, nil
}

// CachedReserves returns the last successful reserve read, if any.
// Advisory only; never acceptable for a submission.
func (o *Oracle) CachedReserves() (amm.Reserves, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.reserves, o.hasReserves
}

// Fee reads the pair's fee ratio, cached after the first success. The
// ratio is constant for the pair's lifetime but never assumed across
// process restarts.
func (o *Oracle) Fee(ctx context.Context) (amm.FeeRatio, error) {
	o.mu.RLock()
	if o.hasFee {
		fee := o.fee
		o.mu.RUnlock()
		return fee, nil
	}
	o.mu.RUnlock()

	o.metrics.readsTotal.WithLabelValues("fee").Inc()
	num, err := o.pair.FeeNum(ctx)
	if err != nil {
		o.metrics.readFailures.WithLabelValues("fee").Inc()
		return amm.FeeRatio{}, fmt.Errorf("%w: %v", ErrRemoteRead, err)
	}
	den, err := o.pair.FeeDen(ctx)
	if err != nil {
		o.metrics.readFailures.WithLabelValues("fee").Inc()
		return amm.FeeRatio{}, fmt.Errorf("%w: %v", ErrRemoteRead, err)
	}
	if den.Sign() == 0 {
		o.metrics.readFailures.WithLabelValues("fee").Inc()
		return amm.FeeRatio{}, fmt.Errorf("%w: fee denominator is zero", ErrRemoteRead)
	}

	fee := amm.FeeRatio{Num: num, Den: den}
	o.mu.Lock()
	o.fee = fee
	o.hasFee = true
	o.mu.Unlock()

	o.logger.Info("fee ratio fetched", "num", num, "den", den)
	return fee, nil
}

// Decimals reads the token's decimal count, cached after the first
// success.
func (o *Oracle) Decimals(ctx context.Context) (uint8, error) {
	o.mu.RLock()
	if o.hasDecimals {
		dec := o.decimals
		o.mu.RUnlock()
		return dec, nil
	}
	o.mu.RUnlock()

	o.metrics.readsTotal.WithLabelValues("decimals").Inc()
	dec, err := o.token.Decimals(ctx)
	if err != nil {
		o.metrics.readFailures.WithLabelValues("decimals").Inc()
		return 0, fmt.Errorf("%w: %v", ErrRemoteRead, err)
	}

	o.mu.Lock()
	o.decimals = dec
	o.hasDecimals = true
	o.mu.Unlock()

	o.logger.Info("token decimals fetched", "decimals", dec)
	return dec, nil
}

// Invalidate drops the reserve cache. Orchestrators call it after every
// state-mutating transaction, before any dependent computation reads
// again. Fee and decimals survive; they are constant for the session.
func (o *Oracle) Invalidate() {
	o.mu.Lock()
	o.reserves = amm.Reserves{}
	o.hasReserves = false
	o.mu.Unlock()
}

// Reset additionally drops the session-scoped fee and decimals caches.
// Called when the session is rebuilt (reconnect, account change).
func (o *Oracle) Reset() {
	o.mu.Lock()
	o.reserves = amm.Reserves{}
	o.hasReserves = false
	o.fee = amm.FeeRatio{}
	o.hasFee = false
	o.decimals = 0
	o.hasDecimals = false
	o.mu.Unlock()
}
