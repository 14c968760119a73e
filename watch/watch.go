// Package watch runs a background poll of the pool and broadcasts
// reserve movements to interested consumers. Advisory only: nothing a
// watcher emits may feed a submission, which always re-reads for
// itself.
package watch

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/vikitoshi/Giwa-Dex/amm"
)

const (
	initialRetryDelay = 1 * time.Second
	maxRetryDelay     = 30 * time.Second
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// PoolReader is the slice of the oracle the watcher consumes.
type PoolReader interface {
	FreshReserves(ctx context.Context) (amm.Reserves, error)
}

// Update is one observed change of the pool's reserves.
type Update struct {
	Reserves amm.Reserves
	// Prev is the previously observed reserves; zero on the first update.
	Prev amm.Reserves
	// Signed movement per side since Prev; zero on the first update.
	NativeDelta *big.Int
	TokenDelta  *big.Int
	At          time.Time
}

// Config holds the watcher's dependencies.
type Config struct {
	Oracle     PoolReader
	Logger     Logger
	Interval   time.Duration
	BufferSize uint
}

func (c *Config) validate() error {
	if c.Oracle == nil {
		return errors.New("config: Oracle is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Interval <= 0 {
		return errors.New("config: Interval must be positive")
	}
	if c.BufferSize < 1 {
		return errors.New("config: BufferSize must be greater than 0")
	}
	return nil
}

// Watcher polls the pool on a fixed interval and emits an Update for
// every observed reserve change. Read failures retry with backoff and
// never kill the loop; cancellation of the constructor context does.
type Watcher struct {
	oracle  PoolReader
	logger  Logger
	updates chan Update
	done    chan struct{}
}

// New starts a watcher. It stops when ctx is canceled.
func New(ctx context.Context, cfg Config) (*Watcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	w := &Watcher{
		oracle:  cfg.Oracle,
		logger:  cfg.Logger,
		updates: make(chan Update, cfg.BufferSize),
		done:    make(chan struct{}),
	}
	go w.run(ctx, cfg.Interval)
	return w, nil
}

// Updates returns the read-only channel of reserve movements. Closed
// when the watcher stops.
func (w *Watcher) Updates() <-chan Update {
	return w.updates
}

// Done is closed when the watcher has stopped.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) run(ctx context.Context, interval time.Duration) {
	defer close(w.done)
	defer close(w.updates)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		last       amm.Reserves
		haveLast   bool
		retryDelay = initialRetryDelay
	)

	poll := func() {
		reserves, err := w.oracle.FreshReserves(ctx)
		if err != nil {
			w.logger.Warn("pool poll failed, will retry", "error", err, "delay", retryDelay)
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
			}
			retryDelay = min(retryDelay*2, maxRetryDelay)
			return
		}
		retryDelay = initialRetryDelay

		if haveLast && reserves.Native.Cmp(last.Native) == 0 && reserves.Token.Cmp(last.Token) == 0 {
			return
		}

		update := Update{
			Reserves:    reserves,
			NativeDelta: new(big.Int),
			TokenDelta:  new(big.Int),
			At:          time.Now(),
		}
		if haveLast {
			update.Prev = last
			update.NativeDelta.Sub(reserves.Native, last.Native)
			update.TokenDelta.Sub(reserves.Token, last.Token)
		}
		last = reserves
		haveLast = true

		select {
		case w.updates <- update:
		default:
			w.logger.Warn("update dropped, consumer too slow")
		}
	}

	poll()
	for {
		select {
		case <-ticker.C:
			poll()
		case <-ctx.Done():
			w.logger.Info("pool watcher stopping")
			return
		}
	}
}
