// Command client is an interactive console for the GIWA Sepolia pool:
// quotes, swaps, liquidity management and faucet claims against the
// live deployment.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vikitoshi/Giwa-Dex/amm"
	"github.com/vikitoshi/Giwa-Dex/amm/amounts"
	"github.com/vikitoshi/Giwa-Dex/chain"
	"github.com/vikitoshi/Giwa-Dex/chain/contracts"
	"github.com/vikitoshi/Giwa-Dex/config"
	"github.com/vikitoshi/Giwa-Dex/controller"
	"github.com/vikitoshi/Giwa-Dex/gate"
	"github.com/vikitoshi/Giwa-Dex/oracle"
	"github.com/vikitoshi/Giwa-Dex/report"
	"github.com/vikitoshi/Giwa-Dex/session"
	"github.com/vikitoshi/Giwa-Dex/watch"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(logger, *configPath); err != nil {
		logger.Error("client exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	client, err := chain.Dial(ctx, cfg.RPCURL, cfg.ChainID)
	if err != nil {
		return err
	}
	defer client.Close()
	logger.Info("connected", "rpc", cfg.RPCURL, "chain", cfg.ChainID)

	pair, err := contracts.NewPair(cfg.Pair(), client.Eth)
	if err != nil {
		return err
	}
	token, err := contracts.NewERC20(cfg.Token(), client.Eth)
	if err != nil {
		return err
	}
	faucet, err := contracts.NewFaucet(cfg.Faucet(), client.Eth)
	if err != nil {
		return err
	}

	registry := prometheus.DefaultRegisterer
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	orc, err := oracle.New(oracle.Config{
		Pair:    pair,
		Token:   token,
		Logger:  logger,
		Metrics: oracle.NewMetrics(registry),
	})
	if err != nil {
		return err
	}
	approvals, err := gate.New(gate.Config{Token: token, Waiter: client, Logger: logger})
	if err != nil {
		return err
	}

	var notifier report.Notifier = report.SlogNotifier{Logger: logger}
	if cfg.WebhookURL != "" {
		notifier = report.NewWebhookSink(cfg.WebhookURL, logger)
	}
	var history report.History = report.NopHistory{}
	var store *report.HistoryStore
	if cfg.HistoryDSN != "" {
		store, err = report.NewHistoryStore(cfg.HistoryDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		history = store
	}

	ctrl, err := controller.New(controller.Config{
		Logger:      logger,
		Registry:    registry,
		Oracle:      orc,
		Gate:        approvals,
		Pair:        pair,
		Token:       token,
		Faucet:      faucet,
		Waiter:      client,
		Balances:    client,
		Notifier:    notifier,
		History:     history,
		ExplorerURL: cfg.ExplorerURL,
		SlippagePct: &cfg.SlippagePct,
	})
	if err != nil {
		return err
	}

	if cfg.PollIntervalSec > 0 {
		watcher, err := watch.New(ctx, watch.Config{
			Oracle:     orc,
			Logger:     logger,
			Interval:   time.Duration(cfg.PollIntervalSec) * time.Second,
			BufferSize: 16,
		})
		if err != nil {
			return err
		}
		go func() {
			for u := range watcher.Updates() {
				logger.Info("reserves moved",
					"native", u.Reserves.Native,
					"token", u.Reserves.Token,
					"native_delta", u.NativeDelta,
					"token_delta", u.TokenDelta)
			}
		}()
	}

	sess, err := buildSession(cfg.ChainID)
	if err != nil {
		return err
	}
	if sess.Connected() {
		logger.Info("signer loaded", "account", sess.Account().Hex())
	} else {
		logger.Info("no PRIVATE_KEY set, read-only mode")
	}

	console := &console{ctrl: ctrl, sess: sess, store: store, out: os.Stdout}
	return console.loop(ctx)
}

// buildSession derives the signing session from the PRIVATE_KEY
// environment variable. An absent key means read-only mode.
func buildSession(chainID uint64) (*session.Session, error) {
	raw := strings.TrimPrefix(os.Getenv("PRIVATE_KEY"), "0x")
	if raw == "" {
		return nil, nil
	}
	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid PRIVATE_KEY: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, new(big.Int).SetUint64(chainID))
	if err != nil {
		return nil, fmt.Errorf("failed to build signer: %w", err)
	}
	return session.New(crypto.PubkeyToAddress(key.PublicKey), opts)
}

type console struct {
	ctrl  *controller.Controller
	sess  *session.Session
	store *report.HistoryStore
	out   *os.File
}

func (c *console) loop(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)
	c.printf("giwa-dex console, type 'help' for commands\n")
	for {
		c.printf("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := c.dispatch(ctx, fields[0], fields[1:]); err != nil {
			c.printf("error: %v\n", err)
		}
	}
}

func (c *console) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		c.printf(`commands:
  refresh                         show pool and account state
  quote <amount> <eth|token>      preview a swap spending the given side
  swap <amount> <eth|token>       execute a swap spending the given side
  add <eth-amount> <token-amount> add liquidity
  match <eth-amount>              recommend the token side for a deposit
  remove <percent> <eth|token>    remove liquidity, redeemed as one asset
  claim                           claim from the faucet
  slippage [pct]                  show or set slippage tolerance
  history [n]                     show recent transactions
  quit
`)
		return nil
	case "refresh":
		return c.refresh(ctx)
	case "quote":
		return c.quote(ctx, args)
	case "swap":
		return c.swap(ctx, args)
	case "add":
		return c.addLiquidity(ctx, args)
	case "match":
		return c.match(ctx, args)
	case "remove":
		return c.removeLiquidity(ctx, args)
	case "claim":
		return c.claim(ctx)
	case "slippage":
		return c.slippage(args)
	case "history":
		return c.history(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func parseDirection(side string) (amm.Direction, error) {
	switch strings.ToLower(side) {
	case "eth", "native":
		return amm.NativeToToken, nil
	case "token", "insdr":
		return amm.TokenToNative, nil
	default:
		return 0, fmt.Errorf("unknown side %q, want eth or token", side)
	}
}

func (c *console) refresh(ctx context.Context) error {
	snap, err := c.ctrl.RefreshAll(ctx, c.sess)
	if err != nil {
		return err
	}
	c.printf("reserves: %s ETH / %s token\n",
		amounts.ToDecimalString(snap.Reserves.Native, amounts.NativeDecimals),
		snap.Reserves.Token.String())
	fee := fmt.Sprintf("%.2f%%", snap.Fee.Percent())
	if snap.FeeFallback {
		fee += " (default)"
	}
	c.printf("fee: %s  mid price: %g\n", fee, snap.MidPrice)
	if snap.NativeBalance != nil {
		c.printf("balance: %s ETH (max spend %s)\n",
			amounts.ToDecimalString(snap.NativeBalance, amounts.NativeDecimals),
			amounts.ToDecimalString(controller.MaxSpendNative(snap.NativeBalance), amounts.NativeDecimals))
	}
	if snap.TokenBalance != nil {
		c.printf("token balance: %s\n", snap.TokenBalance.String())
	}
	if snap.Position != nil && snap.Position.OwnedUnits != nil && snap.Position.OwnedUnits.Sign() > 0 {
		c.printf("position: %s LP units (%.4f%% of pool)\n",
			snap.Position.OwnedUnits.String(), snap.Position.Share()*100)
	}
	if snap.Faucet != nil {
		c.printf("faucet: eligible=%v remaining=%d of %d\n",
			snap.Faucet.CanClaim, snap.Faucet.Remaining, snap.FaucetMax)
	}
	return nil
}

func (c *console) quote(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: quote <amount> <eth|token>")
	}
	dir, err := parseDirection(args[1])
	if err != nil {
		return err
	}
	q, err := c.ctrl.GetQuote(ctx, args[0], dir)
	if err != nil {
		return err
	}
	c.printf("expected out: %s (min %s)\n", q.ExpectedOut.String(), q.MinOut.String())
	c.printf("impact: %.3f%% [%s]", q.ImpactPct, q.Band)
	if q.FeeFallback {
		c.printf(" (fee ratio defaulted)")
	}
	c.printf("\n")
	if dir == amm.TokenToNative && c.sess.Connected() {
		if needs, err := c.ctrl.NeedsApproval(ctx, c.sess.Account(), args[0]); err == nil {
			c.printf("approval required: %v\n", needs)
		}
	}
	return nil
}

func (c *console) swap(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: swap <amount> <eth|token>")
	}
	dir, err := parseDirection(args[1])
	if err != nil {
		return err
	}
	outcome, err := c.ctrl.SubmitSwap(ctx, c.sess, args[0], dir)
	if err != nil {
		return err
	}
	c.printf("confirmed %s: %s\n", outcome.Hash.Hex(), outcome.Summary)
	return nil
}

func (c *console) addLiquidity(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: add <eth-amount> <token-amount>")
	}
	outcome, err := c.ctrl.SubmitAddLiquidity(ctx, c.sess, args[0], args[1])
	if err != nil {
		return err
	}
	c.printf("confirmed %s: %s\n", outcome.Hash.Hex(), outcome.Summary)
	return nil
}

func (c *console) match(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: match <eth-amount>")
	}
	rec, min, err := c.ctrl.RecommendedCounterpart(ctx, args[0])
	if err != nil {
		return err
	}
	if rec == nil {
		c.printf("pool is empty, first deposit sets the ratio\n")
		return nil
	}
	c.printf("recommended token amount: %s (min %s)\n", rec.String(), min.String())
	return nil
}

func (c *console) removeLiquidity(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: remove <percent> <eth|token>")
	}
	pct, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid percent %q", args[0])
	}
	dir, err := parseDirection(args[1])
	if err != nil {
		return err
	}
	outcome, err := c.ctrl.SubmitRemoveLiquidity(ctx, c.sess, pct, dir == amm.NativeToToken)
	if err != nil {
		return err
	}
	c.printf("confirmed %s: %s\n", outcome.Hash.Hex(), outcome.Summary)
	return nil
}

func (c *console) claim(ctx context.Context) error {
	outcome, err := c.ctrl.SubmitClaim(ctx, c.sess)
	if err != nil {
		return err
	}
	c.printf("confirmed %s: %s\n", outcome.Hash.Hex(), outcome.Summary)
	return nil
}

func (c *console) slippage(args []string) error {
	if len(args) == 0 {
		swapPct, _ := c.ctrl.Slippage()
		c.printf("slippage: %.2f%%\n", swapPct)
		return nil
	}
	pct, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid percent %q", args[0])
	}
	if err := c.ctrl.SetSlippage(pct); err != nil {
		return err
	}
	c.printf("slippage set to %.2f%%\n", pct)
	return nil
}

func (c *console) history(ctx context.Context, args []string) error {
	if c.store == nil {
		return fmt.Errorf("history persistence not configured")
	}
	n := 10
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return fmt.Errorf("invalid count %q", args[0])
		}
		n = v
	}
	entries, err := c.store.Recent(ctx, n)
	if err != nil {
		return err
	}
	for _, e := range entries {
		c.printf("%s  %-9s %s  %s\n", e.Timestamp.Format("2006-01-02 15:04"), e.Kind, e.TxHash, e.Summary)
	}
	return nil
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
