// Package config loads client settings from an optional YAML file with
// environment overrides. Defaults target the public GIWA Sepolia
// deployment, so a bare binary works against the live testnet.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is everything the client needs to reach and use the deployment.
type Config struct {
	RPCURL  string `yaml:"rpc_url"`
	ChainID uint64 `yaml:"chain_id"`

	PairAddress   string `yaml:"pair_address"`
	TokenAddress  string `yaml:"token_address"`
	FaucetAddress string `yaml:"faucet_address"`

	ExplorerURL string  `yaml:"explorer_url"`
	SlippagePct float64 `yaml:"slippage_pct"`

	// WebhookURL receives outcome notifications as JSON POSTs; empty
	// routes notifications to the log instead.
	WebhookURL string `yaml:"webhook_url"`
	// HistoryDSN is a Postgres connection string for the transaction
	// history; empty disables persistence.
	HistoryDSN string `yaml:"history_dsn"`
	// MetricsAddr serves Prometheus metrics when set, e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr"`
	// PollIntervalSec runs a background reserve watcher at the given
	// period; zero disables it.
	PollIntervalSec uint `yaml:"poll_interval_sec"`
}

// DefaultConfig returns the GIWA Sepolia deployment parameters.
func DefaultConfig() Config {
	return Config{
		RPCURL:        "https://sepolia-rpc.giwa.io",
		ChainID:       91342,
		PairAddress:   "0xAD153c844CcAC3D2ea991170624200e54730bE74",
		TokenAddress:  "0x89b38c7414ec86eb2cb003c6362cf010b562ff1e",
		FaucetAddress: "0xE10aec8F99C0645eb2429Fa33390514Afa7E1682",
		ExplorerURL:   "https://sepolia-explorer.giwa.io",
		SlippagePct:   0.5,
	}
}

// Load builds the effective config: defaults, then the YAML file at
// path (skipped when empty), then environment variables. A .env file in
// the working directory is folded into the environment first.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setString("GIWA_RPC_URL", &c.RPCURL)
	setString("GIWA_PAIR_ADDRESS", &c.PairAddress)
	setString("GIWA_TOKEN_ADDRESS", &c.TokenAddress)
	setString("GIWA_FAUCET_ADDRESS", &c.FaucetAddress)
	setString("GIWA_EXPLORER_URL", &c.ExplorerURL)
	setString("GIWA_WEBHOOK_URL", &c.WebhookURL)
	setString("GIWA_HISTORY_DSN", &c.HistoryDSN)
	setString("GIWA_METRICS_ADDR", &c.MetricsAddr)

	if v, ok := os.LookupEnv("GIWA_CHAIN_ID"); ok {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid GIWA_CHAIN_ID: %w", err)
		}
		c.ChainID = id
	}
	if v, ok := os.LookupEnv("GIWA_POLL_INTERVAL_SEC"); ok {
		sec, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid GIWA_POLL_INTERVAL_SEC: %w", err)
		}
		c.PollIntervalSec = uint(sec)
	}
	if v, ok := os.LookupEnv("GIWA_SLIPPAGE_PCT"); ok {
		pct, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid GIWA_SLIPPAGE_PCT: %w", err)
		}
		c.SlippagePct = pct
	}
	return nil
}

func (c *Config) validate() error {
	if c.RPCURL == "" {
		return errors.New("config: rpc_url is required")
	}
	if c.ChainID == 0 {
		return errors.New("config: chain_id is required")
	}
	for name, addr := range map[string]string{
		"pair_address":   c.PairAddress,
		"token_address":  c.TokenAddress,
		"faucet_address": c.FaucetAddress,
	} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("config: %s is not a valid address: %q", name, addr)
		}
	}
	if c.SlippagePct < 0 || c.SlippagePct >= 100 {
		return fmt.Errorf("config: slippage_pct out of range: %v", c.SlippagePct)
	}
	return nil
}

// Pair returns the pair address in checksum form.
func (c *Config) Pair() common.Address { return common.HexToAddress(c.PairAddress) }

// Token returns the token address in checksum form.
func (c *Config) Token() common.Address { return common.HexToAddress(c.TokenAddress) }

// Faucet returns the faucet address in checksum form.
func (c *Config) Faucet() common.Address { return common.HexToAddress(c.FaucetAddress) }
