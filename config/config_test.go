package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.validate())
	assert.Equal(t, uint64(91342), cfg.ChainID)
	assert.Equal(t, 0.5, cfg.SlippagePct)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rpc_url: http://localhost:8545\nslippage_pct: 1.0\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8545", cfg.RPCURL)
	assert.Equal(t, 1.0, cfg.SlippagePct)
	// Untouched fields keep their defaults.
	assert.Equal(t, uint64(91342), cfg.ChainID)
}

func TestEnvOverridesYAML(t *testing.T) {
	t.Setenv("GIWA_RPC_URL", "http://env:8545")
	t.Setenv("GIWA_CHAIN_ID", "1337")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://env:8545", cfg.RPCURL)
	assert.Equal(t, uint64(1337), cfg.ChainID)
}

func TestInvalidEnvValues(t *testing.T) {
	t.Setenv("GIWA_CHAIN_ID", "not-a-number")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing rpc", mutate: func(c *Config) { c.RPCURL = "" }},
		{name: "zero chain", mutate: func(c *Config) { c.ChainID = 0 }},
		{name: "bad pair address", mutate: func(c *Config) { c.PairAddress = "0x123" }},
		{name: "bad token address", mutate: func(c *Config) { c.TokenAddress = "hello" }},
		{name: "bad faucet address", mutate: func(c *Config) { c.FaucetAddress = "" }},
		{name: "slippage too high", mutate: func(c *Config) { c.SlippagePct = 100 }},
		{name: "negative slippage", mutate: func(c *Config) { c.SlippagePct = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestAddressAccessors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, common.HexToAddress(cfg.PairAddress), cfg.Pair())
	assert.Equal(t, common.HexToAddress(cfg.TokenAddress), cfg.Token())
	assert.Equal(t, common.HexToAddress(cfg.FaucetAddress), cfg.Faucet())
}
