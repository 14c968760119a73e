// Package chain wraps the remote node connection and the bound
// contracts the controller talks to.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client is the dialed connection to the chain node. It carries both
// the raw rpc client and the typed ethclient; contracts bind against
// the latter.
type Client struct {
	Rpc *rpc.Client
	Eth *ethclient.Client
}

// Dial connects to the node and verifies it serves the expected chain.
// A wantChainID of zero skips the verification.
func Dial(ctx context.Context, endpoint string, wantChainID uint64) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc endpoint %s: %w", endpoint, err)
	}
	ethClient := ethclient.NewClient(rpcClient)

	if wantChainID != 0 {
		chainID, err := ethClient.ChainID(ctx)
		if err != nil {
			rpcClient.Close()
			return nil, fmt.Errorf("failed to read chain id: %w", err)
		}
		if chainID.Uint64() != wantChainID {
			rpcClient.Close()
			return nil, fmt.Errorf("endpoint serves chain %d, want %d", chainID.Uint64(), wantChainID)
		}
	}

	return &Client{Rpc: rpcClient, Eth: ethClient}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() {
	c.Rpc.Close()
}

// NativeBalance reads the latest native-asset balance of an account.
func (c *Client) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	bal, err := c.Eth.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read native balance of %s: %w", account.Hex(), err)
	}
	return bal, nil
}

// WaitMined blocks until the transaction is mined and returns its
// receipt. Confirmation timeouts come from the caller's context; a
// wait failure is treated by callers the same as a revert.
func (c *Client) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.Eth, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for tx %s: %w", tx.Hash().Hex(), err)
	}
	return receipt, nil
}
