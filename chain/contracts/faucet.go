package contracts

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const faucetABIJSON = `[
  {"type":"function","name":"amountPerClaim","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"maxClaims","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"canClaim","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"ok","type":"bool"},{"name":"remaining","type":"uint8"}]},
  {"type":"function","name":"claim","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

// Faucet binds the rate-limited token faucet.
type Faucet struct {
	address  common.Address
	contract *bind.BoundContract
}

// NewFaucet binds the faucet at the given address.
func NewFaucet(address common.Address, backend bind.ContractBackend) (*Faucet, error) {
	parsed, err := abi.JSON(strings.NewReader(faucetABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse faucet abi: %w", err)
	}
	return &Faucet{
		address:  address,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

func (f *Faucet) Address() common.Address {
	return f.address
}

// AmountPerClaim reads the token amount paid out per claim.
func (f *Faucet) AmountPerClaim(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := f.contract.Call(&bind.CallOpts{Context: ctx}, &out, "amountPerClaim"); err != nil {
		return nil, fmt.Errorf("amountPerClaim: %w", err)
	}
	return out[0].(*big.Int), nil
}

// MaxClaims reads the lifetime claim cap per account.
func (f *Faucet) MaxClaims(ctx context.Context) (uint8, error) {
	var out []interface{}
	if err := f.contract.Call(&bind.CallOpts{Context: ctx}, &out, "maxClaims"); err != nil {
		return 0, fmt.Errorf("maxClaims: %w", err)
	}
	return out[0].(uint8), nil
}

// CanClaim reports whether the account may claim and how many claims
// it has left. Re-checked after every successful claim and on every
// account change.
func (f *Faucet) CanClaim(ctx context.Context, account common.Address) (bool, uint8, error) {
	var out []interface{}
	if err := f.contract.Call(&bind.CallOpts{Context: ctx}, &out, "canClaim", account); err != nil {
		return false, 0, fmt.Errorf("canClaim: %w", err)
	}
	return out[0].(bool), out[1].(uint8), nil
}

// Claim submits a faucet claim for the signing account.
func (f *Faucet) Claim(opts *bind.TransactOpts) (*types.Transaction, error) {
	tx, err := f.contract.Transact(opts, "claim")
	if err != nil {
		return nil, fmt.Errorf("claim: %w", err)
	}
	return tx, nil
}
