// Package contracts holds hand-rolled bindings for the three deployed
// contracts the client drives: the constant-product pair, its ERC20
// counterpart token and the token faucet.
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

const pairABIJSON = `[
  {"type":"function","name":"FEE_NUM","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"FEE_DEN","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getReserves","stateMutability":"view","inputs":[],"outputs":[{"name":"_weth","type":"uint112"},{"name":"_usdc","type":"uint112"}]},
  {"type":"function","name":"getAmountOut","stateMutability":"pure","inputs":[{"name":"amountIn","type":"uint256"},{"name":"reserveIn","type":"uint256"},{"name":"reserveOut","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"quote","stateMutability":"pure","inputs":[{"name":"amountA","type":"uint256"},{"name":"reserveA","type":"uint256"},{"name":"reserveB","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"addLiquidity","stateMutability":"payable","inputs":[{"name":"amountUSDCDesired","type":"uint256"},{"name":"amountUSDCMin","type":"uint256"}],"outputs":[{"name":"liquidity","type":"uint256"},{"name":"usedETH","type":"uint256"},{"name":"usedUSDC","type":"uint256"}]},
  {"type":"function","name":"removeLiquidity","stateMutability":"nonpayable","inputs":[{"name":"liquidity","type":"uint256"},{"name":"receiveETH","type":"bool"}],"outputs":[{"name":"amountWETH","type":"uint256"},{"name":"amountUSDC","type":"uint256"}]},
  {"type":"function","name":"swapExactETHForUSDC","stateMutability":"payable","inputs":[{"name":"amountOutMin","type":"uint256"},{"name":"to","type":"address"}],"outputs":[{"name":"amountOut","type":"uint256"}]},
  {"type":"function","name":"swapExactUSDCForETH","stateMutability":"nonpayable","inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"to","type":"address"}],"outputs":[{"name":"amountOutETH","type":"uint256"}]}
]`

// Pair binds the constant-product AMM pair. The deployed contract names
// its sides WETH/USDC; WETH is the native side and USDC is the pool token.
type Pair struct {
	address  common.Address
	contract *bind.BoundContract
}

// NewPair binds the pair at the given address.
func NewPair(address common.Address, backend bind.ContractBackend) (*Pair, error) {
	parsed, err := abi.JSON(strings.NewReader(pairABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair abi: %w", err)
	}
	return &Pair{
		address:  address,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

// Address returns the bound contract address. It doubles as the spender
// for token approvals.
func (p *Pair) Address() common.Address {
	return p.address
}

// GetReserves reads both reserves in one call.
func (p *Pair) GetReserves(ctx context.Context) (native, token *big.Int, err error) {
	var out []interface{}
	if err := p.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getReserves"); err != nil {
		return nil, nil, fmt.Errorf("getReserves: %w", err)
	}
	return out[0].(*big.Int), out[1].(*big.Int), nil
}

// FeeNum reads the fee numerator.
func (p *Pair) FeeNum(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := p.contract.Call(&bind.CallOpts{Context: ctx}, &out, "FEE_NUM"); err != nil {
		return nil, fmt.Errorf("FEE_NUM: %w", err)
	}
	return out[0].(*big.Int), nil
}

// FeeDen reads the fee denominator.
func (p *Pair) FeeDen(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := p.contract.Call(&bind.CallOpts{Context: ctx}, &out, "FEE_DEN"); err != nil {
		return nil, fmt.Errorf("FEE_DEN: %w", err)
	}
	return out[0].(*big.Int), nil
}

// GetAmountOut asks the contract for its own pricing of a swap. Used
// only to cross-check the local calculator; submissions are bounded by
// locally computed minimums.
func (p *Pair) GetAmountOut(ctx context.Context, amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	var out []interface{}
	if err := p.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getAmountOut", amountIn, reserveIn, reserveOut); err != nil {
		return nil, fmt.Errorf("getAmountOut: %w", err)
	}
	return out[0].(*big.Int), nil
}

// BalanceOf reads an account's LP unit balance.
func (p *Pair) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	var out []interface{}
	if err := p.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", account); err != nil {
		return nil, fmt.Errorf("balanceOf: %w", err)
	}
	return out[0].(*big.Int), nil
}

// TotalSupply reads the total LP units outstanding.
func (p *Pair) TotalSupply(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := p.contract.Call(&bind.CallOpts{Context: ctx}, &out, "totalSupply"); err != nil {
		return nil, fmt.Errorf("totalSupply: %w", err)
	}
	return out[0].(*big.Int), nil
}

// SwapExactETHForUSDC submits a native-to-token swap. The spend amount
// rides as opts.Value.
func (p *Pair) SwapExactETHForUSDC(opts *bind.TransactOpts, amountOutMin *big.Int, to common.Address) (*types.Transaction, error) {
	tx, err := p.contract.Transact(opts, "swapExactETHForUSDC", amountOutMin, to)
	if err != nil {
		return nil, fmt.Errorf("swapExactETHForUSDC: %w", err)
	}
	return tx, nil
}

// SwapExactUSDCForETH submits a token-to-native swap. Requires a prior
// allowance covering amountIn.
func (p *Pair) SwapExactUSDCForETH(opts *bind.TransactOpts, amountIn, amountOutMin *big.Int, to common.Address) (*types.Transaction, error) {
	tx, err := p.contract.Transact(opts, "swapExactUSDCForETH", amountIn, amountOutMin, to)
	if err != nil {
		return nil, fmt.Errorf("swapExactUSDCForETH: %w", err)
	}
	return tx, nil
}

// AddLiquidity submits a liquidity provision; the native amount rides
// as opts.Value, the token amounts are the desired and minimum bounds.
func (p *Pair) AddLiquidity(opts *bind.TransactOpts, tokenDesired, tokenMin *big.Int) (*types.Transaction, error) {
	tx, err := p.contract.Transact(opts, "addLiquidity", tokenDesired, tokenMin)
	if err != nil {
		return nil, fmt.Errorf("addLiquidity: %w", err)
	}
	return tx, nil
}

// RemoveLiquidity burns LP units, paying out the chosen side.
func (p *Pair) RemoveLiquidity(opts *bind.TransactOpts, burnUnits *big.Int, receiveNative bool) (*types.Transaction, error) {
	tx, err := p.contract.Transact(opts, "removeLiquidity", burnUnits, receiveNative)
	if err != nil {
		return nil, fmt.Errorf("removeLiquidity: %w", err)
	}
	return tx, nil
}
