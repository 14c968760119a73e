package gate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikitoshi/Giwa-Dex/oracle"
)

type fakeApprover struct {
	mu        sync.Mutex
	allowance *big.Int
	readErr   error
	submitErr error

	approveCalls int
	lastAmount   *big.Int
	nonce        uint64
}

func (f *fakeApprover) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return new(big.Int).Set(f.allowance), nil
}

func (f *fakeApprover) Approve(opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.approveCalls++
	f.lastAmount = amount
	// The ledger allowance takes effect once the waiter reports mined;
	// the fake applies it eagerly, which is indistinguishable here.
	f.allowance.Set(amount)
	f.nonce++
	return types.NewTx(&types.LegacyTx{Nonce: f.nonce}), nil
}

type fakeWaiter struct {
	status uint64
	err    error
}

func (f *fakeWaiter) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.Receipt{Status: f.status, TxHash: tx.Hash()}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGate(t *testing.T, token *fakeApprover, waiter *fakeWaiter) *Gate {
	t.Helper()
	g, err := New(Config{Token: token, Waiter: waiter, Logger: testLogger()})
	require.NoError(t, err)
	return g
}

var (
	owner   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	spender = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestEnsureApprovedSubmitsOnce(t *testing.T) {
	token := &fakeApprover{allowance: big.NewInt(0)}
	g := newTestGate(t, token, &fakeWaiter{status: types.ReceiptStatusSuccessful})

	hash, err := g.EnsureApproved(context.Background(), &bind.TransactOpts{}, owner, spender, big.NewInt(100))
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, hash)
	assert.Equal(t, 1, token.approveCalls)

	// The approval is unbounded, so any later amount is covered.
	assert.Zero(t, token.lastAmount.Cmp(abi.MaxUint256))

	hash, err = g.EnsureApproved(context.Background(), &bind.TransactOpts{}, owner, spender, big.NewInt(1_000_000))
	require.NoError(t, err)
	assert.Equal(t, common.Hash{}, hash)
	assert.Equal(t, 1, token.approveCalls)
}

func TestEnsureApprovedSufficientAllowanceNoop(t *testing.T) {
	token := &fakeApprover{allowance: big.NewInt(500)}
	g := newTestGate(t, token, &fakeWaiter{status: types.ReceiptStatusSuccessful})

	hash, err := g.EnsureApproved(context.Background(), &bind.TransactOpts{}, owner, spender, big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, common.Hash{}, hash)
	assert.Zero(t, token.approveCalls)
}

func TestEnsureApprovedConcurrentCallersOneSubmission(t *testing.T) {
	token := &fakeApprover{allowance: big.NewInt(0)}
	g := newTestGate(t, token, &fakeWaiter{status: types.ReceiptStatusSuccessful})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.EnsureApproved(context.Background(), &bind.TransactOpts{}, owner, spender, big.NewInt(100))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, token.approveCalls)
}

func TestEnsureApprovedReadFailure(t *testing.T) {
	token := &fakeApprover{allowance: big.NewInt(0), readErr: errors.New("node down")}
	g := newTestGate(t, token, &fakeWaiter{status: types.ReceiptStatusSuccessful})

	_, err := g.EnsureApproved(context.Background(), &bind.TransactOpts{}, owner, spender, big.NewInt(100))
	assert.ErrorIs(t, err, oracle.ErrRemoteRead)
}

func TestEnsureApprovedSubmitFailure(t *testing.T) {
	token := &fakeApprover{allowance: big.NewInt(0), submitErr: errors.New("rejected")}
	g := newTestGate(t, token, &fakeWaiter{status: types.ReceiptStatusSuccessful})

	_, err := g.EnsureApproved(context.Background(), &bind.TransactOpts{}, owner, spender, big.NewInt(100))
	assert.ErrorIs(t, err, ErrApprovalFailed)
}

func TestEnsureApprovedReverted(t *testing.T) {
	token := &fakeApprover{allowance: big.NewInt(0)}
	g := newTestGate(t, token, &fakeWaiter{status: types.ReceiptStatusFailed})

	hash, err := g.EnsureApproved(context.Background(), &bind.TransactOpts{}, owner, spender, big.NewInt(100))
	assert.ErrorIs(t, err, ErrApprovalFailed)
	assert.NotEqual(t, common.Hash{}, hash)
}

func TestEnsureApprovedWaitFailure(t *testing.T) {
	token := &fakeApprover{allowance: big.NewInt(0)}
	g := newTestGate(t, token, &fakeWaiter{err: errors.New("timeout")})

	_, err := g.EnsureApproved(context.Background(), &bind.TransactOpts{}, owner, spender, big.NewInt(100))
	assert.ErrorIs(t, err, ErrApprovalFailed)
}

func TestNeedsApproval(t *testing.T) {
	token := &fakeApprover{allowance: big.NewInt(100)}
	g := newTestGate(t, token, &fakeWaiter{status: types.ReceiptStatusSuccessful})

	needs, err := g.NeedsApproval(context.Background(), owner, spender, big.NewInt(50))
	require.NoError(t, err)
	assert.False(t, needs)

	needs, err = g.NeedsApproval(context.Background(), owner, spender, big.NewInt(150))
	require.NoError(t, err)
	assert.True(t, needs)
}
