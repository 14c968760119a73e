package oracle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePair struct {
	native, token *big.Int
	feeNum        *big.Int
	feeDen        *big.Int
	err           error

	reserveCalls int
	feeCalls     int
}

func (f *fakePair) GetReserves(ctx context.Context) (*big.Int, *big.Int, error) {
	f.reserveCalls++
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.native, f.token, nil
}

func (f *fakePair) FeeNum(ctx context.Context) (*big.Int, error) {
	f.feeCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.feeNum, nil
}

func (f *fakePair) FeeDen(ctx context.Context) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.feeDen, nil
}

type fakeToken struct {
	decimals uint8
	err      error
	calls    int
}

func (f *fakeToken) Decimals(ctx context.Context) (uint8, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.decimals, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOracle(t *testing.T, pair *fakePair, token *fakeToken) *Oracle {
	t.Helper()
	o, err := New(Config{Pair: pair, Token: token, Logger: testLogger()})
	require.NoError(t, err)
	return o
}

func TestFreshReservesAlwaysRemote(t *testing.T) {
	pair := &fakePair{native: big.NewInt(1000), token: big.NewInt(2000)}
	o := newTestOracle(t, pair, &fakeToken{decimals: 18})

	for i := 0; i < 3; i++ {
		res, err := o.FreshReserves(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1000), res.Native.Int64())
	}
	assert.Equal(t, 3, pair.reserveCalls)
}

func TestFreshReservesFailureKeepsCache(t *testing.T) {
	pair := &fakePair{native: big.NewInt(1000), token: big.NewInt(2000)}
	o := newTestOracle(t, pair, &fakeToken{decimals: 18})

	_, err := o.FreshReserves(context.Background())
	require.NoError(t, err)

	pair.err = errors.New("node down")
	_, err = o.FreshReserves(context.Background())
	assert.ErrorIs(t, err, ErrRemoteRead)

	cached, ok := o.CachedReserves()
	require.True(t, ok)
	assert.Equal(t, int64(1000), cached.Native.Int64())
}

func TestFeeCachedAfterFirstRead(t *testing.T) {
	pair := &fakePair{feeNum: big.NewInt(3), feeDen: big.NewInt(1000)}
	o := newTestOracle(t, pair, &fakeToken{decimals: 18})

	for i := 0; i < 3; i++ {
		fee, err := o.Fee(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), fee.Num.Int64())
	}
	assert.Equal(t, 1, pair.feeCalls)
}

func TestFeeZeroDenominatorRejected(t *testing.T) {
	pair := &fakePair{feeNum: big.NewInt(3), feeDen: big.NewInt(0)}
	o := newTestOracle(t, pair, &fakeToken{decimals: 18})

	_, err := o.Fee(context.Background())
	assert.ErrorIs(t, err, ErrRemoteRead)
}

func TestDecimalsCached(t *testing.T) {
	token := &fakeToken{decimals: 6}
	o := newTestOracle(t, &fakePair{}, token)

	for i := 0; i < 3; i++ {
		dec, err := o.Decimals(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint8(6), dec)
	}
	assert.Equal(t, 1, token.calls)
}

func TestDecimalsFailureNotCached(t *testing.T) {
	token := &fakeToken{decimals: 6, err: errors.New("node down")}
	o := newTestOracle(t, &fakePair{}, token)

	_, err := o.Decimals(context.Background())
	assert.ErrorIs(t, err, ErrRemoteRead)

	token.err = nil
	dec, err := o.Decimals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint8(6), dec)
	assert.Equal(t, 2, token.calls)
}

func TestInvalidateDropsOnlyReserves(t *testing.T) {
	pair := &fakePair{native: big.NewInt(1), token: big.NewInt(2), feeNum: big.NewInt(3), feeDen: big.NewInt(1000)}
	o := newTestOracle(t, pair, &fakeToken{decimals: 18})

	_, err := o.FreshReserves(context.Background())
	require.NoError(t, err)
	_, err = o.Fee(context.Background())
	require.NoError(t, err)

	o.Invalidate()

	_, ok := o.CachedReserves()
	assert.False(t, ok)

	// Fee survives invalidation; it is constant for the pair.
	_, err = o.Fee(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pair.feeCalls)
}

func TestResetDropsEverything(t *testing.T) {
	pair := &fakePair{native: big.NewInt(1), token: big.NewInt(2), feeNum: big.NewInt(3), feeDen: big.NewInt(1000)}
	token := &fakeToken{decimals: 18}
	o := newTestOracle(t, pair, token)

	_, _ = o.FreshReserves(context.Background())
	_, _ = o.Fee(context.Background())
	_, _ = o.Decimals(context.Background())

	o.Reset()

	_, ok := o.CachedReserves()
	assert.False(t, ok)
	_, err := o.Fee(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, pair.feeCalls)
	_, err = o.Decimals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, token.calls)
}

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{Token: &fakeToken{}, Logger: testLogger()})
	assert.Error(t, err)
	_, err = New(Config{Pair: &fakePair{}, Logger: testLogger()})
	assert.Error(t, err)
	_, err = New(Config{Pair: &fakePair{}, Token: &fakeToken{}})
	assert.Error(t, err)
}
