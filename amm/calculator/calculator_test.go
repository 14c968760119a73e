package calculator

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikitoshi/Giwa-Dex/amm"
)

func feeThreePermille() amm.FeeRatio {
	return amm.FeeRatio{Num: big.NewInt(3), Den: big.NewInt(1000)}
}

func reserves(native, token int64) amm.Reserves {
	return amm.Reserves{Native: big.NewInt(native), Token: big.NewInt(token)}
}

func TestQuote(t *testing.T) {
	// in=10 against 1000/2000000 with a 0.3% fee:
	// 9970*2000000 / (1000*1000 + 9970) = 19940000000/1009970 -> 19743
	out, err := Quote(big.NewInt(10), amm.NativeToToken, reserves(1000, 2_000_000), feeThreePermille())
	require.NoError(t, err)
	assert.Equal(t, int64(19743), out.Int64())
}

func TestQuoteDirections(t *testing.T) {
	res := reserves(1000, 2_000_000)
	fee := feeThreePermille()

	forward, err := Quote(big.NewInt(10), amm.NativeToToken, res, fee)
	require.NoError(t, err)
	backward, err := Quote(big.NewInt(10_000), amm.TokenToNative, res, fee)
	require.NoError(t, err)

	// Each direction draws from its own receive side.
	assert.Negative(t, forward.Cmp(res.Token))
	assert.Negative(t, backward.Cmp(res.Native))
}

func TestQuoteMonotonic(t *testing.T) {
	res := reserves(1_000_000, 2_000_000_000)
	fee := feeThreePermille()

	prev := big.NewInt(-1)
	for _, in := range []int64{1, 10, 100, 1000, 10_000, 100_000} {
		out, err := Quote(big.NewInt(in), amm.NativeToToken, res, fee)
		require.NoError(t, err)
		assert.Positive(t, out.Cmp(prev), "output must grow with input")
		assert.Negative(t, out.Cmp(res.Token), "output must stay below the reserve")
		prev = out
	}
}

func TestQuoteErrors(t *testing.T) {
	tests := []struct {
		name     string
		amountIn *big.Int
		reserves amm.Reserves
		fee      amm.FeeRatio
		wantErr  error
	}{
		{name: "nil amount", amountIn: nil, reserves: reserves(1000, 1000), fee: feeThreePermille(), wantErr: ErrNilAmount},
		{name: "zero amount", amountIn: big.NewInt(0), reserves: reserves(1000, 1000), fee: feeThreePermille(), wantErr: ErrInvalidAmount},
		{name: "negative amount", amountIn: big.NewInt(-5), reserves: reserves(1000, 1000), fee: feeThreePermille(), wantErr: ErrInvalidAmount},
		{name: "empty pool", amountIn: big.NewInt(10), reserves: reserves(0, 1000), fee: feeThreePermille(), wantErr: ErrEmptyPool},
		{name: "missing reserves", amountIn: big.NewInt(10), reserves: amm.Reserves{}, fee: feeThreePermille(), wantErr: ErrEmptyPool},
		{name: "nil fee", amountIn: big.NewInt(10), reserves: reserves(1000, 1000), fee: amm.FeeRatio{}, wantErr: ErrInvalidFee},
		{name: "fee at one", amountIn: big.NewInt(10), reserves: reserves(1000, 1000), fee: amm.FeeRatio{Num: big.NewInt(1000), Den: big.NewInt(1000)}, wantErr: ErrInvalidFee},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Quote(tt.amountIn, amm.NativeToToken, tt.reserves, tt.fee)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMinAcceptable(t *testing.T) {
	out := big.NewInt(19743)

	// 0.5% -> 500 parts of 100000: cut = floor(19743*500/100000) = 98
	min, err := MinAcceptable(out, 0.5)
	require.NoError(t, err)
	assert.Equal(t, int64(19645), min.Int64())

	// Zero tolerance keeps the full expected output.
	min, err = MinAcceptable(out, 0)
	require.NoError(t, err)
	assert.Zero(t, min.Cmp(out))
}

func TestMinAcceptableNonIncreasing(t *testing.T) {
	out := big.NewInt(1_000_000)
	prev := new(big.Int).Add(out, big.NewInt(1))
	for _, pct := range []float64{0, 0.1, 0.5, 1, 5, 50, 99.9} {
		min, err := MinAcceptable(out, pct)
		require.NoError(t, err)
		assert.True(t, min.Cmp(prev) <= 0, "bound must not grow with tolerance")
		assert.True(t, min.Sign() >= 0)
		prev = min
	}
}

func TestMinAcceptableErrors(t *testing.T) {
	_, err := MinAcceptable(nil, 0.5)
	assert.ErrorIs(t, err, ErrNilAmount)

	for _, pct := range []float64{-0.1, 100, 250, math.NaN()} {
		_, err := MinAcceptable(big.NewInt(1), pct)
		assert.ErrorIs(t, err, ErrInvalidSlippage, "pct %v", pct)
	}
}

func TestBurnUnits(t *testing.T) {
	tests := []struct {
		name    string
		owned   *big.Int
		pct     int
		want    int64
		wantErr error
	}{
		{name: "quarter", owned: big.NewInt(1000), pct: 25, want: 250},
		{name: "full position", owned: big.NewInt(1000), pct: 100, want: 1000},
		{name: "floors down", owned: big.NewInt(999), pct: 10, want: 99},
		{name: "zero percent", owned: big.NewInt(1000), pct: 0, wantErr: ErrNothingToRemove},
		{name: "negative percent", owned: big.NewInt(1000), pct: -5, wantErr: ErrNothingToRemove},
		{name: "over hundred", owned: big.NewInt(1000), pct: 101, wantErr: ErrInvalidPercent},
		{name: "rounds to zero", owned: big.NewInt(3), pct: 10, wantErr: ErrNothingToRemove},
		{name: "empty position", owned: big.NewInt(0), pct: 50, wantErr: ErrNothingToRemove},
		{name: "nil position", owned: nil, pct: 50, wantErr: ErrNilAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			burn, err := BurnUnits(tt.owned, tt.pct)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, burn.Int64())
		})
	}
}

func TestPriceImpact(t *testing.T) {
	res := reserves(1_000_000, 2_000_000_000)
	fee := feeThreePermille()

	small, err := Quote(big.NewInt(100), amm.NativeToToken, res, fee)
	require.NoError(t, err)
	large, err := Quote(big.NewInt(200_000), amm.NativeToToken, res, fee)
	require.NoError(t, err)

	smallImpact := PriceImpact(big.NewInt(100), small, amm.NativeToToken, res)
	largeImpact := PriceImpact(big.NewInt(200_000), large, amm.NativeToToken, res)

	assert.Greater(t, largeImpact, smallImpact)
	// A tiny trade deviates by roughly the fee.
	assert.InDelta(t, 0.3, smallImpact, 0.05)
}

func TestPriceImpactDegenerate(t *testing.T) {
	assert.Zero(t, PriceImpact(nil, big.NewInt(1), amm.NativeToToken, reserves(1, 1)))
	assert.Zero(t, PriceImpact(big.NewInt(0), big.NewInt(1), amm.NativeToToken, reserves(1, 1)))
	assert.Zero(t, PriceImpact(big.NewInt(1), big.NewInt(1), amm.NativeToToken, amm.Reserves{}))
}

func TestBandFor(t *testing.T) {
	assert.Equal(t, ImpactOk, BandFor(0))
	assert.Equal(t, ImpactOk, BandFor(1))
	assert.Equal(t, ImpactWarn, BandFor(1.01))
	assert.Equal(t, ImpactWarn, BandFor(5))
	assert.Equal(t, ImpactHigh, BandFor(5.01))
}

func BenchmarkQuote(b *testing.B) {
	b.ReportAllocs()
	amountIn, _ := new(big.Int).SetString("10000000000000000000", 10)
	native, _ := new(big.Int).SetString("1000000000000000000000", 10)
	token, _ := new(big.Int).SetString("2000000000000000000000000", 10)
	res := amm.Reserves{Native: native, Token: token}
	fee := feeThreePermille()

	for i := 0; i < b.N; i++ {
		if _, err := Quote(amountIn, amm.NativeToToken, res, fee); err != nil {
			b.Fatal(err)
		}
	}
}
