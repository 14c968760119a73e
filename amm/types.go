package amm

import "math/big"

// Direction selects which side of the pair a swap spends.
type Direction uint8

const (
	// NativeToToken spends ETH and receives the pool token.
	NativeToToken Direction = iota
	// TokenToNative spends the pool token and receives ETH.
	TokenToNative
)

func (d Direction) String() string {
	if d == NativeToToken {
		return "native->token"
	}
	return "token->native"
}

// Reserves is a single atomic read of the pair's reserves.
// Both sides must be nonzero for the pool to be quotable; the remote
// contract gives no snapshot isolation, so a value read for display
// must never be reused for a submission.
type Reserves struct {
	Native *big.Int `json:"native"`
	Token  *big.Int `json:"token"`
}

// Empty reports whether either side of the pool is zero or missing.
func (r Reserves) Empty() bool {
	return r.Native == nil || r.Token == nil || r.Native.Sign() == 0 || r.Token.Sign() == 0
}

// In returns the spend-side and receive-side reserves for a direction.
func (r Reserves) In(d Direction) (reserveIn, reserveOut *big.Int) {
	if d == NativeToToken {
		return r.Native, r.Token
	}
	return r.Token, r.Native
}

// FeeRatio is the pair's swap fee as an exact fraction, e.g. 3/1000 for 0.3%.
type FeeRatio struct {
	Num *big.Int `json:"num"`
	Den *big.Int `json:"den"`
}

// Percent returns the fee as a display percentage. Never used on the
// submit path; the integer Num/Den form is canonical there.
func (f FeeRatio) Percent() float64 {
	if f.Den == nil || f.Den.Sign() == 0 {
		return 0
	}
	num, _ := new(big.Float).SetInt(f.Num).Float64()
	den, _ := new(big.Float).SetInt(f.Den).Float64()
	return num / den * 100
}

// LPPosition is a derived view of a provider's share of the pool.
// It is recomputed on every refresh; reserves and total supply both
// move underneath it.
type LPPosition struct {
	OwnedUnits *big.Int
	TotalUnits *big.Int

	// Underlying entitlements at the reserves the position was computed
	// against: share * reserve per side.
	UnderlyingNative *big.Int
	UnderlyingToken  *big.Int
}

// Share returns ownedUnits/totalUnits as a display fraction in [0,1].
// Zero when the pool has no supply.
func (p LPPosition) Share() float64 {
	if p.TotalUnits == nil || p.TotalUnits.Sign() == 0 {
		return 0
	}
	owned, _ := new(big.Float).SetInt(p.OwnedUnits).Float64()
	total, _ := new(big.Float).SetInt(p.TotalUnits).Float64()
	return owned / total
}

// NewLPPosition derives the position view from raw ledger reads.
func NewLPPosition(owned, total *big.Int, reserves Reserves) LPPosition {
	pos := LPPosition{
		OwnedUnits:       owned,
		TotalUnits:       total,
		UnderlyingNative: new(big.Int),
		UnderlyingToken:  new(big.Int),
	}
	if total == nil || total.Sign() == 0 || owned == nil {
		return pos
	}
	// entitlement = reserve * owned / total, floored
	if reserves.Native != nil {
		pos.UnderlyingNative.Mul(reserves.Native, owned)
		pos.UnderlyingNative.Div(pos.UnderlyingNative, total)
	}
	if reserves.Token != nil {
		pos.UnderlyingToken.Mul(reserves.Token, owned)
		pos.UnderlyingToken.Div(pos.UnderlyingToken, total)
	}
	return pos
}
