// Package math provides fixed-point arithmetic for reward accounting.
// Reward-per-share indexes are scaled by 1e18 and every division
// truncates toward zero, so accrued rewards never exceed what the
// funding balance can cover.
package math

import (
	"math/big"
	"sync"
)

// RewardScale is the fixed-point scale applied to reward-per-share
// indexes. One full token of reward per share equals RewardScale index
// units.
const RewardScale = 1_000_000_000_000_000_000

var bigRewardScale = big.NewInt(RewardScale)

// intPool recycles big.Int intermediates. Accrual math runs on every
// settlement, so allocations here show up directly in engine latency.
var intPool = sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt() *big.Int {
	return intPool.Get().(*big.Int)
}

func putInt(x *big.Int) {
	x.SetInt64(0)
	intPool.Put(x)
}

// RoundingMode selects how division results are rounded.
type RoundingMode int

const (
	// RoundDown truncates toward zero. This is the only mode used for
	// reward math: any residual stays undistributed rather than being
	// invented out of thin air.
	RoundDown RoundingMode = iota
	// RoundHalfEven rounds to nearest, ties to even. Used for display
	// conversions only, never for balance mutations.
	RoundHalfEven
)

// MulBig multiplies two int64 values into a fresh big.Int without
// overflow.
func MulBig(a, b int64) *big.Int {
	x := getInt().SetInt64(a)
	y := getInt().SetInt64(b)
	out := new(big.Int).Mul(x, y)
	putInt(x)
	putInt(y)
	return out
}

// DivBig divides numerator by denominator under the given rounding
// mode and returns the result as int64. The caller guarantees the
// quotient fits in int64; reward quantities are bounded well below
// that by funding checks upstream.
func DivBig(numerator *big.Int, denominator int64, mode RoundingMode) int64 {
	d := getInt().SetInt64(denominator)
	q := getInt()
	r := getInt()
	q.QuoRem(numerator, d, r)

	if mode == RoundHalfEven && r.Sign() != 0 {
		r.Abs(r)
		r.Lsh(r, 1)
		cmp := r.CmpAbs(d)
		roundAway := cmp > 0
		if cmp == 0 {
			roundAway = q.Bit(0) == 1
		}
		if roundAway {
			if (numerator.Sign() < 0) != (denominator < 0) {
				q.Sub(q, big.NewInt(1))
			} else {
				q.Add(q, big.NewInt(1))
			}
		}
	}

	out := q.Int64()
	putInt(d)
	putInt(q)
	putInt(r)
	return out
}

// AccrualPerShare computes the reward-per-share index growth for an
// accrual window: rate * elapsed * RewardScale / totalShares,
// truncated. totalShares must be positive; the zero-share case is
// short-circuited by the caller.
func AccrualPerShare(rate, elapsed, totalShares int64) *big.Int {
	num := MulBig(rate, elapsed)
	num.Mul(num, bigRewardScale)
	d := getInt().SetInt64(totalShares)
	num.Quo(num, d)
	putInt(d)
	return num
}

// SettledReward converts an index delta into a token amount for a
// holder: shares * indexDelta / RewardScale, truncated.
func SettledReward(shares int64, indexDelta *big.Int) int64 {
	num := getInt().SetInt64(shares)
	num.Mul(num, indexDelta)
	num.Quo(num, bigRewardScale)
	out := num.Int64()
	putInt(num)
	return out
}

// ScaleRate computes the top-up streaming rate for a restarted period:
// (amount + leftover) / duration, truncated. leftover is the
// undistributed remainder of an in-flight period, already expressed in
// token units.
func ScaleRate(amount, leftover, duration int64) int64 {
	num := getInt().SetInt64(amount)
	l := getInt().SetInt64(leftover)
	num.Add(num, l)
	d := getInt().SetInt64(duration)
	num.Quo(num, d)
	out := num.Int64()
	putInt(num)
	putInt(l)
	putInt(d)
	return out
}
