package math

import (
	"math/big"
	"testing"
)

// ============================================================
// Accrual arithmetic
// ============================================================

func TestAccrualPerShare(t *testing.T) {
	// 100 units/sec over 10 sec across 2353 shares:
	// floor(1000 * 1e18 / 2353)
	got := AccrualPerShare(100, 10, 2353)
	want, _ := new(big.Int).SetString("424989375265618359", 10)
	if got.Cmp(want) != 0 {
		t.Errorf("AccrualPerShare(100, 10, 2353) = %s, want %s", got, want)
	}
}

func TestAccrualPerShareEvenDivision(t *testing.T) {
	// 10 units/sec over 10 sec across 100 shares: exactly 1e18.
	got := AccrualPerShare(10, 10, 100)
	if got.Cmp(bigRewardScale) != 0 {
		t.Errorf("AccrualPerShare(10, 10, 100) = %s, want %d", got, RewardScale)
	}
}

func TestSettledRewardTruncates(t *testing.T) {
	idx, _ := new(big.Int).SetString("424989375265618359", 10)

	if got := SettledReward(1000, idx); got != 424 {
		t.Errorf("SettledReward(1000, idx) = %d, want 424", got)
	}
	if got := SettledReward(1353, idx); got != 575 {
		t.Errorf("SettledReward(1353, idx) = %d, want 575", got)
	}
	// Truncation loses at most 1 unit overall here.
	if sum := SettledReward(1000, idx) + SettledReward(1353, idx); sum != 999 {
		t.Errorf("settled sum = %d, want 999", sum)
	}
}

func TestSettledRewardZeroDelta(t *testing.T) {
	if got := SettledReward(1000, new(big.Int)); got != 0 {
		t.Errorf("SettledReward with zero delta = %d, want 0", got)
	}
}

// ============================================================
// Division and rate scaling
// ============================================================

func TestDivBigRoundDown(t *testing.T) {
	cases := []struct {
		num  int64
		den  int64
		want int64
	}{
		{10, 3, 3},
		{9, 3, 3},
		{1, 2, 0},
		{-10, 3, -3},
	}
	for _, c := range cases {
		got := DivBig(big.NewInt(c.num), c.den, RoundDown)
		if got != c.want {
			t.Errorf("DivBig(%d, %d, RoundDown) = %d, want %d", c.num, c.den, got, c.want)
		}
	}
}

func TestDivBigRoundHalfEven(t *testing.T) {
	cases := []struct {
		num  int64
		den  int64
		want int64
	}{
		{5, 2, 2},  // 2.5 ties to even 2
		{7, 2, 4},  // 3.5 ties to even 4
		{11, 4, 3}, // 2.75 rounds up
		{9, 4, 2},  // 2.25 rounds down
	}
	for _, c := range cases {
		got := DivBig(big.NewInt(c.num), c.den, RoundHalfEven)
		if got != c.want {
			t.Errorf("DivBig(%d, %d, RoundHalfEven) = %d, want %d", c.num, c.den, got, c.want)
		}
	}
}

func TestScaleRate(t *testing.T) {
	// Fresh period: no leftover.
	if got := ScaleRate(1000, 0, 10); got != 100 {
		t.Errorf("ScaleRate(1000, 0, 10) = %d, want 100", got)
	}
	// Mid-flight top-up folds the leftover in.
	if got := ScaleRate(75000, 50000, 1000); got != 125 {
		t.Errorf("ScaleRate(75000, 50000, 1000) = %d, want 125", got)
	}
	// Truncation.
	if got := ScaleRate(999, 0, 1000); got != 0 {
		t.Errorf("ScaleRate(999, 0, 1000) = %d, want 0", got)
	}
}

func TestMulBigNoOverflow(t *testing.T) {
	// Products beyond int64 range stay exact.
	a, b := int64(1<<40), int64(1<<40)
	got := MulBig(a, b)
	want := new(big.Int).Lsh(big.NewInt(1), 80)
	if got.Cmp(want) != 0 {
		t.Errorf("MulBig(2^40, 2^40) = %s, want %s", got, want)
	}
}
