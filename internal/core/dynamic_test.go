package core

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"RewardLedger/internal/ledger"
	"RewardLedger/internal/state"
	"RewardLedger/internal/token"
)

func newDynamic(t *testing.T) (*DynamicEngine, *token.MemoryLedger, *token.MemoryLedger) {
	t.Helper()
	staking := token.NewMemoryLedger()
	rewards := token.NewMemoryLedger()
	return NewDynamicEngine(staking, rewards), staking, rewards
}

func fundDynamic(t *testing.T, d *DynamicEngine, rewards *token.MemoryLedger, amount int64) {
	t.Helper()
	funder := uuid.New()
	rewards.Credit(funder, amount)
	if err := rewards.TransferIn(funder, amount); err != nil {
		t.Fatalf("fund reward pool: %v", err)
	}
	if err := d.SetDuration(10, baseTime); err != nil {
		t.Fatalf("SetDuration: %v", err)
	}
	if err := d.StartPeriod(amount, baseTime); err != nil {
		t.Fatalf("StartPeriod: %v", err)
	}
}

// ============================================================
// Stake-weighted distribution
// ============================================================

func TestDynamicStakeEarnsProRata(t *testing.T) {
	d, staking, rewards := newDynamic(t)
	a, b := uuid.New(), uuid.New()
	staking.Credit(a, 3000)
	staking.Credit(b, 1000)

	fundDynamic(t, d, rewards, 1000)
	if err := d.Stake(a, 3000, baseTime); err != nil {
		t.Fatalf("Stake(a): %v", err)
	}
	if err := d.Stake(b, 1000, baseTime); err != nil {
		t.Fatalf("Stake(b): %v", err)
	}

	after := baseTime + 10
	earnedA := d.Earned(a, after)
	earnedB := d.Earned(b, after)
	if earnedA != 750 {
		t.Errorf("earned(a) = %d, want 750", earnedA)
	}
	if earnedB != 250 {
		t.Errorf("earned(b) = %d, want 250", earnedB)
	}

	paid, err := d.Claim(a, after)
	if err != nil {
		t.Fatalf("Claim(a): %v", err)
	}
	if paid != 750 {
		t.Errorf("claimed %d, want 750", paid)
	}
	if got := rewards.HolderBalance(a); got != 750 {
		t.Errorf("reward balance = %d, want 750", got)
	}
}

func TestDynamicWithdrawReturnsStake(t *testing.T) {
	d, staking, rewards := newDynamic(t)
	a := uuid.New()
	staking.Credit(a, 500)
	fundDynamic(t, d, rewards, 1000)

	if err := d.Stake(a, 500, baseTime); err != nil {
		t.Fatalf("Stake: %v", err)
	}
	if err := d.Withdraw(a, 600, baseTime+5); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Errorf("overdrawn withdraw err = %v, want ErrInsufficientBalance", err)
	}
	if err := d.Withdraw(a, 500, baseTime+5); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if got := staking.HolderBalance(a); got != 500 {
		t.Errorf("staking balance = %d, want 500", got)
	}
	if got := d.TotalStaked(); got != 0 {
		t.Errorf("total staked = %d, want 0", got)
	}
	// Accrual up to the withdrawal stays claimable.
	if got := d.Earned(a, baseTime+10); got != 500 {
		t.Errorf("earned after full withdraw = %d, want 500", got)
	}
}

// ============================================================
// Empty-pool windows
// ============================================================

func TestDynamicEmptyPoolForfeitsWindow(t *testing.T) {
	d, staking, rewards := newDynamic(t)
	a := uuid.New()
	staking.Credit(a, 100)
	fundDynamic(t, d, rewards, 1000)

	// Nobody staked for the first 5 seconds; that half of the stream
	// stays in the reward balance instead of accruing to anyone.
	if err := d.Stake(a, 100, baseTime+5); err != nil {
		t.Fatalf("Stake: %v", err)
	}
	if got := d.Earned(a, baseTime+10); got != 500 {
		t.Errorf("earned = %d, want 500 (second half only)", got)
	}
	if got, _ := rewards.BalanceOf(); got != 1000 {
		t.Errorf("reward pool = %d, want 1000 still held", got)
	}
}

func TestDynamicZeroAmountRejected(t *testing.T) {
	d, _, _ := newDynamic(t)
	if err := d.Stake(uuid.New(), 0, baseTime); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Errorf("Stake(0) err = %v, want ErrInvalidAmount", err)
	}
	if err := d.Withdraw(uuid.New(), 0, baseTime); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Errorf("Withdraw(0) err = %v, want ErrInvalidAmount", err)
	}
}

func TestDynamicStartPeriodRequiresFunding(t *testing.T) {
	d, _, rewards := newDynamic(t)
	funder := uuid.New()
	rewards.Credit(funder, 500)
	if err := rewards.TransferIn(funder, 500); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if err := d.SetDuration(10, baseTime); err != nil {
		t.Fatalf("SetDuration: %v", err)
	}
	err := d.StartPeriod(1000, baseTime)
	if !errors.Is(err, state.ErrInsufficientFunding) {
		t.Errorf("StartPeriod err = %v, want ErrInsufficientFunding", err)
	}
}
