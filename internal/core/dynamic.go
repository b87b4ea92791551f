package core

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"

	"RewardLedger/internal/ledger"
	"RewardLedger/internal/state"
	"RewardLedger/internal/token"
)

// stakedShares is the live share table of the dynamic variant: total
// shares equal the sum of staked balances and may be zero.
type stakedShares struct {
	total    int64
	balances map[ledger.AccountKey]int64
}

func (s *stakedShares) TotalShares() int64 {
	return s.total
}

func (s *stakedShares) BalanceOf(account ledger.AccountKey) int64 {
	return s.balances[account]
}

// DynamicEngine is the variant without a sink: participants stake a
// token to mint shares and withdraw to burn them, so the pool size
// floats with participation. While nothing is staked the index simply
// does not advance; reward streamed over an empty pool stays in the
// reward balance and is re-committed by the next period start rather
// than accruing to anyone.
type DynamicEngine struct {
	mu sync.Mutex

	staked  *stakedShares
	rstate  *state.RewardState
	tracker *state.RewardTracker
	periods *state.PeriodController
	staking token.Ledger
	rewards token.Ledger
}

// NewDynamicEngine wires the dynamic variant over a staking-token
// ledger and a reward-token ledger.
func NewDynamicEngine(staking, rewards token.Ledger) *DynamicEngine {
	shares := &stakedShares{balances: make(map[ledger.AccountKey]int64)}
	rs := state.NewRewardState()
	return &DynamicEngine{
		staked:  shares,
		rstate:  rs,
		tracker: state.NewRewardTracker(rs, shares),
		periods: state.NewPeriodController(rs),
		staking: staking,
		rewards: rewards,
	}
}

// Stake transfers amount of the staking token in and mints that many
// shares to account.
func (d *DynamicEngine) Stake(account uuid.UUID, amount, now int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if amount <= 0 {
		return fmt.Errorf("stake %d: %w", amount, ledger.ErrInvalidAmount)
	}
	key := ledger.ParticipantKey(account)
	d.tracker.Settle(key, now)
	if err := d.staking.TransferIn(account, amount); err != nil {
		return fmt.Errorf("stake deposit for %s: %w", account, err)
	}
	d.staked.balances[key] += amount
	d.staked.total += amount
	return nil
}

// Withdraw burns amount shares from account and returns the staking
// token.
func (d *DynamicEngine) Withdraw(account uuid.UUID, amount, now int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if amount <= 0 {
		return fmt.Errorf("withdraw %d: %w", amount, ledger.ErrInvalidAmount)
	}
	key := ledger.ParticipantKey(account)
	d.tracker.Settle(key, now)
	if d.staked.balances[key] < amount {
		return fmt.Errorf("withdraw %d with staked %d: %w",
			amount, d.staked.balances[key], ledger.ErrInsufficientBalance)
	}
	if err := d.staking.TransferOut(account, amount); err != nil {
		return fmt.Errorf("withdraw payout for %s: %w", account, err)
	}
	d.staked.balances[key] -= amount
	d.staked.total -= amount
	if d.staked.balances[key] == 0 {
		delete(d.staked.balances, key)
	}
	return nil
}

// Claim pays out account's settled reward.
func (d *DynamicEngine) Claim(account uuid.UUID, now int64) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := ledger.ParticipantKey(account)
	d.tracker.Settle(key, now)
	pending := d.tracker.Pending(key)
	if pending == 0 {
		return 0, fmt.Errorf("claim for %s: %w", account, ErrNothingToClaim)
	}
	if err := d.rewards.TransferOut(account, pending); err != nil {
		return 0, fmt.Errorf("claim payout for %s: %w", account, err)
	}
	d.tracker.TakePending(key)
	return pending, nil
}

// SetDuration configures the period length.
func (d *DynamicEngine) SetDuration(seconds, now int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.periods.SetDuration(now, seconds)
}

// StartPeriod commits amount over the configured duration. Rate
// updates touch no single account, so only the global index is
// settled before the rate changes.
func (d *DynamicEngine) StartPeriod(amount, now int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tracker.SettleIndex(now)
	available, err := d.rewards.BalanceOf()
	if err != nil {
		return fmt.Errorf("read reward balance: %w", err)
	}
	return d.periods.StartPeriod(now, amount, available)
}

// Earned returns account's claimable reward at time now.
func (d *DynamicEngine) Earned(account uuid.UUID, now int64) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tracker.Earned(ledger.ParticipantKey(account), now)
}

// CurrentRewardPerShare returns the live index at time now.
func (d *DynamicEngine) CurrentRewardPerShare(now int64) *big.Int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tracker.CurrentRewardPerShare(now)
}

// StakedBalance returns account's staked share count.
func (d *DynamicEngine) StakedBalance(account uuid.UUID) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.staked.BalanceOf(ledger.ParticipantKey(account))
}

// TotalStaked returns the live pool size.
func (d *DynamicEngine) TotalStaked() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.staked.total
}
