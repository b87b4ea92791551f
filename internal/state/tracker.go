package state

import (
	"math/big"

	"RewardLedger/internal/ledger"
	rmath "RewardLedger/internal/math"
)

// AccountRewardState is the lazily-settled reward position of one
// account. Entries are created on first settlement and mutated only by
// the tracker.
type AccountRewardState struct {
	// Checkpoint is the reward-per-share index value last folded into
	// Pending for this account.
	Checkpoint *big.Int
	// Pending is the settled, claimable reward amount.
	Pending int64
}

// ShareSource is the balance view the tracker accrues against. The
// fixed-pool ledger satisfies it directly; the dynamic variant
// supplies its staked-balance table, where TotalShares is the live
// staked sum and may be zero.
type ShareSource interface {
	TotalShares() int64
	BalanceOf(account ledger.AccountKey) int64
}

// RewardTracker settles reward accrual. Every balance-affecting
// operation calls Settle for the touched account strictly before
// applying its effect, so accrual is always computed against the
// balance that held while the reward was streaming.
type RewardTracker struct {
	state    *RewardState
	shares   ShareSource
	accounts map[ledger.AccountKey]*AccountRewardState
}

// NewRewardTracker wires the tracker to the shared state handle and
// the share source it reads balances from.
func NewRewardTracker(st *RewardState, shares ShareSource) *RewardTracker {
	return &RewardTracker{
		state:    st,
		shares:   shares,
		accounts: make(map[ledger.AccountKey]*AccountRewardState),
	}
}

// CurrentRewardPerShare returns the live index at time now. The result
// is a fresh big.Int; callers may mutate it. Non-decreasing in now and
// equal to the stored index whenever the rate is zero or no time has
// passed.
func (t *RewardTracker) CurrentRewardPerShare(now int64) *big.Int {
	stored := new(big.Int).Set(t.state.RewardPerShareStored)
	total := t.shares.TotalShares()
	if total == 0 {
		return stored
	}
	elapsed := t.state.lastApplicable(now) - t.state.LastUpdateAt
	if elapsed <= 0 || t.state.RewardRate == 0 {
		return stored
	}
	return stored.Add(stored, rmath.AccrualPerShare(t.state.RewardRate, elapsed, total))
}

// Earned returns the total claimable reward of account at time now:
// unsettled accrual since the account's checkpoint plus its pending
// balance. Pure; does not advance the index.
func (t *RewardTracker) Earned(account ledger.AccountKey, now int64) int64 {
	idx := t.CurrentRewardPerShare(now)
	return t.earnedAt(account, idx)
}

func (t *RewardTracker) earnedAt(account ledger.AccountKey, index *big.Int) int64 {
	acct := t.accounts[account]
	if acct == nil {
		return rmath.SettledReward(t.shares.BalanceOf(account), index)
	}
	delta := new(big.Int).Sub(index, acct.Checkpoint)
	return rmath.SettledReward(t.shares.BalanceOf(account), delta) + acct.Pending
}

// Settle advances the global index to now and folds account's accrual
// into its pending balance. The index advance happens even when the
// account has never been seen; that is what keeps the index honest no
// matter which account triggers settlement.
func (t *RewardTracker) Settle(account ledger.AccountKey, now int64) {
	idx := t.CurrentRewardPerShare(now)
	pending := t.earnedAt(account, idx)

	t.state.RewardPerShareStored.Set(idx)
	t.state.LastUpdateAt = t.state.lastApplicable(now)

	acct := t.accounts[account]
	if acct == nil {
		acct = &AccountRewardState{Checkpoint: new(big.Int)}
		t.accounts[account] = acct
	}
	acct.Pending = pending
	acct.Checkpoint.Set(idx)
}

// SettleIndex advances the global index without touching any account.
// Used by rate updates in the dynamic variant, where no single account
// is affected.
func (t *RewardTracker) SettleIndex(now int64) {
	idx := t.CurrentRewardPerShare(now)
	t.state.RewardPerShareStored.Set(idx)
	t.state.LastUpdateAt = t.state.lastApplicable(now)
}

// TakePending zeroes and returns account's pending reward. Callers
// settle first.
func (t *RewardTracker) TakePending(account ledger.AccountKey) int64 {
	acct := t.accounts[account]
	if acct == nil {
		return 0
	}
	out := acct.Pending
	acct.Pending = 0
	return out
}

// Pending returns account's settled pending reward without clearing it.
func (t *RewardTracker) Pending(account ledger.AccountKey) int64 {
	if acct := t.accounts[account]; acct != nil {
		return acct.Pending
	}
	return 0
}

// AccountSnapshot is the persistable form of one account position.
type AccountSnapshot struct {
	Account    string `json:"account"`
	Checkpoint string `json:"checkpoint"`
	Pending    int64  `json:"pending"`
}

// Snapshot captures every account position keyed by the account's
// string form.
func (t *RewardTracker) Snapshot() map[ledger.AccountKey]AccountSnapshot {
	out := make(map[ledger.AccountKey]AccountSnapshot, len(t.accounts))
	for k, v := range t.accounts {
		out[k] = AccountSnapshot{
			Account:    k.String(),
			Checkpoint: v.Checkpoint.String(),
			Pending:    v.Pending,
		}
	}
	return out
}

// Restore replaces all account positions from a snapshot.
func (t *RewardTracker) Restore(positions map[ledger.AccountKey]AccountSnapshot) {
	t.accounts = make(map[ledger.AccountKey]*AccountRewardState, len(positions))
	for k, v := range positions {
		cp, ok := new(big.Int).SetString(v.Checkpoint, 10)
		if !ok {
			cp = new(big.Int)
		}
		t.accounts[k] = &AccountRewardState{Checkpoint: cp, Pending: v.Pending}
	}
}
