// Package state owns the global reward distribution state and the two
// components that mutate it: the reward tracker, which settles accrual
// into per-account pending balances, and the period controller, which
// starts and extends distribution periods.
package state

import "math/big"

// RewardState is the single global distribution state. It is
// constructed once at engine startup and passed by handle into the
// tracker and controller; nothing else mutates it.
type RewardState struct {
	// RewardPerShareStored is the cumulative reward-per-share index,
	// scaled by math.RewardScale. Monotonically non-decreasing.
	RewardPerShareStored *big.Int
	// RewardRate is the streaming rate in reward units per second.
	RewardRate int64
	// PeriodDuration is the configured period length in seconds.
	PeriodDuration int64
	// PeriodFinishAt is the unix second the current period ends.
	PeriodFinishAt int64
	// LastUpdateAt is the unix second of the last index advance,
	// clamped to PeriodFinishAt.
	LastUpdateAt int64
}

// NewRewardState returns a zeroed state: no duration, no rate, no
// period. The first startPeriod call brings it to life.
func NewRewardState() *RewardState {
	return &RewardState{RewardPerShareStored: new(big.Int)}
}

// lastApplicable clamps now to the period end so no accrual happens
// past PeriodFinishAt.
func (s *RewardState) lastApplicable(now int64) int64 {
	if now > s.PeriodFinishAt {
		return s.PeriodFinishAt
	}
	return now
}

// StateSnapshot is the persistable form of RewardState.
type StateSnapshot struct {
	RewardPerShareStored string `json:"reward_per_share_stored"`
	RewardRate           int64  `json:"reward_rate"`
	PeriodDuration       int64  `json:"period_duration"`
	PeriodFinishAt       int64  `json:"period_finish_at"`
	LastUpdateAt         int64  `json:"last_update_at"`
}

// Snapshot captures the state for persistence.
func (s *RewardState) Snapshot() StateSnapshot {
	return StateSnapshot{
		RewardPerShareStored: s.RewardPerShareStored.String(),
		RewardRate:           s.RewardRate,
		PeriodDuration:       s.PeriodDuration,
		PeriodFinishAt:       s.PeriodFinishAt,
		LastUpdateAt:         s.LastUpdateAt,
	}
}

// Restore replaces the state from a snapshot.
func (s *RewardState) Restore(snap StateSnapshot) error {
	idx, ok := new(big.Int).SetString(snap.RewardPerShareStored, 10)
	if !ok {
		idx = new(big.Int)
	}
	s.RewardPerShareStored = idx
	s.RewardRate = snap.RewardRate
	s.PeriodDuration = snap.PeriodDuration
	s.PeriodFinishAt = snap.PeriodFinishAt
	s.LastUpdateAt = snap.LastUpdateAt
	return nil
}
