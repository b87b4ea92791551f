package core

import (
	"fmt"

	"RewardLedger/internal/ledger"
	"RewardLedger/internal/state"
	"RewardLedger/internal/token"
)

// Snapshot is the full persistable engine state. Recovery loads the
// newest snapshot and replays the log tail past its sequence.
type Snapshot struct {
	Sequence  uint64                  `json:"sequence"`
	ChainHead string                  `json:"chain_head"`
	Shares    map[string]int64        `json:"shares"`
	State     state.StateSnapshot     `json:"state"`
	Accounts  []state.AccountSnapshot `json:"accounts,omitempty"`
	Token     *token.MemorySnapshot   `json:"token,omitempty"`
}

// Snapshot captures the engine state at its current sequence.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	shares := make(map[string]int64)
	for k, v := range e.shares.Snapshot() {
		shares[k.String()] = v
	}
	accounts := make([]state.AccountSnapshot, 0)
	for _, v := range e.tracker.Snapshot() {
		accounts = append(accounts, v)
	}
	snap := &Snapshot{
		Sequence:  e.sequence,
		ChainHead: e.hasher.Head(),
		Shares:    shares,
		State:     e.rstate.Snapshot(),
		Accounts:  accounts,
	}
	if mem, ok := e.rewards.(*token.MemoryLedger); ok {
		t := mem.Snapshot()
		snap.Token = &t
	}
	return snap
}

// RestoreSnapshot replaces the engine state. Conservation is verified
// before the snapshot is accepted.
func (e *Engine) RestoreSnapshot(snap *Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	shares := make(map[ledger.AccountKey]int64, len(snap.Shares))
	for k, v := range snap.Shares {
		key, err := ledger.ParseAccountKey(k)
		if err != nil {
			return fmt.Errorf("restore snapshot: %w", err)
		}
		shares[key] = v
	}
	e.shares.Restore(shares)
	if err := e.shares.CheckConservation(); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}

	if err := e.rstate.Restore(snap.State); err != nil {
		return fmt.Errorf("restore snapshot state: %w", err)
	}

	accounts := make(map[ledger.AccountKey]state.AccountSnapshot, len(snap.Accounts))
	for _, a := range snap.Accounts {
		key, err := ledger.ParseAccountKey(a.Account)
		if err != nil {
			return fmt.Errorf("restore snapshot account: %w", err)
		}
		accounts[key] = a
	}
	e.tracker.Restore(accounts)

	if snap.Token != nil {
		if mem, ok := e.rewards.(*token.MemoryLedger); ok {
			if err := mem.Restore(*snap.Token); err != nil {
				return fmt.Errorf("restore snapshot token: %w", err)
			}
		}
	}

	e.sequence = snap.Sequence
	e.hasher.Resume(snap.ChainHead)
	return nil
}
