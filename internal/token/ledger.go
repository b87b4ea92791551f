// Package token is the fungible-token capability the engine consumes
// to move reward value. The engine never reimplements token
// accounting; it calls these four primitives and assumes each fails
// atomically.
package token

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInsufficientTokenBalance means a transfer or burn exceeds the
// available balance on either side.
var ErrInsufficientTokenBalance = errors.New("insufficient token balance")

// Ledger is the consumed token capability. All operations settle
// atomically: on error the ledger is unchanged.
type Ledger interface {
	// TransferIn moves amount from holder into the engine's pool.
	TransferIn(from uuid.UUID, amount int64) error
	// TransferOut moves amount from the engine's pool to holder.
	TransferOut(to uuid.UUID, amount int64) error
	// Burn permanently destroys amount from the engine's pool.
	Burn(amount int64) error
	// BalanceOf returns the engine's pool balance.
	BalanceOf() (int64, error)
}

// MemoryLedger is an in-process Ledger. It backs tests and the
// single-node deployment; a production deployment swaps in a client
// for the real token service.
type MemoryLedger struct {
	pool    int64
	burned  int64
	holders map[uuid.UUID]int64
}

// NewMemoryLedger creates an empty in-process token ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{holders: make(map[uuid.UUID]int64)}
}

// Credit mints amount to holder. Seeding primitive for tests and the
// fund command path.
func (m *MemoryLedger) Credit(holder uuid.UUID, amount int64) {
	m.holders[holder] += amount
}

func (m *MemoryLedger) TransferIn(from uuid.UUID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer in %d: amount must be positive", amount)
	}
	if m.holders[from] < amount {
		return fmt.Errorf("transfer in %d from %s with balance %d: %w",
			amount, from, m.holders[from], ErrInsufficientTokenBalance)
	}
	m.holders[from] -= amount
	m.pool += amount
	return nil
}

func (m *MemoryLedger) TransferOut(to uuid.UUID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer out %d: amount must be positive", amount)
	}
	if m.pool < amount {
		return fmt.Errorf("transfer out %d with pool %d: %w", amount, m.pool, ErrInsufficientTokenBalance)
	}
	m.pool -= amount
	m.holders[to] += amount
	return nil
}

func (m *MemoryLedger) Burn(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("burn %d: amount must be positive", amount)
	}
	if m.pool < amount {
		return fmt.Errorf("burn %d with pool %d: %w", amount, m.pool, ErrInsufficientTokenBalance)
	}
	m.pool -= amount
	m.burned += amount
	return nil
}

func (m *MemoryLedger) BalanceOf() (int64, error) {
	return m.pool, nil
}

// HolderBalance returns holder's external balance.
func (m *MemoryLedger) HolderBalance(holder uuid.UUID) int64 {
	return m.holders[holder]
}

// Burned returns the cumulative burned amount.
func (m *MemoryLedger) Burned() int64 {
	return m.burned
}

// MemorySnapshot is the persistable form of a MemoryLedger.
type MemorySnapshot struct {
	Pool    int64            `json:"pool"`
	Burned  int64            `json:"burned"`
	Holders map[string]int64 `json:"holders,omitempty"`
}

// Snapshot captures the ledger for persistence.
func (m *MemoryLedger) Snapshot() MemorySnapshot {
	snap := MemorySnapshot{Pool: m.pool, Burned: m.burned, Holders: make(map[string]int64, len(m.holders))}
	for k, v := range m.holders {
		snap.Holders[k.String()] = v
	}
	return snap
}

// Restore replaces the ledger contents from a snapshot.
func (m *MemoryLedger) Restore(snap MemorySnapshot) error {
	m.pool = snap.Pool
	m.burned = snap.Burned
	m.holders = make(map[uuid.UUID]int64, len(snap.Holders))
	for k, v := range snap.Holders {
		id, err := uuid.Parse(k)
		if err != nil {
			return fmt.Errorf("restore token holder %q: %w", k, err)
		}
		m.holders[id] = v
	}
	return nil
}
