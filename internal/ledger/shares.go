package ledger

import "fmt"

// ShareLedger holds the share balance of every account. The sink owns
// the full pool at construction; allocations move shares out of the
// sink and deallocations move them back, so the pool total is constant
// by construction.
type ShareLedger struct {
	totalShares int64
	balances    map[AccountKey]int64
}

// NewShareLedger creates a ledger whose entire pool of totalShares is
// held by the sink.
func NewShareLedger(totalShares int64) (*ShareLedger, error) {
	if totalShares <= 0 {
		return nil, fmt.Errorf("total shares must be positive, got %d: %w", totalShares, ErrInvalidAmount)
	}
	l := &ShareLedger{
		totalShares: totalShares,
		balances:    make(map[AccountKey]int64),
	}
	l.balances[SinkKey()] = totalShares
	return l, nil
}

// Allocate moves amount shares from the sink to account.
func (l *ShareLedger) Allocate(account AccountKey, amount int64) ([]Entry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("allocate %d shares: %w", amount, ErrInvalidAmount)
	}
	if account.IsSink() {
		return nil, fmt.Errorf("cannot allocate to the sink: %w", ErrInvalidAmount)
	}
	sink := SinkKey()
	if l.balances[sink] < amount {
		return nil, fmt.Errorf("allocate %d shares with %d unallocated: %w",
			amount, l.balances[sink], ErrInsufficientUnallocatedShares)
	}
	l.balances[sink] -= amount
	l.balances[account] += amount
	return []Entry{
		{Account: sink, Delta: -amount, NewBalance: l.balances[sink]},
		{Account: account, Delta: amount, NewBalance: l.balances[account]},
	}, nil
}

// Deallocate moves amount shares from account back to the sink.
func (l *ShareLedger) Deallocate(account AccountKey, amount int64) ([]Entry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("deallocate %d shares: %w", amount, ErrInvalidAmount)
	}
	if account.IsSink() {
		return nil, fmt.Errorf("cannot deallocate from the sink: %w", ErrInvalidAmount)
	}
	if l.balances[account] < amount {
		return nil, fmt.Errorf("deallocate %d shares with balance %d: %w",
			amount, l.balances[account], ErrInsufficientBalance)
	}
	sink := SinkKey()
	l.balances[account] -= amount
	l.balances[sink] += amount
	entries := []Entry{
		{Account: account, Delta: -amount, NewBalance: l.balances[account]},
		{Account: sink, Delta: amount, NewBalance: l.balances[sink]},
	}
	if l.balances[account] == 0 {
		delete(l.balances, account)
	}
	return entries, nil
}

// BalanceOf returns the share balance of account. Unknown accounts
// hold zero.
func (l *ShareLedger) BalanceOf(account AccountKey) int64 {
	return l.balances[account]
}

// Unallocated returns the sink's share balance.
func (l *ShareLedger) Unallocated() int64 {
	return l.balances[SinkKey()]
}

// TotalShares returns the fixed pool size.
func (l *ShareLedger) TotalShares() int64 {
	return l.totalShares
}

// Holders returns every account with a non-zero balance, sink
// included. Iteration order is unspecified.
func (l *ShareLedger) Holders() []AccountKey {
	keys := make([]AccountKey, 0, len(l.balances))
	for k := range l.balances {
		keys = append(keys, k)
	}
	return keys
}

// Snapshot returns a copy of all balances for persistence.
func (l *ShareLedger) Snapshot() map[AccountKey]int64 {
	out := make(map[AccountKey]int64, len(l.balances))
	for k, v := range l.balances {
		out[k] = v
	}
	return out
}

// Restore replaces the ledger contents from a snapshot. The snapshot
// must conserve the pool; callers run CheckConservation afterwards.
func (l *ShareLedger) Restore(balances map[AccountKey]int64) {
	l.balances = make(map[AccountKey]int64, len(balances))
	for k, v := range balances {
		if v != 0 {
			l.balances[k] = v
		}
	}
}
