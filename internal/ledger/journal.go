package ledger

// Entry records one leg of a share movement. Every movement produces a
// balanced pair of entries whose deltas sum to zero; the engine
// persists them and publishes them as balance-change notifications.
type Entry struct {
	Account    AccountKey
	Delta      int64
	NewBalance int64
}

// Balanced reports whether the entries' deltas sum to zero. A share
// movement that fails this check indicates a bug, not a caller error.
func Balanced(entries []Entry) bool {
	var sum int64
	for _, e := range entries {
		sum += e.Delta
	}
	return sum == 0
}
