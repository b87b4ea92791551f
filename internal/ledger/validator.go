package ledger

import "fmt"

// CheckConservation verifies that the sum of all balances equals the
// fixed pool size. The engine runs it after every mutation and
// periodically over the full ledger; a failure means state corruption
// and is treated as fatal by the caller.
func (l *ShareLedger) CheckConservation() error {
	var sum int64
	for _, v := range l.balances {
		if v < 0 {
			return fmt.Errorf("negative share balance %d in ledger", v)
		}
		sum += v
	}
	if sum != l.totalShares {
		return fmt.Errorf("share conservation violated: sum %d != pool %d", sum, l.totalShares)
	}
	return nil
}
