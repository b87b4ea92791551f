package state

import (
	"math/big"
	"testing"

	"github.com/google/uuid"

	"RewardLedger/internal/ledger"
)

const baseTime = int64(1_700_000_000)

func newTracker(t *testing.T, totalShares int64) (*RewardTracker, *PeriodController, *ledger.ShareLedger) {
	t.Helper()
	shares, err := ledger.NewShareLedger(totalShares)
	if err != nil {
		t.Fatalf("NewShareLedger: %v", err)
	}
	rs := NewRewardState()
	return NewRewardTracker(rs, shares), NewPeriodController(rs), shares
}

func startPeriod(t *testing.T, pc *PeriodController, now, duration, amount int64) {
	t.Helper()
	if err := pc.SetDuration(now, duration); err != nil {
		t.Fatalf("SetDuration: %v", err)
	}
	// Funding irrelevant for tracker tests; pass plenty.
	if err := pc.StartPeriod(now, amount, 1<<40); err != nil {
		t.Fatalf("StartPeriod: %v", err)
	}
}

// ============================================================
// Index behavior
// ============================================================

func TestIndexZeroBeforeAnyPeriod(t *testing.T) {
	tr, _, _ := newTracker(t, 1000)
	if got := tr.CurrentRewardPerShare(baseTime); got.Sign() != 0 {
		t.Errorf("index before any period = %s, want 0", got)
	}
}

func TestIndexMonotonic(t *testing.T) {
	tr, pc, _ := newTracker(t, 2353)
	startPeriod(t, pc, baseTime, 100, 10_000)

	prev := new(big.Int)
	for _, dt := range []int64{0, 1, 5, 5, 30, 99, 100, 150} {
		got := tr.CurrentRewardPerShare(baseTime + dt)
		if got.Cmp(prev) < 0 {
			t.Fatalf("index decreased at dt=%d: %s < %s", dt, got, prev)
		}
		prev = got
	}
}

func TestIndexFrozenPastPeriodEnd(t *testing.T) {
	tr, pc, _ := newTracker(t, 100)
	startPeriod(t, pc, baseTime, 10, 1000)

	atEnd := tr.CurrentRewardPerShare(baseTime + 10)
	after := tr.CurrentRewardPerShare(baseTime + 10_000)
	if atEnd.Cmp(after) != 0 {
		t.Errorf("index kept growing past period end: %s then %s", atEnd, after)
	}
}

func TestIndexUnchangedWhenClockRewinds(t *testing.T) {
	tr, pc, _ := newTracker(t, 100)
	startPeriod(t, pc, baseTime, 10, 1000)
	tr.SettleIndex(baseTime + 5)

	stored := tr.CurrentRewardPerShare(baseTime + 5)
	if got := tr.CurrentRewardPerShare(baseTime + 3); got.Cmp(stored) != 0 {
		t.Errorf("index with earlier now = %s, want stored %s", got, stored)
	}
}

// ============================================================
// Settlement
// ============================================================

func TestSettleIdempotent(t *testing.T) {
	tr, pc, shares := newTracker(t, 2353)
	acct := ledger.ParticipantKey(uuid.New())
	if _, err := shares.Allocate(acct, 1000); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	startPeriod(t, pc, baseTime, 100, 10_000)

	now := baseTime + 40
	tr.Settle(acct, now)
	pending1 := tr.Pending(acct)
	idx1 := tr.CurrentRewardPerShare(now)

	tr.Settle(acct, now)
	pending2 := tr.Pending(acct)
	idx2 := tr.CurrentRewardPerShare(now)

	if pending1 != pending2 {
		t.Errorf("second settle changed pending: %d -> %d", pending1, pending2)
	}
	if idx1.Cmp(idx2) != 0 {
		t.Errorf("second settle changed index: %s -> %s", idx1, idx2)
	}
}

func TestEarnedMatchesSettledPending(t *testing.T) {
	tr, pc, shares := newTracker(t, 2353)
	acct := ledger.ParticipantKey(uuid.New())
	if _, err := shares.Allocate(acct, 1000); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	startPeriod(t, pc, baseTime, 10, 1000)

	now := baseTime + 10
	earned := tr.Earned(acct, now)
	tr.Settle(acct, now)
	if got := tr.Pending(acct); got != earned {
		t.Errorf("settled pending %d != earned %d", got, earned)
	}
	if earned != 424 {
		t.Errorf("earned = %d, want 424", earned)
	}
}

func TestSettleAdvancesIndexForUnsettledAccounts(t *testing.T) {
	tr, pc, shares := newTracker(t, 2353)
	a := ledger.ParticipantKey(uuid.New())
	if _, err := shares.Allocate(a, 1000); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	startPeriod(t, pc, baseTime, 10, 1000)

	// Settling the sink advances the shared index; account a's accrual
	// up to that point must survive in its later settlement.
	tr.Settle(ledger.SinkKey(), baseTime+10)
	tr.Settle(a, baseTime+10)
	if got := tr.Pending(a); got != 424 {
		t.Errorf("pending after indirect settle = %d, want 424", got)
	}
	if got := tr.Pending(ledger.SinkKey()); got != 575 {
		t.Errorf("sink pending = %d, want 575", got)
	}
}

func TestTakePendingClears(t *testing.T) {
	tr, pc, shares := newTracker(t, 100)
	acct := ledger.ParticipantKey(uuid.New())
	if _, err := shares.Allocate(acct, 100); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	startPeriod(t, pc, baseTime, 10, 1000)
	tr.Settle(acct, baseTime+10)

	got := tr.TakePending(acct)
	if got != 1000 {
		t.Errorf("TakePending = %d, want 1000", got)
	}
	if tr.Pending(acct) != 0 {
		t.Errorf("pending not cleared after take")
	}
	if tr.TakePending(acct) != 0 {
		t.Errorf("second take returned non-zero")
	}
}

// ============================================================
// Snapshot round trip
// ============================================================

func TestTrackerSnapshotRestore(t *testing.T) {
	tr, pc, shares := newTracker(t, 2353)
	acct := ledger.ParticipantKey(uuid.New())
	if _, err := shares.Allocate(acct, 1000); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	startPeriod(t, pc, baseTime, 10, 1000)
	tr.Settle(acct, baseTime+10)

	snap := tr.Snapshot()
	restored := NewRewardTracker(NewRewardState(), shares)
	restored.Restore(snap)

	if got := restored.Pending(acct); got != tr.Pending(acct) {
		t.Errorf("restored pending = %d, want %d", got, tr.Pending(acct))
	}
}
