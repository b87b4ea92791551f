package ledger

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func mustLedger(t *testing.T, total int64) *ShareLedger {
	t.Helper()
	l, err := NewShareLedger(total)
	if err != nil {
		t.Fatalf("NewShareLedger(%d): %v", total, err)
	}
	return l
}

// ============================================================
// Allocation and deallocation
// ============================================================

func TestAllocateMovesSharesFromSink(t *testing.T) {
	l := mustLedger(t, 2353)
	acct := ParticipantKey(uuid.New())

	entries, err := l.Allocate(acct, 1000)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Allocate produced %d entries, want 2", len(entries))
	}
	if !Balanced(entries) {
		t.Errorf("allocate entries not balanced: %+v", entries)
	}
	if got := l.BalanceOf(acct); got != 1000 {
		t.Errorf("BalanceOf = %d, want 1000", got)
	}
	if got := l.Unallocated(); got != 1353 {
		t.Errorf("Unallocated = %d, want 1353", got)
	}
	if err := l.CheckConservation(); err != nil {
		t.Errorf("conservation after allocate: %v", err)
	}
}

func TestAllocateInsufficientUnallocated(t *testing.T) {
	l := mustLedger(t, 100)
	_, err := l.Allocate(ParticipantKey(uuid.New()), 101)
	if !errors.Is(err, ErrInsufficientUnallocatedShares) {
		t.Errorf("Allocate(101) err = %v, want ErrInsufficientUnallocatedShares", err)
	}
	if got := l.Unallocated(); got != 100 {
		t.Errorf("failed allocate changed sink balance to %d", got)
	}
}

func TestDeallocateReturnsSharesToSink(t *testing.T) {
	l := mustLedger(t, 100)
	acct := ParticipantKey(uuid.New())
	if _, err := l.Allocate(acct, 60); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	entries, err := l.Deallocate(acct, 60)
	if err != nil {
		t.Fatalf("Deallocate: %v", err)
	}
	if !Balanced(entries) {
		t.Errorf("deallocate entries not balanced: %+v", entries)
	}
	if got := l.Unallocated(); got != 100 {
		t.Errorf("Unallocated = %d, want 100", got)
	}
	// Zeroed accounts drop out of the holder set.
	for _, h := range l.Holders() {
		if h == acct {
			t.Errorf("zeroed account still in holders")
		}
	}
}

func TestDeallocateInsufficientBalance(t *testing.T) {
	l := mustLedger(t, 100)
	acct := ParticipantKey(uuid.New())
	if _, err := l.Allocate(acct, 30); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	_, err := l.Deallocate(acct, 31)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("Deallocate(31) err = %v, want ErrInsufficientBalance", err)
	}
	if got := l.BalanceOf(acct); got != 30 {
		t.Errorf("failed deallocate changed balance to %d", got)
	}
}

func TestZeroAmountRejected(t *testing.T) {
	l := mustLedger(t, 100)
	acct := ParticipantKey(uuid.New())

	if _, err := l.Allocate(acct, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Allocate(0) err = %v, want ErrInvalidAmount", err)
	}
	if _, err := l.Deallocate(acct, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Deallocate(0) err = %v, want ErrInvalidAmount", err)
	}
	if _, err := l.Allocate(SinkKey(), 10); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Allocate(sink) err = %v, want ErrInvalidAmount", err)
	}
}

func TestNewShareLedgerRejectsNonPositivePool(t *testing.T) {
	if _, err := NewShareLedger(0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("NewShareLedger(0) err = %v, want ErrInvalidAmount", err)
	}
}

// ============================================================
// Account keys
// ============================================================

func TestAccountKeyRoundTrip(t *testing.T) {
	keys := []AccountKey{
		SinkKey(),
		ParticipantKey(uuid.New()),
	}
	for _, k := range keys {
		parsed, err := ParseAccountKey(k.String())
		if err != nil {
			t.Errorf("ParseAccountKey(%q): %v", k.String(), err)
			continue
		}
		if parsed != k {
			t.Errorf("round trip %q: got %v, want %v", k.String(), parsed, k)
		}
	}
}

func TestParseAccountKeyRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "participant:", "participant:not-a-uuid", "admin:123"} {
		if _, err := ParseAccountKey(s); err == nil {
			t.Errorf("ParseAccountKey(%q) succeeded, want error", s)
		}
	}
}

// ============================================================
// Snapshot and restore
// ============================================================

func TestSnapshotRestore(t *testing.T) {
	l := mustLedger(t, 500)
	a, b := ParticipantKey(uuid.New()), ParticipantKey(uuid.New())
	if _, err := l.Allocate(a, 120); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if _, err := l.Allocate(b, 80); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	snap := l.Snapshot()
	restored := mustLedger(t, 500)
	restored.Restore(snap)

	if err := restored.CheckConservation(); err != nil {
		t.Fatalf("conservation after restore: %v", err)
	}
	if got := restored.BalanceOf(a); got != 120 {
		t.Errorf("restored balance a = %d, want 120", got)
	}
	if got := restored.Unallocated(); got != 300 {
		t.Errorf("restored unallocated = %d, want 300", got)
	}
}
