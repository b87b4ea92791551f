package state

import (
	"errors"
	"testing"
)

// ============================================================
// Duration configuration
// ============================================================

func TestSetDurationWhileActive(t *testing.T) {
	_, pc, _ := newTracker(t, 100)
	startPeriod(t, pc, baseTime, 100, 10_000)

	err := pc.SetDuration(baseTime+50, 200)
	if !errors.Is(err, ErrDurationActive) {
		t.Errorf("SetDuration mid-period err = %v, want ErrDurationActive", err)
	}
}

func TestSetDurationAfterExpiry(t *testing.T) {
	_, pc, _ := newTracker(t, 100)
	startPeriod(t, pc, baseTime, 100, 10_000)

	if err := pc.SetDuration(baseTime+100, 200); err != nil {
		t.Errorf("SetDuration at expiry: %v", err)
	}
}

func TestSetDurationRejectsNegative(t *testing.T) {
	_, pc, _ := newTracker(t, 100)
	if err := pc.SetDuration(baseTime, -1); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("SetDuration(-1) err = %v, want ErrInvalidDuration", err)
	}
}

// ============================================================
// Period start
// ============================================================

func TestStartPeriodWithoutDuration(t *testing.T) {
	tr, pc, _ := newTracker(t, 100)

	err := pc.StartPeriod(baseTime, 1000, 1<<40)
	if !errors.Is(err, ErrDurationUnset) {
		t.Errorf("StartPeriod err = %v, want ErrDurationUnset", err)
	}
	// Nothing may have moved.
	if got := tr.CurrentRewardPerShare(baseTime + 100); got.Sign() != 0 {
		t.Errorf("failed start left index at %s", got)
	}
	if pc.Phase(baseTime) != PhaseUnset {
		t.Errorf("phase = %v, want unset", pc.Phase(baseTime))
	}
}

func TestStartPeriodFresh(t *testing.T) {
	_, pc, _ := newTracker(t, 100)
	if err := pc.SetDuration(baseTime, 10); err != nil {
		t.Fatalf("SetDuration: %v", err)
	}
	if err := pc.StartPeriod(baseTime, 1000, 1000); err != nil {
		t.Fatalf("StartPeriod: %v", err)
	}
	if pc.state.RewardRate != 100 {
		t.Errorf("rate = %d, want 100", pc.state.RewardRate)
	}
	if pc.state.PeriodFinishAt != baseTime+10 {
		t.Errorf("finish = %d, want %d", pc.state.PeriodFinishAt, baseTime+10)
	}
	if pc.Phase(baseTime+5) != PhaseActive {
		t.Errorf("phase = %v, want active", pc.Phase(baseTime+5))
	}
	if pc.Phase(baseTime+10) != PhaseExpired {
		t.Errorf("phase = %v, want expired", pc.Phase(baseTime+10))
	}
}

func TestStartPeriodRollsOverLeftover(t *testing.T) {
	_, pc, _ := newTracker(t, 100)
	if err := pc.SetDuration(baseTime, 1000); err != nil {
		t.Fatalf("SetDuration: %v", err)
	}
	if err := pc.StartPeriod(baseTime, 100_000, 1<<40); err != nil {
		t.Fatalf("first StartPeriod: %v", err)
	}
	// Halfway through, 500s * 100/s = 50000 is still undistributed.
	if err := pc.StartPeriod(baseTime+500, 75_000, 1<<40); err != nil {
		t.Fatalf("top-up StartPeriod: %v", err)
	}
	if pc.state.RewardRate != 125 {
		t.Errorf("rolled-over rate = %d, want 125", pc.state.RewardRate)
	}
	if pc.state.PeriodFinishAt != baseTime+1500 {
		t.Errorf("finish = %d, want %d", pc.state.PeriodFinishAt, baseTime+1500)
	}
}

func TestStartPeriodZeroRate(t *testing.T) {
	_, pc, _ := newTracker(t, 100)
	if err := pc.SetDuration(baseTime, 1000); err != nil {
		t.Fatalf("SetDuration: %v", err)
	}
	err := pc.StartPeriod(baseTime, 999, 1<<40)
	if !errors.Is(err, ErrZeroRate) {
		t.Errorf("StartPeriod(999 over 1000s) err = %v, want ErrZeroRate", err)
	}
	if pc.state.PeriodFinishAt != 0 {
		t.Errorf("failed start set finish to %d", pc.state.PeriodFinishAt)
	}
}

func TestStartPeriodInsufficientFunding(t *testing.T) {
	_, pc, _ := newTracker(t, 100)
	if err := pc.SetDuration(baseTime, 10); err != nil {
		t.Fatalf("SetDuration: %v", err)
	}
	// Rate 100 over 10s commits 1000, but only 999 is available.
	err := pc.StartPeriod(baseTime, 1000, 999)
	if !errors.Is(err, ErrInsufficientFunding) {
		t.Errorf("StartPeriod err = %v, want ErrInsufficientFunding", err)
	}
	if pc.state.RewardRate != 0 {
		t.Errorf("failed start set rate to %d", pc.state.RewardRate)
	}
}
