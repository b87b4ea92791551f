package state

import (
	"fmt"
	"math/big"

	rmath "RewardLedger/internal/math"
)

// Phase is the derived lifecycle phase of the distribution period.
type Phase string

const (
	PhaseUnset      Phase = "unset"
	PhaseConfigured Phase = "configured"
	PhaseActive     Phase = "active"
	PhaseExpired    Phase = "expired"
)

// PeriodController owns the streaming rate and period window. Callers
// settle the sink before StartPeriod so accrual against the old rate
// is flushed first.
type PeriodController struct {
	state *RewardState
}

// NewPeriodController wires the controller to the shared state handle.
func NewPeriodController(st *RewardState) *PeriodController {
	return &PeriodController{state: st}
}

// Phase derives the current lifecycle phase at time now.
func (c *PeriodController) Phase(now int64) Phase {
	switch {
	case c.state.PeriodDuration == 0:
		return PhaseUnset
	case c.state.PeriodFinishAt == 0:
		return PhaseConfigured
	case now < c.state.PeriodFinishAt:
		return PhaseActive
	default:
		return PhaseExpired
	}
}

// SetDuration configures the period length. Rejected while a period is
// in flight; a mid-stream duration change would silently reprice the
// remaining stream.
func (c *PeriodController) SetDuration(now, seconds int64) error {
	if seconds < 0 {
		return fmt.Errorf("duration %ds: %w", seconds, ErrInvalidDuration)
	}
	if now < c.state.PeriodFinishAt {
		return fmt.Errorf("period runs until %d, now %d: %w", c.state.PeriodFinishAt, now, ErrDurationActive)
	}
	c.state.PeriodDuration = seconds
	return nil
}

// StartPeriod commits amount to be streamed over the configured
// duration starting at now. If a period is still in flight, its
// undistributed remainder rolls into the new rate instead of being
// discarded. available is the reward-token balance held for the
// engine; the full committed payout rate*duration must fit inside it.
func (c *PeriodController) StartPeriod(now, amount, available int64) error {
	if c.state.PeriodDuration == 0 {
		return ErrDurationUnset
	}

	var rate int64
	if now >= c.state.PeriodFinishAt {
		rate = amount / c.state.PeriodDuration
	} else {
		leftover := (c.state.PeriodFinishAt - now) * c.state.RewardRate
		rate = rmath.ScaleRate(amount, leftover, c.state.PeriodDuration)
	}
	if rate == 0 {
		return fmt.Errorf("amount %d over %ds: %w", amount, c.state.PeriodDuration, ErrZeroRate)
	}

	committed := rmath.MulBig(rate, c.state.PeriodDuration)
	if committed.Cmp(big.NewInt(available)) > 0 {
		return fmt.Errorf("committed payout %s exceeds available %d: %w", committed, available, ErrInsufficientFunding)
	}

	c.state.RewardRate = rate
	c.state.PeriodFinishAt = now + c.state.PeriodDuration
	c.state.LastUpdateAt = now
	return nil
}
