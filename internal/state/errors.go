package state

import "errors"

var (
	// ErrDurationActive rejects a duration change while a period is
	// still streaming.
	ErrDurationActive = errors.New("period still active, cannot change duration")

	// ErrDurationUnset rejects a period start before any duration has
	// been configured.
	ErrDurationUnset = errors.New("period duration not configured")

	// ErrZeroRate rejects a period whose computed streaming rate
	// truncates to zero.
	ErrZeroRate = errors.New("computed reward rate is zero")

	// ErrInsufficientFunding means the reward balance cannot cover the
	// full committed payout of the new period.
	ErrInsufficientFunding = errors.New("insufficient reward funding for period")

	// ErrInvalidDuration rejects negative durations.
	ErrInvalidDuration = errors.New("duration must be non-negative")
)
