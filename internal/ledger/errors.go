package ledger

import "errors"

var (
	// ErrInvalidAmount rejects zero-amount share movements.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientUnallocatedShares means the sink does not hold
	// enough shares to cover an allocation.
	ErrInsufficientUnallocatedShares = errors.New("insufficient unallocated shares")

	// ErrInsufficientBalance means a participant tried to release more
	// shares than it holds.
	ErrInsufficientBalance = errors.New("insufficient share balance")
)
