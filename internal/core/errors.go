package core

import "errors"

var (
	// ErrNothingToClaim guards a claim with zero settled reward.
	ErrNothingToClaim = errors.New("no settled reward to claim")

	// ErrNothingToBurn guards a burn with zero sink accrual.
	ErrNothingToBurn = errors.New("no sink reward to burn")

	// ErrDuplicateOperation marks an operation id already processed.
	ErrDuplicateOperation = errors.New("operation already processed")
)
