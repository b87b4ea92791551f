// Package event defines the command and notification types that cross
// the engine boundary: operations flowing in from ingestion and sealed
// envelopes flowing out to persistence and projections.
package event

import (
	"fmt"

	"github.com/google/uuid"
)

// OperationType discriminates inbound commands.
type OperationType string

const (
	OpStake       OperationType = "stake"
	OpWithdraw    OperationType = "withdraw"
	OpClaim       OperationType = "claim"
	OpSetDuration OperationType = "set_duration"
	OpStartPeriod OperationType = "start_period"
	OpBurnSink    OperationType = "burn_sink"
	OpFund        OperationType = "fund"
)

// Operation is one inbound command. Timestamp is stamped at the shell
// boundary before the operation enters the engine; the engine itself
// never reads the wall clock, which keeps replay deterministic.
type Operation struct {
	ID        uuid.UUID     `json:"id"`
	Type      OperationType `json:"type"`
	Account   uuid.UUID     `json:"account,omitempty"`
	Amount    int64         `json:"amount,omitempty"`
	Duration  int64         `json:"duration_seconds,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

// Validate checks the operation's shape. Semantic checks (balances,
// period state) belong to the engine.
func (o *Operation) Validate() error {
	if o.ID == uuid.Nil {
		return fmt.Errorf("operation missing id")
	}
	if o.Timestamp <= 0 {
		return fmt.Errorf("operation %s missing timestamp", o.ID)
	}
	switch o.Type {
	case OpStake, OpWithdraw, OpClaim, OpFund:
		if o.Account == uuid.Nil {
			return fmt.Errorf("%s operation %s missing account", o.Type, o.ID)
		}
	case OpSetDuration, OpStartPeriod, OpBurnSink:
		// administrative, no account
	default:
		return fmt.Errorf("unknown operation type %q", o.Type)
	}
	return nil
}
