// Package ingestion moves commands from the message bus into the
// engine and publishes the engine's sealed envelopes back out.
package ingestion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"RewardLedger/internal/event"
)

// CommandSubjectPrefix is the subject root for inbound commands. The
// final token names the operation type, e.g. reward.cmd.stake.
const CommandSubjectPrefix = "reward.cmd."

// commandBody is the wire shape of an inbound command. The operation
// type comes from the subject, never the body, so a misrouted message
// cannot smuggle a different operation.
type commandBody struct {
	ID       string `json:"id"`
	Account  string `json:"account,omitempty"`
	Amount   int64  `json:"amount,omitempty"`
	Duration int64  `json:"duration_seconds,omitempty"`
}

// ParseCommand decodes one bus message into an operation. The
// timestamp is left zero; the subscriber stamps it from its clock
// before handing the operation to the engine.
func ParseCommand(subject string, data []byte) (*event.Operation, error) {
	if !strings.HasPrefix(subject, CommandSubjectPrefix) {
		return nil, fmt.Errorf("unexpected command subject %q", subject)
	}
	opType := event.OperationType(strings.TrimPrefix(subject, CommandSubjectPrefix))
	switch opType {
	case event.OpStake, event.OpWithdraw, event.OpClaim,
		event.OpSetDuration, event.OpStartPeriod, event.OpBurnSink, event.OpFund:
	default:
		return nil, fmt.Errorf("unknown command type %q in subject %q", opType, subject)
	}

	var body commandBody
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("decode %s command: %w", opType, err)
	}
	id, err := uuid.Parse(body.ID)
	if err != nil {
		return nil, fmt.Errorf("decode %s command id %q: %w", opType, body.ID, err)
	}

	op := &event.Operation{
		ID:       id,
		Type:     opType,
		Amount:   body.Amount,
		Duration: body.Duration,
	}
	if body.Account != "" {
		account, err := uuid.Parse(body.Account)
		if err != nil {
			return nil, fmt.Errorf("decode %s command account %q: %w", opType, body.Account, err)
		}
		op.Account = account
	}
	return op, nil
}
